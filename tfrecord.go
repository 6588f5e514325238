package simlabel

// TFRecord object detection specific functionality.

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// ImageSource returns the path of the camera image of a frame.
type ImageSource func(frame FrameAnnotation) (string, error)

// FrameImagePath is the ImageSource that uses the image path stored in the frame.
func FrameImagePath(frame FrameAnnotation) (string, error) {
	if frame.ImagePath == "" {
		return "", fmt.Errorf("frame %d has no image", frame.FrameID)
	}
	return frame.ImagePath, nil
}

// ImagesInDir returns an ImageSource that looks up <frame_id>.png or <frame_id>.jpg in dir.
func ImagesInDir(dir string) ImageSource {
	return func(frame FrameAnnotation) (string, error) {
		for _, ext := range []string{".png", ".jpg", ".jpeg"} {
			path := filepath.Join(dir, fmt.Sprint(frame.FrameID)+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		return "", fmt.Errorf("no image for frame %d in %q", frame.FrameID, dir)
	}
}

// TFRecordOptions control the TFRecord output.
type TFRecordOptions struct {
	NumShards int // Number of output files; values below 1 mean 1.
	MaxSide   int // If positive, images with a longer side are downsampled to it.
}

// tfLabelMap assigns class ids. Semantic class names keep their simulator id, other class names
// (from class mappings) are numbered after the semantic table in order of appearance.
type tfLabelMap struct {
	ids    map[string]int32
	nextID int32
}

func newTFLabelMap() *tfLabelMap {
	return &tfLabelMap{ids: make(map[string]int32), nextID: int32(NumSemanticTags)}
}

func (m *tfLabelMap) idFor(class string) int32 {
	if id, ok := m.ids[class]; ok {
		return id
	}
	var id int32
	if tag, ok := TagByName(class); ok && tag != 0 {
		id = int32(tag)
	} else {
		id = m.nextID
		m.nextID++
	}
	m.ids[class] = id
	return id
}

// toTFRecord converts a single frame to the TFRecord feature map.
func toTFRecord(frame FrameAnnotation, imagePath string, maxSide int, labelMap *tfLabelMap) (
	TFFeatureMap, error) {

	// Get the image width and height. Boxes are in pixels of the original image.
	orig, format, err := decodeImageConfig(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	// Read the image data, downsampling it if requested.
	size := orig
	var imgData []byte
	if maxSide > 0 && (orig.Width > maxSide || orig.Height > maxSide) {
		imgData, size, format, err = downsampledImage(imagePath, maxSide)
	} else {
		imgData, err = ioutil.ReadFile(imagePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	// Prepare the feature map for the per frame data.
	f := make(TFFeatureMap, 32)
	f["image/height"] = size.Height
	f["image/width"] = size.Width
	f["image/filename"] = imagePath
	f["image/source_id"] = fmt.Sprint(frame.FrameID)
	f["image/encoded"] = imgData
	f["image/format"] = format
	f["image/timestamp"] = []float32{float32(frame.Timestamp)}
	if frame.SequenceID != "" {
		f["image/sequence_id"] = frame.SequenceID
	}

	// Prepare the per object data. Coordinates are normalised so that a resized image keeps its
	// boxes. Objects without a 2D box are not part of the detection example.
	numObjects := frame.NumBoxes2D()
	floats := func() []float32 { return make([]float32, 0, numObjects) }
	var (
		xmins, ymins, xmaxs, ymaxs = floats(), floats(), floats(), floats()
		cx, cy, cz                 = floats(), floats(), floats()
		length, width, height      = floats(), floats(), floats()
		vx, vy, vz                 = floats(), floats(), floats()
		yaws                       = floats()
		classes                    = make([]string, 0, numObjects)
		classIDs                   = make([]int64, 0, numObjects)
		actorIDs                   = make([]int64, 0, numObjects)
	)
	srcWidth, srcHeight := float32(orig.Width), float32(orig.Height)
	for _, o := range frame.Objects {
		if o.Box2D == nil {
			continue
		}
		b := o.Box2D
		xmins = append(xmins, float32(b.XMin)/srcWidth)
		ymins = append(ymins, float32(b.YMin)/srcHeight)
		xmaxs = append(xmaxs, float32(b.XMax+1)/srcWidth)
		ymaxs = append(ymaxs, float32(b.YMax+1)/srcHeight)
		classes = append(classes, o.Class)
		classIDs = append(classIDs, int64(labelMap.idFor(o.Class)))
		actorIDs = append(actorIDs, int64(o.ID))

		cx = append(cx, float32(o.Box3D.Center.X))
		cy = append(cy, float32(o.Box3D.Center.Y))
		cz = append(cz, float32(o.Box3D.Center.Z))
		length = append(length, float32(o.Box3D.Dimensions.Length))
		width = append(width, float32(o.Box3D.Dimensions.Width))
		height = append(height, float32(o.Box3D.Dimensions.Height))
		yaws = append(yaws, float32(o.Box3D.Yaw))
		vx = append(vx, float32(o.Velocity.X))
		vy = append(vy, float32(o.Velocity.Y))
		vz = append(vz, float32(o.Velocity.Z))
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs
	f["image/object/id"] = actorIDs
	f["image/object/3d/center/x"] = cx
	f["image/object/3d/center/y"] = cy
	f["image/object/3d/center/z"] = cz
	f["image/object/3d/length"] = length
	f["image/object/3d/width"] = width
	f["image/object/3d/height"] = height
	f["image/object/3d/yaw"] = yaws
	f["image/object/velocity/x"] = vx
	f["image/object/velocity/y"] = vy
	f["image/object/velocity/z"] = vz

	return f, nil
}

// downsampledImage loads the image at path, resizes it so that its longer side is maxSide and
// returns it PNG encoded along with its new size.
func downsampledImage(path string, maxSide int) ([]byte, image.Config, string, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, image.Config{}, "", err
	}
	resized, _, _ := resizeImage(img, maxSide, 0, imaging.Lanczos, imaging.Linear)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, image.Config{}, "", err
	}
	b := resized.Bounds()
	return buf.Bytes(), image.Config{Width: b.Dx(), Height: b.Dy()}, "png", nil
}

// WriteCustomTFRecord works like WriteTFRecord, except that it allows for the TFFeatureMap to be
// customised.
//
// Before generating a tensorflow.Example from each frame and writing it to the TFRecord file, the
// source frame and TFFeatureMap containing the default conversion are passed to customiseFeature,
// which may modify the feature map to its liking, as long as all of its values can be converted
// to tensorflow.Feature.
func WriteCustomTFRecord(recordFilePath, labelMapPath string, data FrameAnnotations,
	images ImageSource, opts TFRecordOptions,
	customiseFeature func(f FrameAnnotation, m TFFeatureMap)) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if images == nil {
		images = FrameImagePath
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = 1
	}
	labelMap := newTFLabelMap()

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one frame at a time.
	for i, frame := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			// Close the previous shard file.
			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return err
				}
				shardFile = nil
			}

			// Create the new shard file.
			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		log := logger.WithField("frame_id", frame.FrameID)

		imagePath, err := images(frame)
		if err != nil {
			log.Warnf("Skipping frame: %v", err)
			continue
		}

		// Convert the frame to an example.
		features, err := toTFRecord(frame, imagePath, opts.MaxSide, labelMap)
		if err != nil {
			log.WithField("path", imagePath).Warnf("Failed to convert: %v", err)
			continue
		}
		if customiseFeature != nil {
			customiseFeature(frame, features)
		}
		tfExample := example.New(features)

		// Write the example.
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			shardFile.Close()
			return fmt.Errorf("failed to write example: %v", err)
		}
	}

	if shardFile != nil {
		if err := shardFile.Close(); err != nil {
			return err
		}
	}

	return saveTFRecordLabelMap(labelMapPath, labelMap.ids)
}

// WriteTFRecord does a streaming conversion, serialisation and file write for the annotation data
// to one or more TFRecord files stored under recordFilePath (with suffixes added when numShards>1).
//
// A label map is generated and written to labelMapPath.
func WriteTFRecord(recordFilePath, labelMapPath string, data FrameAnnotations, images ImageSource,
	numShards int) error {
	return WriteCustomTFRecord(recordFilePath, labelMapPath, data, images,
		TFRecordOptions{NumShards: numShards}, nil)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes labelMap to path in the prototxt format of the object detection
// StringIntLabelMap, ordered by id.
func saveTFRecordLabelMap(path string, labelMap map[string]int32) (err error) {
	type item struct {
		name string
		id   int32
	}
	items := make([]item, 0, len(labelMap))
	for k, v := range labelMap {
		items = append(items, item{name: k, id: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for _, it := range items {
		if _, err := fmt.Fprintf(w, "item {\n  name: %q\n  id: %d\n}\n", it.name, it.id); err != nil {
			return fmt.Errorf("failed to write the label map %q: %v", path, err)
		}
	}
	return w.Flush()
}
