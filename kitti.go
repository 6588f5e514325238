package simlabel

// KITTI object label specific functionality.

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// KITTI occlusion states.
const (
	KITTIFullyVisible = 0
	KITTIUnknown      = 3
)

// KITTIAnnotation is a single annotation within a KITTI file.
type KITTIAnnotation struct {
	Label      string
	Truncated  float64
	Occluded   int
	Alpha      float64    // Observation angle, radians.
	Coords     [4]float64 // x1, y1, x2, y2; all -1 if the object is not visible.
	Dimensions [3]float64 // Height, width, length in metres.
	Location   [3]float64 // Bottom centre in camera axes (x right, y down, z forward), metres.
	RotationY  float64    // Yaw around the camera y axis, radians in [-pi, pi].
	Score      float64    // Optional, only present in detector output.
}

// KITTIAnnotatedFile defines the KITTI annotation structure for a single frame.
type KITTIAnnotatedFile struct {
	Annotations []KITTIAnnotation
	FrameID     uint64
}

// kittiName is the base name of the label file of a frame.
func kittiName(frameID uint64) string {
	return fmt.Sprintf("%06d", frameID)
}

// normalizeAngle maps a to [-pi, pi].
func normalizeAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

// ToKitti converts the frame annotations to KITTI format.
func ToKitti(data FrameAnnotations) []KITTIAnnotatedFile {
	kittiData := make([]KITTIAnnotatedFile, 0, len(data))
	for _, frame := range data {
		// Per frame data.
		kittiFileData := KITTIAnnotatedFile{
			Annotations: make([]KITTIAnnotation, len(frame.Objects)),
			FrameID:     frame.FrameID,
		}
		// Convert all annotations.
		for i, o := range frame.Objects {
			kittiFileData.Annotations[i] = toKittiAnnotation(o)
		}
		kittiData = append(kittiData, kittiFileData)
	}

	return kittiData
}

func toKittiAnnotation(o ObjectAnnotation) KITTIAnnotation {
	dim := o.Box3D.Dimensions
	c := remapAxes(o.Box3D.Center)

	a := KITTIAnnotation{
		Label:      o.Class,
		Occluded:   KITTIFullyVisible,
		Coords:     [4]float64{-1, -1, -1, -1},
		Dimensions: [3]float64{dim.Height, dim.Width, dim.Length},
		Location:   [3]float64{c.X, c.Y + dim.Height/2, c.Z},
		RotationY:  normalizeAngle(o.Box3D.Yaw - math.Pi/2),
	}
	a.Alpha = normalizeAngle(a.RotationY - math.Atan2(c.X, c.Z))

	if o.Box2D != nil {
		b := o.Box2D
		a.Coords = [4]float64{float64(b.XMin), float64(b.YMin), float64(b.XMax), float64(b.YMax)}
	} else {
		a.Occluded = KITTIUnknown
	}
	return a
}

// frameObject converts the annotation back to an object annotation. Only the fields stored in
// KITTI files are set.
func (a KITTIAnnotation) frameObject() ObjectAnnotation {
	h := a.Dimensions[0]
	o := ObjectAnnotation{
		Class: a.Label,
		Box3D: Box3D{
			Center: r3.Vector{
				X: a.Location[2],
				Y: a.Location[0],
				Z: -(a.Location[1] - h/2),
			},
			Dimensions: Dimensions{Height: h, Width: a.Dimensions[1], Length: a.Dimensions[2]},
			Yaw:        normalizeAngle(a.RotationY + math.Pi/2),
			Projection: []Segment{},
		},
	}
	if tag, ok := TagByName(strings.Replace(a.Label, "_", " ", -1)); ok {
		o.Tag = tag
	}
	if a.Coords[2] >= 0 && a.Coords[3] >= 0 {
		o.Box2D = &Box2D{
			XMin:  int(math.Round(a.Coords[0])),
			YMin:  int(math.Round(a.Coords[1])),
			XMax:  int(math.Round(a.Coords[2])),
			YMax:  int(math.Round(a.Coords[3])),
			Label: o.Tag,
		}
	}
	o.Distance = o.Box3D.Center.Norm()
	return o
}

// FromKitti reads and parses the KITTI label files in labelDir. The file base names must be frame
// ids. Unparseable files and lines are logged and skipped.
func FromKitti(labelDir string) (FrameAnnotations, error) {
	labelFiles, err := filesByExtInDir(labelDir, ".txt")
	if err != nil {
		return nil, err
	}
	logger.WithField("path", labelDir).Infof("Parsing KITTI labels for %d files", len(labelFiles))

	data := make(FrameAnnotations, 0, len(labelFiles))
	for _, path := range labelFiles {
		log := logger.WithField("path", path)

		_, baseNoExt, _, err := splitPath(path)
		if err != nil {
			log.Warn(err)
			continue
		}
		frameID, err := strconv.ParseUint(baseNoExt, 10, 64)
		if err != nil {
			log.Warnf("File name is not a frame id, skipping: %v", err)
			continue
		}

		lines, err := readLines(path)
		if err != nil {
			log.Warnf("Error while parsing, skipping: %v", err)
			continue
		}

		frame := FrameAnnotation{FrameID: frameID, Objects: make([]ObjectAnnotation, 0, len(lines))}
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			a, err := parseKittiAnnotation(line)
			if err != nil {
				log.Warnf("Error while parsing, skipping line: %v", err)
				continue
			}
			frame.Objects = append(frame.Objects, a.frameObject())
		}
		data = append(data, frame)
	}
	data.SortByFrame()

	return data, nil
}

// parseKittiAnnotation parses the line of values for a single annotation.
func parseKittiAnnotation(line string) (KITTIAnnotation, error) {
	a := KITTIAnnotation{}

	tokens := strings.Fields(line)
	if len(tokens) < 15 {
		return a, fmt.Errorf("insufficient tokens in %q", line)
	}

	a.Label = tokens[0]
	values := make([]float64, len(tokens)-1)
	for i, tok := range tokens[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return a, fmt.Errorf("unexpected values in %q: %v", line, err)
		}
		values[i] = v
	}

	a.Truncated = values[0]
	a.Occluded = int(values[1])
	a.Alpha = values[2]
	copy(a.Coords[:], values[3:7])
	copy(a.Dimensions[:], values[7:10])
	copy(a.Location[:], values[10:13])
	a.RotationY = values[13]

	// The optional confidence score.
	if len(values) >= 15 {
		a.Score = values[14]
	}

	return a, nil
}

// WriteKitti writes data to dirPath, one file per frame.
func WriteKitti(dirPath string, data []KITTIAnnotatedFile) error {
	if err := ensureDir(dirPath); err != nil {
		return err
	}

	for _, fileData := range data {
		filePath := filepath.Join(dirPath, kittiName(fileData.FrameID)+".txt")
		if err := writeKittiFile(filePath, fileData.Annotations); err != nil {
			return err
		}
	}

	return nil
}

func writeKittiFile(path string, annotations []KITTIAnnotation) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(file, &err)

	// Label names must not contain spaces.
	w := bufio.NewWriter(file)
	for _, a := range annotations {
		_, err = fmt.Fprintf(w,
			"%s %.2f %d %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f\n",
			strings.Replace(a.Label, " ", "_", -1), a.Truncated, a.Occluded, a.Alpha,
			a.Coords[0], a.Coords[1], a.Coords[2], a.Coords[3],
			a.Dimensions[0], a.Dimensions[1], a.Dimensions[2],
			a.Location[0], a.Location[1], a.Location[2], a.RotationY)
		if err != nil {
			return err
		}
	}

	return w.Flush()
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %v", path, err)
	}

	return lines, nil
}
