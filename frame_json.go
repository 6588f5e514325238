package simlabel

// Per-frame JSON label files.

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// JSONVector is a 3D vector with lower case keys.
type JSONVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// JSONBox3D is the 3D box of an object in a frame JSON file.
type JSONBox3D struct {
	Center      JSONVector `json:"center"`
	Dimensions  Dimensions `json:"dimensions"`
	RotationYaw float64    `json:"rotation_yaw"`
}

// JSONObject is a single object within a frame JSON file.
type JSONObject struct {
	ID          uint32      `json:"id"`
	Class       string      `json:"class"`
	SemanticTag SemanticTag `json:"semantic_tag"`
	BlueprintID string      `json:"blueprint_id"`
	Velocity    JSONVector  `json:"velocity"`
	Distance    float64     `json:"distance"`
	BBox3D      JSONBox3D   `json:"bbox_3d"`
	Projection  []Segment   `json:"projection"`
	BBox2D      *Box2D      `json:"bbox_2d"`
	LightState  LightState  `json:"light_state"`
}

// JSONFrame defines the frame JSON structure.
type JSONFrame struct {
	FrameID    uint64       `json:"frame_id"`
	Timestamp  float64      `json:"timestamp"`
	SequenceID string       `json:"sequence_id,omitempty"`
	ImagePath  string       `json:"image_path,omitempty"`
	Objects    []JSONObject `json:"objects"`
}

func toJSONVector(v r3.Vector) JSONVector {
	return JSONVector{X: v.X, Y: v.Y, Z: v.Z}
}

func (v JSONVector) vector() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// ToJSONFrame converts a frame annotation to the frame JSON structure.
func ToJSONFrame(frame FrameAnnotation) JSONFrame {
	f := JSONFrame{
		FrameID:    frame.FrameID,
		Timestamp:  frame.Timestamp,
		SequenceID: frame.SequenceID,
		ImagePath:  frame.ImagePath,
		Objects:    make([]JSONObject, len(frame.Objects)),
	}
	for i, o := range frame.Objects {
		projection := o.Box3D.Projection
		if projection == nil {
			// Must not be nil as that becomes JSON null.
			projection = []Segment{}
		}
		f.Objects[i] = JSONObject{
			ID:          o.ID,
			Class:       o.Class,
			SemanticTag: o.Tag,
			BlueprintID: o.TypeID,
			Velocity:    toJSONVector(o.Velocity),
			Distance:    o.Distance,
			BBox3D: JSONBox3D{
				Center:      toJSONVector(o.Box3D.Center),
				Dimensions:  o.Box3D.Dimensions,
				RotationYaw: o.Box3D.Yaw,
			},
			Projection: projection,
			BBox2D:     o.Box2D,
			LightState: o.LightState,
		}
	}
	return f
}

// FrameAnnotation converts the frame JSON structure back to a frame annotation.
func (f JSONFrame) FrameAnnotation() FrameAnnotation {
	frame := FrameAnnotation{
		FrameID:    f.FrameID,
		Timestamp:  f.Timestamp,
		SequenceID: f.SequenceID,
		ImagePath:  f.ImagePath,
		Objects:    make([]ObjectAnnotation, len(f.Objects)),
	}
	for i, o := range f.Objects {
		if o.BBox2D != nil {
			o.BBox2D.Label = o.SemanticTag
		}
		projection := o.Projection
		if projection == nil {
			projection = []Segment{}
		}
		frame.Objects[i] = ObjectAnnotation{
			ID:       o.ID,
			Class:    o.Class,
			Tag:      o.SemanticTag,
			TypeID:   o.BlueprintID,
			Velocity: o.Velocity.vector(),
			Box3D: Box3D{
				Center:     o.BBox3D.Center.vector(),
				Dimensions: o.BBox3D.Dimensions,
				Yaw:        o.BBox3D.RotationYaw,
				Projection: projection,
			},
			Box2D:      o.BBox2D,
			LightState: o.LightState,
			Distance:   o.Distance,
		}
	}
	return frame
}

// FrameJSONPath is the path of the label file of frameID in dir.
func FrameJSONPath(dir string, frameID uint64) string {
	return filepath.Join(dir, strconv.FormatUint(frameID, 10)+".json")
}

// WriteFrameJSON writes frame to <dir>/<frame_id>.json and returns the path.
func WriteFrameJSON(dir string, frame FrameAnnotation) (string, error) {
	enc, err := json.MarshalIndent(ToJSONFrame(frame), "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode frame %d", frame.FrameID)
	}
	path := FrameJSONPath(dir, frame.FrameID)
	if err := ioutil.WriteFile(path, enc, 0644); err != nil {
		return "", fmt.Errorf("cannot write file %q: %v", path, err)
	}
	return path, nil
}

// ReadFrameJSON reads and parses the frame JSON file at path.
func ReadFrameJSON(path string) (FrameAnnotation, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return FrameAnnotation{}, err
	}

	var f JSONFrame
	if err := json.Unmarshal(enc, &f); err != nil {
		return FrameAnnotation{}, fmt.Errorf("failed to parse frame JSON from %q: %v", path, err)
	}
	return f.FrameAnnotation(), nil
}

// FromFrameJSONDir reads all frame JSON files in dir, ordered by frame id. Files that fail to parse
// are logged and skipped.
func FromFrameJSONDir(dir string) (FrameAnnotations, error) {
	files, err := filesByExtInDir(dir, ".json")
	if err != nil {
		return nil, err
	}
	logger.WithField("path", dir).Infof("Parsing frame labels for %d files", len(files))

	data := make(FrameAnnotations, 0, len(files))
	for _, path := range files {
		frame, err := ReadFrameJSON(path)
		if err != nil {
			logger.WithField("path", path).Warnf("Error while parsing, skipping: %v", err)
			continue
		}
		data = append(data, frame)
	}
	data.SortByFrame()

	return data, nil
}
