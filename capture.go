package simlabel

// Offline simulator captures: per-frame world snapshots with their sensor images.

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// ErrNoInstanceCapture is returned when a frame has no instance segmentation capture.
var ErrNoInstanceCapture = errors.New("no instance segmentation capture")

// SnapshotCamera is the camera sensor of a snapshot.
type SnapshotCamera struct {
	Transform Transform `json:"transform"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FOV       float64   `json:"fov"`
}

// Camera converts the snapshot camera.
func (c SnapshotCamera) Camera() Camera {
	return Camera{
		Transform:  c.Transform,
		Intrinsics: Intrinsics{Width: c.Width, Height: c.Height, FOV: c.FOV},
	}
}

// Snapshot is the world state of one simulation tick as recorded by the capture client.
type Snapshot struct {
	FrameID   uint64         `json:"frame_id"`
	Timestamp float64        `json:"timestamp"`
	Camera    SnapshotCamera `json:"camera"`
	Ego       Actor          `json:"ego"`
	Actors    []Actor        `json:"actors"`
}

// FrameInput converts the snapshot and its instance capture to annotator input.
func (s Snapshot) FrameInput(inst *InstanceBuffer) FrameInput {
	cam := s.Camera.Camera()
	return FrameInput{
		FrameID:   s.FrameID,
		Timestamp: s.Timestamp,
		Ego:       s.Ego,
		Actors:    s.Actors,
		Instance:  inst,
		Camera:    &cam,
	}
}

// ReadSnapshot reads and parses the snapshot at path.
func ReadSnapshot(path string) (Snapshot, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(enc, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot %q: %v", path, err)
	}
	return s, nil
}

// Capture is one frame of a capture directory.
type Capture struct {
	Snapshot     Snapshot
	SnapshotPath string
	InstancePath string
	ImagePath    string // Empty if the frame has no camera image.
}

// Input loads the instance capture and returns the annotator input.
func (c Capture) Input() (FrameInput, error) {
	if c.InstancePath == "" {
		return FrameInput{}, errors.Wrapf(ErrNoInstanceCapture, "frame %d", c.Snapshot.FrameID)
	}
	inst, err := LoadInstanceBuffer(c.InstancePath)
	if err != nil {
		return FrameInput{}, err
	}
	return c.Snapshot.FrameInput(inst), nil
}

// LoadCaptures lists the frames in dir in frame order. A frame is a <frame>.json snapshot with a
// <frame>_inst.png instance capture and an optional <frame>.png or <frame>.jpg camera image.
// Frames without an instance capture and unparseable snapshots are logged and skipped.
func LoadCaptures(dir string) ([]Capture, error) {
	files, err := filesByExtInDir(dir, ".json")
	if err != nil {
		return nil, err
	}

	captures := make([]Capture, 0, len(files))
	for _, path := range files {
		log := logger.WithField("path", path)

		_, baseNoExt, _, err := splitPath(path)
		if err != nil {
			log.Warn(err)
			continue
		}
		if _, err := strconv.ParseUint(baseNoExt, 10, 64); err != nil {
			log.Debug("Not a snapshot, skipping")
			continue
		}

		instPath := filepath.Join(dir, baseNoExt+"_inst.png")
		if _, err := os.Stat(instPath); err != nil {
			log.Warnf("Skipping frame: %v", errors.Wrap(ErrNoInstanceCapture, err.Error()))
			continue
		}

		s, err := ReadSnapshot(path)
		if err != nil {
			log.Warnf("Error while parsing, skipping: %v", err)
			continue
		}

		c := Capture{Snapshot: s, SnapshotPath: path, InstancePath: instPath}
		for _, ext := range []string{".png", ".jpg"} {
			p := filepath.Join(dir, baseNoExt+ext)
			if _, err := os.Stat(p); err == nil {
				c.ImagePath = p
				break
			}
		}
		captures = append(captures, c)
	}

	// File names sort lexically; frames must be processed in tick order.
	sort.Slice(captures, func(i, j int) bool {
		return captures[i].Snapshot.FrameID < captures[j].Snapshot.FrameID
	})
	logger.WithField("path", dir).Infof("Found %d captured frames", len(captures))

	return captures, nil
}
