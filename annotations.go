package simlabel

// The per-frame annotation representation and operations on annotation sets.

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ObjectAnnotation is the ground truth for one actor in one frame.
type ObjectAnnotation struct {
	ID         uint32      // Simulator actor id, stable across frames.
	Class      string      // Class name, initially the name of Tag.
	Tag        SemanticTag // Primary semantic class of the actor.
	TypeID     string      // Blueprint id.
	Velocity   r3.Vector   // Relative velocity in the ego frame.
	Box3D      Box3D       // Ego-relative 3D box and its projected wireframe.
	Box2D      *Box2D      // Nil if no pixel of the actor is visible.
	LightState LightState  // Vehicle lights.
	Distance   float64     // Distance from the ego vehicle in metres.
}

// FrameAnnotation is the ground truth for one simulation tick.
type FrameAnnotation struct {
	FrameID    uint64
	Timestamp  float64 // Simulation time in seconds.
	SequenceID string  // Optional recording session the frame belongs to.
	ImagePath  string  // Optional path of the matching camera image.
	Objects    []ObjectAnnotation
}

// NumBoxes2D counts the objects with a visible 2D box.
func (f *FrameAnnotation) NumBoxes2D() int {
	n := 0
	for i := range f.Objects {
		if f.Objects[i].Box2D != nil {
			n++
		}
	}
	return n
}

// FrameAnnotations is the annotation data for a list of frames.
type FrameAnnotations []FrameAnnotation

// NewSequenceID returns a fresh id for grouping frames recorded in one session.
func NewSequenceID() string {
	return uuid.NewString()
}

// AssignSequence sets the sequence id of all frames.
func (data FrameAnnotations) AssignSequence(id string) {
	for i := range data {
		data[i].SequenceID = id
	}
}

// SortByFrame orders the frames by frame id.
func (data FrameAnnotations) SortByFrame() {
	sort.SliceStable(data, func(i, j int) bool { return data[i].FrameID < data[j].FrameID })
}

// MapClasses replaces class (sub-)strings with substitution values, as specified in mappings.
//
// The format of mappings is old=new.
func (data FrameAnnotations) MapClasses(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return errors.Errorf("invalid mapping: %v", v)
		}
		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	count := 0
	for fi := range data {
		for i := range data[fi].Objects {
			o := &data[fi].Objects[i]

			oldClass := o.Class
			for _, r := range replacements {
				o.Class = strings.Replace(o.Class, r.old, r.new, -1)
			}
			if o.Class != oldClass {
				count++
			}
		}
	}

	logger.WithField("count", count).Info("Class mappings applied")
	return nil
}

// FilterOptions selects the objects to keep. Zero values disable the respective filter.
type FilterOptions struct {
	Classes        []string // Classes to keep (after MapClasses).
	MaxDistance    float64  // Max. distance from the ego vehicle in metres.
	MinBoxWidth    int      // Min. 2D box width in pixels; objects without a 2D box fail.
	MinBoxHeight   int      // Min. 2D box height in pixels; objects without a 2D box fail.
	Require2D      bool     // Drop objects that are not visible in the image.
	RequireObjects bool     // Drop frames with no objects left after filtering.
}

// Filter removes the objects, and optionally frames, that do not pass opts. The order of the
// remaining objects and frames is preserved.
func (data *FrameAnnotations) Filter(opts FilterOptions) {
	inList := func(v string, l []string) bool {
		for _, val := range l {
			if val == v {
				return true
			}
		}
		return false
	}

	keep := func(o *ObjectAnnotation) bool {
		if len(opts.Classes) > 0 && !inList(o.Class, opts.Classes) {
			return false
		}
		if opts.MaxDistance > 0 && o.Distance > opts.MaxDistance {
			return false
		}
		if o.Box2D == nil {
			return !opts.Require2D && opts.MinBoxWidth <= 0 && opts.MinBoxHeight <= 0
		}
		return o.Box2D.Width() >= opts.MinBoxWidth && o.Box2D.Height() >= opts.MinBoxHeight
	}

	numFrames := len(*data)
	removed := 0
	frames := (*data)[:0]
	for _, f := range *data {
		objects := f.Objects[:0]
		for i := range f.Objects {
			if keep(&f.Objects[i]) {
				objects = append(objects, f.Objects[i])
			} else {
				removed++
			}
		}
		f.Objects = objects

		if opts.RequireObjects && len(f.Objects) == 0 {
			continue
		}
		frames = append(frames, f)
	}
	*data = frames

	logger.WithFields(Fields{
		"objects": removed,
		"frames":  numFrames - len(*data),
	}).Info("Filtered annotations")
}

// Split randomly splits the data into multiple datasets.
//
// The cumulativeSplits specify the cumulative distribution according to which the data is split
// into the returned datasets. Its last value must be 100. Frames are assigned independently, so
// the dataset sizes only approximate the requested shares.
func (data FrameAnnotations) Split(cumulativeSplits []int, rng *rand.Rand) ([]FrameAnnotations, error) {
	datasets := make([]FrameAnnotations, len(cumulativeSplits))

	var prev int
	for i, s := range cumulativeSplits {
		if s < prev {
			return nil, fmt.Errorf("split percentages must be cumulative, got %v", cumulativeSplits)
		}
		datasets[i] = make(FrameAnnotations, 0, int(1.05*float64(s-prev)/100*float64(len(data))))
		prev = s
	}
	if prev != 100 {
		return nil, errors.New("the split percentages do not add up to 100")
	}

outer:
	for _, f := range data {
		r := rng.Intn(100)
		for i, s := range cumulativeSplits {
			if r < s {
				datasets[i] = append(datasets[i], f)
				continue outer
			}
		}
	}

	return datasets, nil
}
