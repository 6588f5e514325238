package simlabel

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDistance is the radius around the ego vehicle, in metres, within which actors are
// annotated.
const DefaultMaxDistance = 50.0

// FrameInput is everything the annotator needs from one simulation tick.
type FrameInput struct {
	FrameID   uint64
	Timestamp float64
	Ego       Actor
	Actors    []Actor         // May include the ego, which is skipped.
	Instance  *InstanceBuffer // Optional. Without it no 2D boxes are produced.
	Camera    *Camera         // Optional per-frame camera pose; overrides the annotator's camera.
}

// Annotator turns frame inputs into frame annotations.
type Annotator struct {
	camera      Camera
	maxDistance float64
	workers     int

	mu         sync.Mutex
	projectors map[Intrinsics]*projector
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithMaxDistance sets the annotation radius around the ego. Actors at or beyond it are skipped.
// Zero or less disables the limit.
func WithMaxDistance(metres float64) AnnotatorOption {
	return func(a *Annotator) { a.maxDistance = metres }
}

// WithWorkers sets the number of actors annotated concurrently. Values below 1 select
// runtime.NumCPU().
func WithWorkers(n int) AnnotatorOption {
	return func(a *Annotator) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		a.workers = n
	}
}

// NewAnnotator creates an annotator for cam. The camera intrinsics are validated once here.
func NewAnnotator(cam Camera, opts ...AnnotatorOption) (*Annotator, error) {
	a := &Annotator{
		camera:      cam,
		maxDistance: DefaultMaxDistance,
		workers:     runtime.NumCPU(),
		projectors:  make(map[Intrinsics]*projector, 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	if _, err := a.projectorFor(cam.Intrinsics); err != nil {
		return nil, err
	}
	return a, nil
}

// Camera returns the default camera of the annotator.
func (a *Annotator) Camera() Camera {
	return a.camera
}

// projectorFor returns the cached projector for in, creating it on first use.
func (a *Annotator) projectorFor(in Intrinsics) (*projector, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.projectors[in]; ok {
		return p, nil
	}
	p, err := newProjector(in)
	if err != nil {
		return nil, err
	}
	a.projectors[in] = p
	return p, nil
}

// Annotate computes the ground truth of every actor near the ego and in front of the camera.
//
// Objects are returned in the order of in.Actors. The instance buffer, when present, must have the
// image size of the camera.
func (a *Annotator) Annotate(ctx context.Context, in FrameInput) (*FrameAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "annotation of frame %d aborted", in.FrameID)
	}

	cam := a.camera
	if in.Camera != nil {
		cam = *in.Camera
	}
	p, err := a.projectorFor(cam.Intrinsics)
	if err != nil {
		return nil, err
	}

	var (
		labels *LabelGrid
		ids    *ActorIDGrid
	)
	if in.Instance != nil {
		if in.Instance.Width() != cam.Intrinsics.Width || in.Instance.Height() != cam.Intrinsics.Height {
			return nil, errors.Wrapf(ErrBufferSize, "instance capture is %dx%d, camera is %dx%d",
				in.Instance.Width(), in.Instance.Height(), cam.Intrinsics.Width, cam.Intrinsics.Height)
		}
		labels, ids = in.Instance.Decode()
	}

	log := logger.WithField("frame_id", in.FrameID)

	type candidate struct {
		actor    Actor
		distance float64
	}
	candidates := make([]candidate, 0, len(in.Actors))
	for _, actor := range in.Actors {
		if actor.ID == in.Ego.ID {
			continue
		}
		d := actor.Transform.Distance(in.Ego.Transform)
		if a.maxDistance > 0 && d >= a.maxDistance {
			continue
		}
		if !cam.InFront(actor.Transform.Location) {
			continue
		}
		candidates = append(candidates, candidate{actor: actor, distance: d})
	}

	objects := make([]ObjectAnnotation, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			objects[i] = annotateActor(p, c.actor, in.Ego, cam, ids, labels, c.distance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "annotation of frame %d aborted", in.FrameID)
	}

	frame := &FrameAnnotation{
		FrameID:   in.FrameID,
		Timestamp: in.Timestamp,
		Objects:   objects,
	}
	log.WithFields(Fields{
		"objects":  len(frame.Objects),
		"boxes_2d": frame.NumBoxes2D(),
	}).Debug("Frame annotated")

	return frame, nil
}

// annotateActor computes the ground truth of a single actor. ids and labels may be nil.
func annotateActor(p *projector, actor, ego Actor, cam Camera, ids *ActorIDGrid, labels *LabelGrid,
	distance float64) ObjectAnnotation {

	tag := actor.Class()
	o := ObjectAnnotation{
		ID:         actor.ID,
		Class:      tag.Name(),
		Tag:        tag,
		TypeID:     actor.TypeID,
		Velocity:   RelativeVelocity(actor.Velocity, ego.Velocity, ego.Transform),
		Box3D:      p.box3D(actor, ego, cam.Transform),
		LightState: actor.Lights,
		Distance:   distance,
	}
	if ids != nil {
		o.Box2D = ExtractBox2D(actor.ID, ids, labels)
	}
	return o
}
