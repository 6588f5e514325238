package simlabel

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Edges is the wireframe topology of a bounding volume as pairs of indices into the vertex order
// of BoundingVolume.LocalVertices.
var Edges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{0, 4}, {4, 5}, {5, 1}, {5, 7},
	{7, 6}, {6, 4}, {6, 2}, {7, 3},
}

// Segment is a projected edge as x1, y1, x2, y2 in pixels.
type Segment [4]int

// Start is the first endpoint.
func (s Segment) Start() image.Point { return image.Pt(s[0], s[1]) }

// End is the second endpoint.
func (s Segment) End() image.Point { return image.Pt(s[2], s[3]) }

// Box3D is an actor's 3D box relative to the ego vehicle, plus its wireframe in the image.
type Box3D struct {
	Center     r3.Vector  `json:"center"`       // Ego frame, metres.
	Dimensions Dimensions `json:"dimensions"`   // Always non-negative.
	Yaw        float64    `json:"rotation_yaw"` // Target yaw minus ego yaw, radians.
	Projection []Segment  `json:"projection"`   // Surviving edges; empty, never nil.
}

// ProjectBox3D computes the ego-relative box of target and projects its edges into cam.
func ProjectBox3D(target, ego Actor, cam Camera) (Box3D, error) {
	p, err := newProjector(cam.Intrinsics)
	if err != nil {
		return Box3D{}, err
	}
	return p.box3D(target, ego, cam.Transform), nil
}

// projector holds the normal and mirrored projection matrices of one camera.
type projector struct {
	intrinsics Intrinsics
	k          *mat.Dense
	kBehind    *mat.Dense
}

func newProjector(in Intrinsics) (*projector, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &projector{
		intrinsics: in,
		k:          in.Matrix(false),
		kBehind:    in.Matrix(true),
	}, nil
}

func (p *projector) box3D(target, ego Actor, cam Transform) Box3D {
	egoFrame := Transform{
		Location: ego.Volume.Anchor(ego.Transform),
		Rotation: ego.Transform.Rotation,
	}

	return Box3D{
		Center:     egoFrame.InverseTransformPoint(target.Volume.Anchor(target.Transform)),
		Dimensions: target.Volume.Dimensions(),
		Yaw:        degToRad(target.Transform.Rotation.Yaw - ego.Transform.Rotation.Yaw),
		Projection: p.edges(target.Volume.WorldVertices(target.Transform), cam),
	}
}

// edges projects the wireframe of verts. An edge is kept if at least one endpoint is in front of
// the camera and lands on the canvas. Endpoints behind the camera are re-projected with the
// mirrored matrix so that edges crossing the camera plane keep their direction.
func (p *projector) edges(verts [8]r3.Vector, cam Transform) []Segment {
	w2c := cam.InverseMatrix()
	forward := cam.ForwardVector()

	var (
		pts     [8]r2.Point
		ok      [8]bool
		visible [8]bool
	)
	for i, v := range verts {
		c := WorldToCamera(v, w2c)
		k := intrinsicsFor(v, forward, cam.Location, p.k, p.kBehind)
		pts[i], ok[i] = ProjectCameraPoint(c, k)
		if k == p.k {
			visible[i] = ok[i] && p.intrinsics.InCanvas(pts[i])
		}
	}

	segments := make([]Segment, 0, len(Edges))
	for _, e := range Edges {
		a, b := e[0], e[1]
		// An endpoint on the camera plane has no image position, so the edge cannot be drawn.
		if !ok[a] || !ok[b] || (!visible[a] && !visible[b]) {
			continue
		}
		segments = append(segments, Segment{
			pixel(pts[a].X), pixel(pts[a].Y), pixel(pts[b].X), pixel(pts[b].Y),
		})
	}
	return segments
}

// intrinsicsFor selects k for a vertex in front of the camera and kBehind otherwise.
func intrinsicsFor(vertex, forward, camLoc r3.Vector, k, kBehind *mat.Dense) *mat.Dense {
	if forward.Dot(vertex.Sub(camLoc)) > 0 {
		return k
	}
	return kBehind
}

// pixel truncates a coordinate towards zero, saturating at the int32 range.
func pixel(v float64) int {
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
}
