package simlabel

// Pinhole camera intrinsics.

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidIntrinsics is returned for camera parameters that cannot describe a pinhole camera.
var ErrInvalidIntrinsics = errors.New("invalid camera intrinsics")

// Intrinsics are the image size in pixels and the horizontal field of view in degrees.
type Intrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FOV    float64 `json:"fov"`
}

// NewIntrinsics returns validated intrinsics.
func NewIntrinsics(width, height int, fov float64) (Intrinsics, error) {
	in := Intrinsics{Width: width, Height: height, FOV: fov}
	if err := in.Validate(); err != nil {
		return Intrinsics{}, err
	}
	return in, nil
}

// Validate checks that the image is non-empty and that 0 < FOV < 180.
func (in Intrinsics) Validate() error {
	if in.Width <= 0 || in.Height <= 0 {
		return errors.Wrapf(ErrInvalidIntrinsics, "image size %dx%d", in.Width, in.Height)
	}
	if !(in.FOV > 0 && in.FOV < 180) {
		return errors.Wrapf(ErrInvalidIntrinsics, "field of view %v is outside (0, 180)", in.FOV)
	}
	return nil
}

// Focal is the focal length in pixels.
func (in Intrinsics) Focal() float64 {
	return float64(in.Width) / (2 * math.Tan(in.FOV*math.Pi/360))
}

// Matrix returns the 3x3 projection matrix K. The mirrored variant negates the focal terms and is
// used for points behind the camera. The receiver is assumed to be valid.
func (in Intrinsics) Matrix(mirrored bool) *mat.Dense {
	focal := in.Focal()
	if mirrored {
		focal = -focal
	}
	return mat.NewDense(3, 3, []float64{
		focal, 0, float64(in.Width) / 2,
		0, focal, float64(in.Height) / 2,
		0, 0, 1,
	})
}

// InCanvas reports whether the pixel p lies on the image.
func (in Intrinsics) InCanvas(p r2.Point) bool {
	return PointInCanvas(p, in.Width, in.Height)
}

// BuildProjectionMatrix validates the parameters and returns the (optionally mirrored) K.
func BuildProjectionMatrix(width, height int, fov float64, mirrored bool) (*mat.Dense, error) {
	in, err := NewIntrinsics(width, height, fov)
	if err != nil {
		return nil, err
	}
	return in.Matrix(mirrored), nil
}
