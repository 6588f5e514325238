package simlabel

// Decoding of instance segmentation captures.

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// ErrBufferSize is returned when a raw sensor buffer does not match the declared image size.
var ErrBufferSize = errors.New("raw buffer size does not match the image size")

// InstanceBuffer is an instance segmentation frame. Each pixel carries the semantic class in R and
// the actor id in the (B, G) pair as G + B<<8.
type InstanceBuffer struct {
	img *image.NRGBA
}

// NewInstanceBuffer wraps img. Non-NRGBA images are converted.
func NewInstanceBuffer(img image.Image) *InstanceBuffer {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return &InstanceBuffer{img: nrgba}
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return &InstanceBuffer{img: nrgba}
}

// NewInstanceBufferFromBGRA builds a buffer from the simulator's raw BGRA byte layout.
func NewInstanceBufferFromBGRA(raw []byte, width, height int) (*InstanceBuffer, error) {
	if width <= 0 || height <= 0 || len(raw) != width*height*4 {
		return nil, errors.Wrapf(ErrBufferSize, "got %d bytes for %dx%d", len(raw), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(raw); i += 4 {
		img.Pix[i] = raw[i+2]
		img.Pix[i+1] = raw[i+1]
		img.Pix[i+2] = raw[i]
		img.Pix[i+3] = raw[i+3]
	}
	return &InstanceBuffer{img: img}, nil
}

// LoadInstanceBuffer reads an instance capture from an image file. The file must be losslessly
// encoded (PNG) for the ids to survive.
func LoadInstanceBuffer(path string) (*InstanceBuffer, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load instance capture %q", path)
	}
	return NewInstanceBuffer(img), nil
}

// Image returns the underlying image. It must not be modified while grids decoded from it are in
// use.
func (b *InstanceBuffer) Image() *image.NRGBA {
	return b.img
}

// Width is the image width in pixels.
func (b *InstanceBuffer) Width() int {
	return b.img.Rect.Dx()
}

// Height is the image height in pixels.
func (b *InstanceBuffer) Height() int {
	return b.img.Rect.Dy()
}

// Decode splits the buffer into a semantic label grid and an actor id grid.
func (b *InstanceBuffer) Decode() (*LabelGrid, *ActorIDGrid) {
	w, h := b.Width(), b.Height()
	labels := &LabelGrid{width: w, height: h, pix: make([]SemanticTag, w*h)}
	ids := &ActorIDGrid{width: w, height: h, pix: make([]uint16, w*h)}

	for y := 0; y < h; y++ {
		row := b.img.Pix[y*b.img.Stride : y*b.img.Stride+4*w]
		for x := 0; x < w; x++ {
			px := row[4*x : 4*x+4]
			labels.pix[y*w+x] = SemanticTag(px[0])
			ids.pix[y*w+x] = UnpackActorID(px[2], px[1])
		}
	}
	return labels, ids
}

// PackActorID splits an actor id into its B and G channel values.
func PackActorID(id uint16) (b, g uint8) {
	return uint8(id >> 8), uint8(id)
}

// UnpackActorID combines the B and G channel values into an actor id.
func UnpackActorID(b, g uint8) uint16 {
	return uint16(g) | uint16(b)<<8
}

// LabelGrid holds one semantic class per pixel, row-major.
type LabelGrid struct {
	width, height int
	pix           []SemanticTag
}

// At returns the class at pixel (x, y).
func (g *LabelGrid) At(x, y int) SemanticTag {
	return g.pix[y*g.width+x]
}

// Width is the grid width in pixels.
func (g *LabelGrid) Width() int { return g.width }

// Height is the grid height in pixels.
func (g *LabelGrid) Height() int { return g.height }

// ActorIDGrid holds one actor id per pixel, row-major. Zero means no actor.
type ActorIDGrid struct {
	width, height int
	pix           []uint16
}

// At returns the actor id at pixel (x, y).
func (g *ActorIDGrid) At(x, y int) uint16 {
	return g.pix[y*g.width+x]
}

// Width is the grid width in pixels.
func (g *ActorIDGrid) Width() int { return g.width }

// Height is the grid height in pixels.
func (g *ActorIDGrid) Height() int { return g.height }
