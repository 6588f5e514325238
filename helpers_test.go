package simlabel

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/golang/geo/r3"
)

func TestMain(m *testing.M) {
	SetLogger(nil)
	os.Exit(m.Run())
}

// testCamera is an 800x600 camera with a 90 degree field of view at the origin, looking along +X.
func testCamera() Camera {
	return Camera{Intrinsics: Intrinsics{Width: 800, Height: 600, FOV: 90}}
}

func testActor(id uint32, loc r3.Vector, tag SemanticTag) Actor {
	return Actor{
		ID:           id,
		TypeID:       "vehicle.test.model",
		SemanticTags: []SemanticTag{tag},
		Transform:    Transform{Location: loc},
		Volume:       BoundingVolume{Extent: r3.Vector{X: 1, Y: 1, Z: 1}},
	}
}

// instanceImage returns a w x h instance capture with the pixels in each rect set to the given
// actor id and class.
func instanceImage(w, h int, blocks ...instanceBlock) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	for _, b := range blocks {
		hi, lo := PackActorID(b.id)
		for y := b.rect.Min.Y; y < b.rect.Max.Y; y++ {
			for x := b.rect.Min.X; x < b.rect.Max.X; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(b.tag), G: lo, B: hi, A: 255})
			}
		}
	}
	return img
}

type instanceBlock struct {
	id   uint16
	tag  SemanticTag
	rect image.Rectangle
}
