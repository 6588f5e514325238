package simlabel

import (
	"image"
	"math"
)

// Box2D is a pixel-space, axis-aligned box with inclusive bounds.
type Box2D struct {
	XMin  int         `json:"xmin"`
	YMin  int         `json:"ymin"`
	XMax  int         `json:"xmax"`
	YMax  int         `json:"ymax"`
	Label SemanticTag `json:"-"`
}

// Width is the number of pixel columns covered by b.
func (b Box2D) Width() int {
	return b.XMax - b.XMin + 1
}

// Height is the number of pixel rows covered by b.
func (b Box2D) Height() int {
	return b.YMax - b.YMin + 1
}

// Rect converts b to a half-open image.Rectangle.
func (b Box2D) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1)
}

// ExtractBox2D returns the tight box around all pixels of ids equal to actorID, or nil if the
// actor is not visible. The label is read from labels at the first matching pixel in row-major
// order; labels may be nil.
func ExtractBox2D(actorID uint32, ids *ActorIDGrid, labels *LabelGrid) *Box2D {
	if actorID > math.MaxUint16 {
		return nil
	}
	want := uint16(actorID)

	var box *Box2D
	for y := 0; y < ids.height; y++ {
		row := ids.pix[y*ids.width : (y+1)*ids.width]
		for x, id := range row {
			if id != want {
				continue
			}
			if box == nil {
				box = &Box2D{XMin: x, YMin: y, XMax: x, YMax: y}
				if labels != nil {
					box.Label = labels.At(x, y)
				}
				continue
			}
			box.grow(x, y)
		}
	}
	return box
}

// ExtractAllBoxes2D computes the box of every actor id present in ids in a single pass. Pixels with
// id zero belong to no actor and are skipped.
func ExtractAllBoxes2D(ids *ActorIDGrid, labels *LabelGrid) map[uint32]Box2D {
	boxes := make(map[uint32]Box2D)
	for y := 0; y < ids.height; y++ {
		row := ids.pix[y*ids.width : (y+1)*ids.width]
		for x, id := range row {
			if id == 0 {
				continue
			}
			box, ok := boxes[uint32(id)]
			if !ok {
				box = Box2D{XMin: x, YMin: y, XMax: x, YMax: y}
				if labels != nil {
					box.Label = labels.At(x, y)
				}
			} else {
				box.grow(x, y)
			}
			boxes[uint32(id)] = box
		}
	}
	return boxes
}

func (b *Box2D) grow(x, y int) {
	if x < b.XMin {
		b.XMin = x
	}
	if x > b.XMax {
		b.XMax = x
	}
	if y < b.YMin {
		b.YMin = y
	}
	if y > b.YMax {
		b.YMax = y
	}
}
