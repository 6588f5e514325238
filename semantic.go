package simlabel

import (
	"image/color"
	"strconv"
)

// SemanticTag is a semantic class id as rendered into the R channel of the instance buffer.
type SemanticTag uint32

type semanticClass struct {
	name  string
	color color.RGBA
}

// semanticClasses maps the simulator's class ids to names and palette colours.
var semanticClasses = [...]semanticClass{
	{"unlabelled", color.RGBA{0, 0, 0, 255}},
	{"road", color.RGBA{128, 64, 0, 255}},
	{"sidewalk", color.RGBA{244, 35, 232, 255}},
	{"building", color.RGBA{70, 70, 70, 255}},
	{"wall", color.RGBA{102, 102, 156, 255}},
	{"fence", color.RGBA{190, 153, 153, 255}},
	{"pole", color.RGBA{153, 153, 153, 255}},
	{"traffic light", color.RGBA{250, 170, 30, 255}},
	{"traffic sign", color.RGBA{220, 220, 0, 255}},
	{"vegetation", color.RGBA{107, 142, 35, 255}},
	{"terrain", color.RGBA{152, 251, 152, 255}},
	{"sky", color.RGBA{70, 130, 180, 255}},
	{"pedestrian", color.RGBA{220, 20, 60, 255}},
	{"rider", color.RGBA{255, 0, 0, 255}},
	{"car", color.RGBA{0, 0, 142, 255}},
	{"truck", color.RGBA{0, 0, 70, 255}},
	{"bus", color.RGBA{0, 60, 100, 255}},
	{"train", color.RGBA{0, 80, 100, 255}},
	{"motorcycle", color.RGBA{0, 0, 230, 255}},
	{"bicycle", color.RGBA{119, 11, 32, 255}},
	{"static", color.RGBA{110, 190, 160, 255}},
	{"dynamic", color.RGBA{170, 120, 50, 255}},
	{"other", color.RGBA{55, 90, 80, 255}},
	{"water", color.RGBA{45, 60, 150, 255}},
	{"road line", color.RGBA{157, 234, 50, 255}},
	{"ground", color.RGBA{81, 0, 81, 255}},
	{"bridge", color.RGBA{150, 100, 100, 255}},
	{"rail track", color.RGBA{230, 150, 140, 255}},
	{"guard rail", color.RGBA{180, 165, 180, 255}},
}

// NumSemanticTags is the number of known classes.
const NumSemanticTags = len(semanticClasses)

// Valid reports whether t is a known class.
func (t SemanticTag) Valid() bool {
	return int(t) < NumSemanticTags
}

// Name is the class name, or "class_<id>" for unknown ids.
func (t SemanticTag) Name() string {
	if !t.Valid() {
		return "class_" + strconv.Itoa(int(t))
	}
	return semanticClasses[t].name
}

// Color is the palette colour of the class. Unknown ids are white.
func (t SemanticTag) Color() color.RGBA {
	if !t.Valid() {
		return color.RGBA{255, 255, 255, 255}
	}
	return semanticClasses[t].color
}

func (t SemanticTag) String() string {
	return t.Name()
}

// TagByName returns the class with the given name.
func TagByName(name string) (SemanticTag, bool) {
	for i, c := range semanticClasses {
		if c.name == name {
			return SemanticTag(i), true
		}
	}
	return 0, false
}
