package simlabel

// Debug rendering of annotations onto camera images.

import (
	"image"

	"github.com/fogleman/gg"
)

const (
	renderLineWidth = 2
	renderLabelGap  = 3
)

// RenderBoxes2D draws the 2D box and class name of every visible object onto a copy of img.
func RenderBoxes2D(img image.Image, frame FrameAnnotation) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(renderLineWidth)

	for _, o := range frame.Objects {
		if o.Box2D == nil {
			continue
		}
		b := o.Box2D
		dc.SetColor(o.Tag.Color())
		dc.DrawRectangle(float64(b.XMin), float64(b.YMin), float64(b.Width()), float64(b.Height()))
		dc.Stroke()
		dc.DrawStringAnchored(o.Class, float64(b.XMin), float64(b.YMin)-renderLabelGap, 0, 0)
	}

	return dc.Image()
}

// RenderBoxes3D draws the projected wireframe and class name of every object onto a copy of img.
// The label is placed at the mean of the segment start points.
func RenderBoxes3D(img image.Image, frame FrameAnnotation) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(renderLineWidth)

	for _, o := range frame.Objects {
		segments := o.Box3D.Projection
		if len(segments) == 0 {
			continue
		}

		dc.SetColor(o.Tag.Color())
		var sx, sy float64
		for _, s := range segments {
			dc.DrawLine(float64(s[0]), float64(s[1]), float64(s[2]), float64(s[3]))
			sx += float64(s[0])
			sy += float64(s[1])
		}
		dc.Stroke()

		n := float64(len(segments))
		dc.DrawStringAnchored(o.Class, sx/n, sy/n-renderLabelGap, 0.5, 0)
	}

	return dc.Image()
}
