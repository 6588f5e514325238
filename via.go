package simlabel

// VGG Image Annotator (VIA) review projects.

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
)

// VIAShape describes the shape of an annotation.
type VIAShape struct {
	Name   string `json:"name"`
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
}

// VIARegionAnnotation is a single region annotation for a particular image in a VIA file.
type VIARegionAnnotation struct {
	Attributes map[string]string `json:"region_attributes"`
	Shape      VIAShape          `json:"shape_attributes"`
}

// VIAAnnotatedFile defines the VIA annotation structure for a single file.
type VIAAnnotatedFile struct {
	Annotations []VIARegionAnnotation `json:"regions"`
	Attributes  map[string]string     `json:"file_attributes"`
	FilePath    string                `json:"filename"`
	Size        int64                 `json:"size"`
}

// VIAOptionsAttribute defines attributes of type "radio" or "dropdown".
type VIAOptionsAttribute struct {
	Type           string            `json:"type"` // "radio" or "dropdown"
	Description    string            `json:"description"`
	Options        map[string]string `json:"options"`
	DefaultOptions map[string]bool   `json:"default_options"`
}

// VIATextAttribute defines attributes of type "text".
type VIATextAttribute struct {
	Type         string `json:"type"` // "text"
	Description  string `json:"description"`
	DefaultValue string `json:"default_value"`
}

// VIAAttributes defines the VIA attribute metadata.
type VIAAttributes struct {
	Region map[string]interface{} `json:"region"`
	File   map[string]interface{} `json:"file"`
}

// VIAProject defines the VIA project structure.
type VIAProject struct {
	Attributes    VIAAttributes               `json:"_via_attributes"`
	ImageMetadata map[string]VIAAnnotatedFile `json:"_via_img_metadata"`
	// Must exist for VIA to load the project. Default values will be used.
	Settings struct{} `json:"_via_settings"`
}

// Attribute keys.
const (
	viaClassAttribute = "Class"
	viaActorAttribute = "ActorID"
	viaFrameAttribute = "FrameID"
)

// ToVIA converts the frames with a camera image to a VIA project with one rect region per 2D box.
// Frames without an image are logged and skipped.
func ToVIA(data FrameAnnotations, images ImageSource) VIAProject {
	if images == nil {
		images = FrameImagePath
	}

	viaData := VIAProject{
		Attributes: VIAAttributes{
			Region: map[string]interface{}{
				viaActorAttribute: VIATextAttribute{Type: "text", Description: "Simulator actor id"},
			},
			File: map[string]interface{}{
				viaFrameAttribute: VIATextAttribute{Type: "text", Description: "Simulation frame"},
			},
		},
		ImageMetadata: make(map[string]VIAAnnotatedFile, len(data)),
	}
	classes := VIAOptionsAttribute{
		Type:           "radio",
		Options:        make(map[string]string),
		DefaultOptions: make(map[string]bool),
	}

	for _, frame := range data {
		imagePath, err := images(frame)
		if err != nil {
			logger.WithField("frame_id", frame.FrameID).Warnf("Skipping frame: %v", err)
			continue
		}

		viaFile := VIAAnnotatedFile{
			Annotations: make([]VIARegionAnnotation, 0, frame.NumBoxes2D()),
			Attributes:  map[string]string{viaFrameAttribute: strconv.FormatUint(frame.FrameID, 10)},
			FilePath:    imagePath,
		}
		if info, err := os.Stat(imagePath); err == nil {
			viaFile.Size = info.Size()
		}

		for _, o := range frame.Objects {
			if o.Box2D == nil {
				continue
			}
			viaFile.Annotations = append(viaFile.Annotations, VIARegionAnnotation{
				Attributes: map[string]string{
					viaClassAttribute: o.Class,
					viaActorAttribute: strconv.FormatUint(uint64(o.ID), 10),
				},
				Shape: VIAShape{
					Name:   "rect",
					X:      int32(o.Box2D.XMin),
					Y:      int32(o.Box2D.YMin),
					Width:  int32(o.Box2D.Width()),
					Height: int32(o.Box2D.Height()),
				},
			})

			// Add the class value to the attribute metadata.
			classes.Options[o.Class] = ""
		}

		// VIA keys its metadata by file name and size.
		viaData.ImageMetadata[filepath.Base(imagePath)+strconv.FormatInt(viaFile.Size, 10)] = viaFile
	}
	viaData.Attributes.Region[viaClassAttribute] = classes

	return viaData
}

// FromVIA reads a (reviewed) VIA project and converts its regions back to frame annotations with
// class, actor id and 2D box. Frames are identified by the FrameID file attribute.
func FromVIA(path string) (FrameAnnotations, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var viaData VIAProject
	if err := json.Unmarshal(enc, &viaData); err != nil {
		return nil, fmt.Errorf("failed to parse VIA input from %q: %v", path, err)
	}

	data := make(FrameAnnotations, 0, len(viaData.ImageMetadata))
	for _, viaFile := range viaData.ImageMetadata {
		log := logger.WithField("path", viaFile.FilePath)

		frameID, err := strconv.ParseUint(viaFile.Attributes[viaFrameAttribute], 10, 64)
		if err != nil {
			log.Warnf("Missing frame id, skipping: %v", err)
			continue
		}

		frame := FrameAnnotation{
			FrameID:   frameID,
			ImagePath: viaFile.FilePath,
			Objects:   make([]ObjectAnnotation, 0, len(viaFile.Annotations)),
		}
		for _, a := range viaFile.Annotations {
			if a.Shape.Name != "rect" || a.Shape.Width <= 0 || a.Shape.Height <= 0 {
				log.Warnf("Skipping region of shape %q", a.Shape.Name)
				continue
			}

			o := ObjectAnnotation{Class: a.Attributes[viaClassAttribute]}
			if tag, ok := TagByName(o.Class); ok {
				o.Tag = tag
			}
			if id, err := strconv.ParseUint(a.Attributes[viaActorAttribute], 10, 32); err == nil {
				o.ID = uint32(id)
			}
			o.Box2D = &Box2D{
				XMin:  int(a.Shape.X),
				YMin:  int(a.Shape.Y),
				XMax:  int(a.Shape.X + a.Shape.Width - 1),
				YMax:  int(a.Shape.Y + a.Shape.Height - 1),
				Label: o.Tag,
			}
			o.Box3D.Projection = []Segment{}
			frame.Objects = append(frame.Objects, o)
		}
		data = append(data, frame)
	}
	data.SortByFrame()

	return data, nil
}

// WriteVIA writes the VIA project data to outFile.
func WriteVIA(outFile string, data VIAProject) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", outFile, err)
	}
	return nil
}
