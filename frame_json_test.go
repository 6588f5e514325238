package simlabel

import (
	"io/ioutil"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(id uint64) FrameAnnotation {
	return FrameAnnotation{
		FrameID:    id,
		Timestamp:  12.5 + float64(id),
		SequenceID: "6f1c2d1e-8a5b-4c3d-9e2f-0a1b2c3d4e5f",
		ImagePath:  "/data/run1/" + strconv.FormatUint(id, 10) + ".png",
		Objects: []ObjectAnnotation{
			{
				ID:       42,
				Class:    "car",
				Tag:      14,
				TypeID:   "vehicle.tesla.model3",
				Velocity: r3.Vector{X: -1.25, Y: 0.5, Z: 0},
				Box3D: Box3D{
					Center:     r3.Vector{X: 10.5, Y: -2.25, Z: 0.75},
					Dimensions: Dimensions{Length: 4.5, Width: 2, Height: 1.5},
					Yaw:        0.125,
					Projection: []Segment{{1, 2, 3, 4}, {-5, 6, 7, 800}},
				},
				Box2D:      &Box2D{XMin: 100, YMin: 120, XMax: 180, YMax: 160, Label: 14},
				LightState: LightLowBeam | LightBrake,
				Distance:   10.75,
			},
			{
				ID:         7,
				Class:      "pedestrian",
				Tag:        12,
				TypeID:     "walker.pedestrian.0001",
				Box3D:      Box3D{Dimensions: Dimensions{Length: 0.5, Width: 0.5, Height: 1.8}, Projection: []Segment{}},
				LightState: 0,
				Distance:   30,
			},
		},
	}
}

func TestFrameJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	frame := sampleFrame(123)

	path, err := WriteFrameJSON(dir, frame)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "123.json"), path)

	back, err := ReadFrameJSON(path)
	require.NoError(t, err)
	if diff := cmp.Diff(frame, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameJSONShape(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFrameJSON(dir, sampleFrame(5))
	require.NoError(t, err)

	enc, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(enc, &raw))

	assert.Equal(t, 5.0, raw["frame_id"])
	objects := raw["objects"].([]interface{})
	require.Len(t, objects, 2)

	car := objects[0].(map[string]interface{})
	assert.Equal(t, "vehicle.tesla.model3", car["blueprint_id"])
	assert.Equal(t, map[string]interface{}{"x": -1.25, "y": 0.5, "z": 0.0}, car["velocity"])
	assert.Equal(t, map[string]interface{}{"xmin": 100.0, "ymin": 120.0, "xmax": 180.0, "ymax": 160.0},
		car["bbox_2d"])
	bbox3d := car["bbox_3d"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"length": 4.5, "width": 2.0, "height": 1.5}, bbox3d["dimensions"])
	assert.Equal(t, 0.125, bbox3d["rotation_yaw"])
	lights := car["light_state"].(map[string]interface{})
	assert.Equal(t, true, lights["brake"])
	assert.Equal(t, false, lights["reverse"])
	assert.Equal(t, []interface{}{[]interface{}{1.0, 2.0, 3.0, 4.0}, []interface{}{-5.0, 6.0, 7.0, 800.0}},
		car["projection"])

	walker := objects[1].(map[string]interface{})
	assert.Nil(t, walker["bbox_2d"])
	assert.Contains(t, walker, "bbox_2d")
	assert.Equal(t, []interface{}{}, walker["projection"])
}

func TestFromFrameJSONDir(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint64{10, 2, 33} {
		_, err := WriteFrameJSON(dir, sampleFrame(id))
		require.NoError(t, err)
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	data, err := FromFrameJSONDir(dir)
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, uint64(2), data[0].FrameID)
	assert.Equal(t, uint64(10), data[1].FrameID)
	assert.Equal(t, uint64(33), data[2].FrameID)
}
