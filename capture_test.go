package simlabel

import (
	"context"
	"image"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(id uint64) Snapshot {
	return Snapshot{
		FrameID:   id,
		Timestamp: float64(id) * 0.05,
		Camera:    SnapshotCamera{Width: 800, Height: 600, FOV: 90},
		Ego:       testActor(1, r3.Vector{}, 14),
		Actors: []Actor{
			testActor(1, r3.Vector{}, 14),
			testActor(42, r3.Vector{X: 10}, 14),
		},
	}
}

func writeCapture(t *testing.T, dir string, s Snapshot, withInstance bool) {
	t.Helper()
	enc, err := json.Marshal(s)
	require.NoError(t, err)
	name := strconv.FormatUint(s.FrameID, 10)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name+".json"), enc, 0644))

	if withInstance {
		inst := instanceImage(800, 600, instanceBlock{id: 42, tag: 14, rect: image.Rect(380, 280, 420, 320)})
		require.NoError(t, SaveImage(filepath.Join(dir, name+"_inst.png"), inst, 90))
	}
}

func TestLoadCaptures(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, testSnapshot(10), true)
	writeCapture(t, dir, testSnapshot(2), true)
	writeCapture(t, dir, testSnapshot(5), false)
	writeTestImage(t, filepath.Join(dir, "2.jpg"), 8, 6)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "settings.json"), []byte("{}"), 0644))

	captures, err := LoadCaptures(dir)
	require.NoError(t, err)
	require.Len(t, captures, 2)

	assert.Equal(t, uint64(2), captures[0].Snapshot.FrameID)
	assert.Equal(t, filepath.Join(dir, "2.jpg"), captures[0].ImagePath)
	assert.Equal(t, filepath.Join(dir, "2_inst.png"), captures[0].InstancePath)
	assert.Equal(t, uint64(10), captures[1].Snapshot.FrameID)
	assert.Empty(t, captures[1].ImagePath)

	s := captures[0].Snapshot
	assert.Equal(t, uint32(42), s.Actors[1].ID)
	assert.Equal(t, []SemanticTag{14}, s.Actors[1].SemanticTags)
	assert.Equal(t, r3.Vector{X: 10}, s.Actors[1].Transform.Location)
}

func TestCaptureInput(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, testSnapshot(3), true)
	captures, err := LoadCaptures(dir)
	require.NoError(t, err)
	require.Len(t, captures, 1)

	in, err := captures[0].Input()
	require.NoError(t, err)
	require.NotNil(t, in.Camera)
	assert.Equal(t, Intrinsics{Width: 800, Height: 600, FOV: 90}, in.Camera.Intrinsics)
	require.NotNil(t, in.Instance)
	assert.Equal(t, 800, in.Instance.Width())

	a, err := NewAnnotator(testCamera())
	require.NoError(t, err)
	frame, err := a.Annotate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), frame.FrameID)
	require.Len(t, frame.Objects, 1)
	assert.Equal(t, &Box2D{XMin: 380, YMin: 280, XMax: 419, YMax: 319, Label: 14}, frame.Objects[0].Box2D)
}

func TestCaptureWithoutInstance(t *testing.T) {
	_, err := Capture{Snapshot: testSnapshot(1)}.Input()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoInstanceCapture))
}
