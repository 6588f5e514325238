package simlabel

import (
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBox2DBlock(t *testing.T) {
	img := instanceImage(64, 32, instanceBlock{id: 42, tag: 14, rect: image.Rect(20, 10, 23, 13)})
	labels, ids := NewInstanceBuffer(img).Decode()

	box := ExtractBox2D(42, ids, labels)
	require.NotNil(t, box)
	assert.Equal(t, Box2D{XMin: 20, YMin: 10, XMax: 22, YMax: 12, Label: 14}, *box)
	assert.Equal(t, 3, box.Width())
	assert.Equal(t, 3, box.Height())
	assert.Equal(t, image.Rect(20, 10, 23, 13), box.Rect())
}

func TestExtractBox2DAbsent(t *testing.T) {
	img := instanceImage(16, 16, instanceBlock{id: 42, tag: 14, rect: image.Rect(0, 0, 2, 2)})
	labels, ids := NewInstanceBuffer(img).Decode()

	assert.Nil(t, ExtractBox2D(43, ids, labels))
	assert.Nil(t, ExtractBox2D(42+1<<16, ids, labels), "ids above 16 bits are never encoded")
	assert.Nil(t, ExtractBox2D(math.MaxUint32, ids, labels))
}

func TestExtractBox2DIdempotent(t *testing.T) {
	img := instanceImage(32, 32,
		instanceBlock{id: 7, tag: 12, rect: image.Rect(1, 2, 5, 9)},
		instanceBlock{id: 7, tag: 13, rect: image.Rect(10, 20, 11, 30)},
	)
	labels, ids := NewInstanceBuffer(img).Decode()

	first := ExtractBox2D(7, ids, labels)
	second := ExtractBox2D(7, ids, labels)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, Box2D{XMin: 1, YMin: 2, XMax: 10, YMax: 29, Label: 12}, *first,
		"label comes from the first pixel in row-major order")
}

func TestExtractBox2DNilLabels(t *testing.T) {
	img := instanceImage(8, 8, instanceBlock{id: 3, tag: 9, rect: image.Rect(4, 4, 5, 5)})
	_, ids := NewInstanceBuffer(img).Decode()

	box := ExtractBox2D(3, ids, nil)
	require.NotNil(t, box)
	assert.Equal(t, SemanticTag(0), box.Label)
}

func TestExtractAllBoxes2DAgrees(t *testing.T) {
	img := instanceImage(48, 40,
		instanceBlock{id: 1, tag: 14, rect: image.Rect(0, 0, 4, 4)},
		instanceBlock{id: 300, tag: 12, rect: image.Rect(10, 5, 12, 30)},
		instanceBlock{id: 65535, tag: 18, rect: image.Rect(40, 38, 48, 40)},
		instanceBlock{id: 300, tag: 12, rect: image.Rect(30, 2, 31, 3)},
	)
	labels, ids := NewInstanceBuffer(img).Decode()

	all := ExtractAllBoxes2D(ids, labels)
	require.Len(t, all, 3)
	for id, box := range all {
		single := ExtractBox2D(id, ids, labels)
		require.NotNil(t, single, "id %d", id)
		if diff := cmp.Diff(*single, box); diff != "" {
			t.Errorf("id %d mismatch (-single +all):\n%s", id, diff)
		}
	}
	_, hasBackground := all[0]
	assert.False(t, hasBackground)
}
