package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	e := NewHashingEmbedder(128)

	a, err := e.Embed(context.Background(), "mountain landscape at sunset")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "mountain landscape at sunset")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
}

func TestEmbedIsUnitLength(t *testing.T) {
	e := NewHashingEmbedder(384)

	vec, err := e.Embed(context.Background(), "some text with several words")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e := NewHashingEmbedder(64)

	vec, err := e.Embed(context.Background(), "   \n\t ")
	require.NoError(t, err)
	require.Len(t, vec, 64)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedDifferentTextsDiffer(t *testing.T) {
	e := NewHashingEmbedder(384)

	a, err := e.Embed(context.Background(), "a photo of a cat")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "quarterly financial report")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEmbedHonorsCancelledContext(t *testing.T) {
	e := NewHashingEmbedder(64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, "text")
	assert.Error(t, err)
}

func TestDefaultDimensions(t *testing.T) {
	assert.Equal(t, 384, NewHashingEmbedder(0).Dimensions())
	assert.Equal(t, 512, NewHashingEmbedder(512).Dimensions())
}
