package metadata

import (
	"path/filepath"
	"testing"

	"photoindex/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(identity string, width, height int, format string) types.ImageRecord {
	return types.ImageRecord{
		Identity:    identity,
		SizeKB:      12.5,
		Width:       width,
		Height:      height,
		Format:      format,
		Mode:        "RGB",
		ExtractedAt: "2025-06-01T10:00:00Z",
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := openTestStore(t)

	rec := record("a.jpg", 1920, 1080, "JPEG")
	rec.Exif = map[string]string{"Make": "Canon", "DateTimeOriginal": "2024:01:02 10:00:00"}
	require.NoError(t, s.Upsert(rec))

	got, found, err := s.Get("a.jpg")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "a.jpg", got.Identity)
	assert.Equal(t, 1920, got.Width)
	assert.Equal(t, 1080, got.Height)
	assert.Equal(t, "JPEG", got.Format)
	assert.InDelta(t, 12.5, got.SizeKB, 1e-9)
	assert.Equal(t, "Canon", got.Exif["Make"])
	assert.Equal(t, "2024:01:02 10:00:00", got.Exif["DateTimeOriginal"])
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.Get("nope.jpg")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertSupersedesRecord(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Upsert(record("a.jpg", 800, 600, "PNG")))
	require.NoError(t, s.Upsert(record("a.jpg", 1920, 1080, "JPEG")))

	got, found, err := s.Get("a.jpg")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1920, got.Width)
	assert.Equal(t, "JPEG", got.Format)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestColumnUnionAcrossRecords(t *testing.T) {
	s := openTestStore(t)

	withMake := record("a.jpg", 100, 100, "JPEG")
	withMake.Exif = map[string]string{"Make": "Nikon"}
	require.NoError(t, s.Upsert(withMake))

	withISO := record("b.jpg", 100, 100, "JPEG")
	withISO.Exif = map[string]string{"ISO": "400"}
	require.NoError(t, s.Upsert(withISO))

	// A record missing a column present in other rows simply has the
	// field absent.
	a, _, err := s.Get("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Nikon", a.Exif["Make"])
	_, hasISO := a.Exif["ISO"]
	assert.False(t, hasISO)

	b, _, err := s.Get("b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "400", b.Exif["ISO"])
}

func TestFilterMinWidth(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Upsert(record("small.jpg", 640, 480, "JPEG")))
	require.NoError(t, s.Upsert(record("large.jpg", 1920, 1080, "JPEG")))
	noDims := record("broken.jpg", 0, 0, "")
	require.NoError(t, s.Upsert(noDims))

	ids, err := s.Filter(map[string]interface{}{"min_width": 1000})
	require.NoError(t, err)
	assert.Equal(t, []string{"large.jpg"}, ids)
}

func TestFilterFormatCaseInsensitive(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Upsert(record("a.jpg", 100, 100, "JPEG")))
	require.NoError(t, s.Upsert(record("b.png", 100, 100, "PNG")))

	ids, err := s.Filter(map[string]interface{}{"format": "jpeg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, ids)
}

func TestFilterConjunction(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Upsert(record("a.jpg", 1920, 1080, "JPEG")))
	require.NoError(t, s.Upsert(record("b.jpg", 1920, 400, "JPEG")))
	require.NoError(t, s.Upsert(record("c.png", 1920, 1080, "PNG")))

	ids, err := s.Filter(map[string]interface{}{
		"min_width":  1000,
		"min_height": 1000,
		"format":     "JPEG",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, ids)
}

func TestFilterArbitraryKeyExactMatch(t *testing.T) {
	s := openTestStore(t)

	canon := record("a.jpg", 100, 100, "JPEG")
	canon.Exif = map[string]string{"Make": "Canon"}
	require.NoError(t, s.Upsert(canon))

	nikon := record("b.jpg", 100, 100, "JPEG")
	nikon.Exif = map[string]string{"Make": "Nikon"}
	require.NoError(t, s.Upsert(nikon))

	// c.jpg has no Make field at all: excluded.
	require.NoError(t, s.Upsert(record("c.jpg", 100, 100, "JPEG")))

	ids, err := s.Filter(map[string]interface{}{"Make": "Canon"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, ids)
}

func TestFilterUnknownFieldMatchesNothing(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Upsert(record("a.jpg", 100, 100, "JPEG")))

	ids, err := s.Filter(map[string]interface{}{"NoSuchField": "x"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFilterResultsInInsertionOrder(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"z.jpg", "m.jpg", "a.jpg"} {
		require.NoError(t, s.Upsert(record(id, 500, 500, "JPEG")))
	}

	ids, err := s.Filter(map[string]interface{}{"min_width": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"z.jpg", "m.jpg", "a.jpg"}, ids)
}

func TestIdentitiesInsertionOrder(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		require.NoError(t, s.Upsert(record(id, 10, 10, "JPEG")))
	}

	ids, err := s.Identities()
	require.NoError(t, err)
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b.jpg"}, ids)
}
