package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_EncodeDecode(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), ID: "0b9c1f3e-6a1e-4c1d-9c55-2d6f5b1f7a10"}

	s, err := EncodeCursor(in)
	require.NoError(t, err)
	assert.NotContains(t, s, "=")

	out, err := DecodeCursor(s)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("***")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor("bm90LWpzb24") // "not-json"
	assert.ErrorIs(t, err, ErrInvalidCursor)

	bad, err := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: "not-a-uuid"})
	require.NoError(t, err)
	_, err = DecodeCursor(bad)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor("eyJpIjoiMGI5YzFmM2UtNmExZS00YzFkLTljNTUtMmQ2ZjViMWY3YTEwIn0") // без t
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursor_MicrosecondPrecision(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	s, err := EncodeCursor(Cursor{CreatedAt: ts, ID: "0b9c1f3e-6a1e-4c1d-9c55-2d6f5b1f7a10"})
	require.NoError(t, err)

	out, err := DecodeCursor(s)
	require.NoError(t, err)
	assert.Equal(t, ts.Truncate(time.Microsecond), out.CreatedAt)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, 100, clampLimit(1000))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%amy%", likePattern("amy"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}
