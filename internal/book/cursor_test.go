package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCursor(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		result := EncodeCursor(CursorData{})
		assert.Empty(t, result)
	})

	t.Run("with after_id", func(t *testing.T) {
		result := EncodeCursor(CursorData{AfterID: 42})
		// base64 of {"after_id":42}
		assert.Equal(t, "eyJhZnRlcl9pZCI6NDJ9", result)
	})
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty cursor", func(t *testing.T) {
		data, err := DecodeCursor("")
		assert.NoError(t, err)
		assert.Equal(t, CursorData{}, data)
	})

	t.Run("valid cursor", func(t *testing.T) {
		data, err := DecodeCursor("eyJhZnRlcl9pZCI6NDJ9")
		assert.NoError(t, err)
		assert.Equal(t, int64(42), data.AfterID)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		data, err := DecodeCursor("invalid-base64!!!")
		assert.Error(t, err)
		assert.Equal(t, CursorData{}, data)
	})

	t.Run("round trip", func(t *testing.T) {
		data, err := DecodeCursor(EncodeCursor(CursorData{AfterID: 7}))
		assert.NoError(t, err)
		assert.Equal(t, int64(7), data.AfterID)
	})
}
