package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaKey(t *testing.T) {
	ok := map[string]string{
		"avatars/u1.png":           "avatars/u1.png",
		"/programs/p1/thumb.jpg":   "programs/p1/thumb.jpg",
		" mosques/noor.webp ":      "mosques/noor.webp",
		"programs//p1/./thumb.jpg": "programs/p1/thumb.jpg",
	}
	for in, want := range ok {
		got, err := MediaKey(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "/", "avatars", "avatars/", "secrets/key.pem", "avatars/../secrets/key.pem", "../etc/passwd"} {
		_, err := MediaKey(in)
		assert.ErrorIs(t, err, ErrInvalidKey, in)
	}
}
