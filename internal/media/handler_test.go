package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	objects map[string]bool
	err     error
}

func (f fakeStore) ObjectExists(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.objects[key], nil
}

func (f fakeStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://media.example.com/" + key + "?sig=1", nil
}

func get(store Store, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/media/*path", NewHandler(store, nil).Get)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetRedirectsToSignedURL(t *testing.T) {
	store := fakeStore{objects: map[string]bool{"programs/p1/thumb.jpg": true}}
	w := get(store, "/media/programs/p1/thumb.jpg")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://media.example.com/programs/p1/thumb.jpg?sig=1", w.Header().Get("Location"))
}

func TestGetMissingAndInvalid(t *testing.T) {
	store := fakeStore{objects: map[string]bool{}}
	assert.Equal(t, http.StatusNotFound, get(store, "/media/avatars/nobody.png").Code)
	assert.Equal(t, http.StatusNotFound, get(store, "/media/private/keys.pem").Code)
}

func TestGetStorageErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, get(fakeStore{err: errors.New("timeout")}, "/media/avatars/a.png").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(nil, "/media/avatars/a.png").Code)
}
