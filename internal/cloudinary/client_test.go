package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New("demo", "key", "secret", "anchor/timetables")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1700000000", "folder": "a/b", "api_key": "key", "file": "x"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=a/b&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadBytes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "anchor/timetables/u1", r.FormValue("folder"))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(f)
		assert.Equal(t, "timetable.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4", string(body))
		_, _ = w.Write([]byte(`{"public_id":"anchor/timetables/u1/abc","secure_url":"https://res.cloudinary.com/x.pdf","format":"pdf","bytes":8}`))
	})

	res, err := c.UploadBytes(context.Background(), []byte("%PDF-1.4"), "timetable.pdf", "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/x.pdf", res.SecureURL)
	assert.Equal(t, "pdf", res.Format)
	assert.Equal(t, 8, res.Bytes)
}

func TestUploadDataURLError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "data:image/png;base64,AAAA", r.FormValue("file"))
		http.Error(w, `{"error":{"message":"Invalid image file"}}`, http.StatusBadRequest)
	})

	_, err := c.UploadDataURL(context.Background(), "data:image/png;base64,AAAA", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed (400)")
}

func TestFolder(t *testing.T) {
	c := New("demo", "k", "s", "")
	assert.Equal(t, "u1", c.folder("u1"))
	c.Folder = "root"
	assert.Equal(t, "root", c.folder(""))
	assert.Equal(t, "root/u1", c.folder("u1"))
}
