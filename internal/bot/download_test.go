package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

// newFileServer serves the kind of responses Telegram's file storage returns.
func newFileServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/file/photo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngMagic)
	})
	mux.HandleFunc("/file/photo.webp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("RIFF"))
	})
	mux.HandleFunc("/file/untyped", func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write(pngMagic)
	})
	mux.HandleFunc("/file/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not an image</html>"))
	})
	mux.HandleFunc("/file/big.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/file/chunked.jpg", func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body forces chunked encoding with no Content-Length
		w.Header().Set("Content-Type", "image/jpeg")
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/file/slow.jpg", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/file/gone.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file expired", http.StatusNotFound)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestImageDownloader_DownloadFromURL(t *testing.T) {
	ts := newFileServer(t)

	tests := []struct {
		name    string
		path    string
		maxSize int64
		want    []byte
		wantErr string
	}{
		{name: "png", path: "/file/photo.png", want: pngMagic},
		{name: "telegram octet-stream", path: "/file/photo.webp", want: []byte("RIFF")},
		{name: "no content type", path: "/file/untyped", want: pngMagic},
		{name: "html page", path: "/file/page.html", wantErr: "invalid content type: expected image/*, got text/html"},
		{name: "not found", path: "/file/gone.jpg", wantErr: "download failed: status 404"},
		{name: "content length over limit", path: "/file/big.jpg", maxSize: 50, wantErr: "image too large: 100 bytes exceeds limit of 50 bytes"},
		{name: "chunked body over limit", path: "/file/chunked.jpg", maxSize: 50, wantErr: "image too large: exceeds limit of 50 bytes"},
		{name: "exactly at limit", path: "/file/big.jpg", maxSize: 100, want: []byte(strings.Repeat("x", 100))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewImageDownloader()
			if tt.maxSize > 0 {
				d.WithMaxSize(tt.maxSize)
			}

			data, err := d.DownloadFromURL(context.Background(), ts.URL+tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestImageDownloader_Timeout(t *testing.T) {
	ts := newFileServer(t)

	start := time.Now()
	_, err := NewImageDownloader().WithTimeout(100*time.Millisecond).
		DownloadFromURL(context.Background(), ts.URL+"/file/slow.jpg")

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to download image: "))
	assert.Less(t, time.Since(start), time.Second)
}

func TestImageDownloader_ContextCanceled(t *testing.T) {
	ts := newFileServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImageDownloader().DownloadFromURL(ctx, ts.URL+"/file/photo.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageDownloader_DownloadFromTelegramFileID(t *testing.T) {
	ts := newFileServer(t)

	var asked []string
	resolve := func(fileID string) (string, error) {
		asked = append(asked, fileID)
		return ts.URL + "/file/" + fileID, nil
	}

	data, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), resolve, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, pngMagic, data)
	assert.Equal(t, []string{"photo.png"}, asked)

	failing := func(string) (string, error) { return "", errors.New("file is too big") }
	_, err = NewImageDownloader().DownloadFromTelegramFileID(context.Background(), failing, "huge")
	require.Error(t, err)
	assert.Equal(t, "failed to get file URL: file is too big", err.Error())
}
