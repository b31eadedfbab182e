package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

const testModel = "facebook/detr-resnet-50"

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	return img
}

func newTestClient(t *testing.T, url string, retries int) (*Client, string) {
	dir := t.TempDir()
	return NewClient(ClientOpts{
		BaseURL: url,
		Token:   "hf_test",
		Model:   testModel,
		TempDir: dir,
		Policy:  config.CallPolicy{Timeout: 5 * time.Second, Retries: retries, RetryWait: time.Millisecond},
	}), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged image was not removed")
}

func TestDetect_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/"+testModel, r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, err = jpeg.Decode(bytes.NewReader(body))
		assert.NoError(t, err, "request body should be a JPEG")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"score": 0.98, "label": "bottle", "box": {"xmin": 1, "ymin": 2, "xmax": 30, "ymax": 40}},
			{"score": 0.51, "label": "cup", "box": {"xmin": 5, "ymin": 5, "xmax": 9, "ymax": 9}},
			{"label": "fork"},
			{"score": 0.8}
		]`))
	}))
	defer ts.Close()

	client, dir := newTestClient(t, ts.URL, 0)

	detections, err := client.Detect(context.Background(), testImage())
	require.NoError(t, err)
	require.Len(t, detections, 4)

	assert.Equal(t, "bottle", detections[0].Label)
	assert.Equal(t, 0.98, detections[0].Score)
	assert.Equal(t, &Box{XMin: 1, YMin: 2, XMax: 30, YMax: 40}, detections[0].Box)
	assert.Equal(t, "fork", detections[2].Label)
	assert.Equal(t, 0.0, detections[2].Score)
	assert.Equal(t, "unknown", detections[3].Label)

	assertDirEmpty(t, dir)
}

func TestDetect_UnexpectedFormat(t *testing.T) {
	payload := `{"error": "Model facebook/detr-resnet-50 is currently loading", "estimated_time": 20.0}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer ts.Close()

	client, dir := newTestClient(t, ts.URL, 0)

	detections, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)
	assert.Nil(t, detections)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, payload, formatErr.Payload)
	assert.Contains(t, err.Error(), "unexpected response format")
	assert.Contains(t, err.Error(), "currently loading")

	assertDirEmpty(t, dir)
}

func TestDetect_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid credentials in Authorization header"}`))
	}))
	defer ts.Close()

	client, dir := newTestClient(t, ts.URL, 0)

	_, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, http.StatusUnauthorized, serviceErr.StatusCode)
	assert.Contains(t, serviceErr.Body, "Invalid credentials")
	assert.Contains(t, err.Error(), "vision service error")

	assertDirEmpty(t, dir)
}

func TestDetect_RetriesWhileModelLoads(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": "loading"}`))
			return
		}
		w.Write([]byte(`[{"score": 0.9, "label": "can"}]`))
	}))
	defer ts.Close()

	client, dir := newTestClient(t, ts.URL, 1)

	detections, err := client.Detect(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, []Detection{{Label: "can", Score: 0.9}}, detections)
	assert.Equal(t, int32(2), calls.Load())

	assertDirEmpty(t, dir)
}

func TestDetect_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client, _ := newTestClient(t, ts.URL, 2)

	_, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetect_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client, dir := newTestClient(t, url, 0)

	_, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, 0, serviceErr.StatusCode)

	assertDirEmpty(t, dir)
}

func TestDetect_MissingTempDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	client := NewClient(ClientOpts{
		BaseURL: "http://127.0.0.1:0",
		Model:   testModel,
		TempDir: missing,
	})

	_, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)

	var tempErr *TempFileError
	require.True(t, errors.As(err, &tempErr))
	assert.Equal(t, "create", tempErr.Op)
	assert.Equal(t, missing, tempErr.Dir)
	assert.False(t, tempErr.Permission())
	assert.Contains(t, err.Error(), missing+" (not created)")
}

func TestDetect_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	client := NewClient(ClientOpts{BaseURL: "http://127.0.0.1:0", Model: testModel, TempDir: dir})

	_, err := client.Detect(context.Background(), testImage())
	require.Error(t, err)

	var tempErr *TempFileError
	require.True(t, errors.As(err, &tempErr))
	assert.True(t, tempErr.Permission())
	assert.Equal(t, "permission denied for temporary path "+dir+" (not created)", err.Error())
}

func TestDetect_NilImage(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:0", 0)
	_, err := client.Detect(context.Background(), nil)
	assert.Error(t, err)
}

func TestTempFileError_Permission(t *testing.T) {
	err := &TempFileError{
		Op:   "remove",
		Path: "/tmp/trash-1.jpg",
		Err:  &fs.PathError{Op: "remove", Path: "/tmp/trash-1.jpg", Err: fs.ErrPermission},
	}
	assert.True(t, err.Permission())
	assert.Equal(t, "permission denied for temporary path /tmp/trash-1.jpg", err.Error())

	other := &TempFileError{Op: "write", Path: "/tmp/trash-2.jpg", Err: errors.New("disk full")}
	assert.False(t, other.Permission())
	assert.Contains(t, other.Error(), "disk full")

	notCreated := &TempFileError{Op: "create", Dir: "/var/tmp", Err: errors.New("no space")}
	assert.Equal(t, "temporary file create failed for /var/tmp (not created): no space", notCreated.Error())
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	payload := strings.Repeat("é", maxPayloadInMessage) // two bytes each
	err := &FormatError{Payload: "x" + payload}

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "é..."))
	assert.LessOrEqual(t, len(msg), len("unexpected response format from vision service: ")+maxPayloadInMessage+len("..."))

	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "...", truncate("日本", 2))
}

func TestParseDetections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"empty list", `[]`, 0, false},
		{"object", `{"error": "boom"}`, 0, true},
		{"null", `null`, 0, true},
		{"list of strings", `["bottle"]`, 0, true},
		{"list with null", `[null]`, 0, true},
		{"html", `<html>Bad gateway</html>`, 0, true},
		{"wrong field type", `[{"label": 5, "score": 0.9}]`, 0, true},
		{"two items", `[{"label": "a", "score": 0.9}, {"label": "b", "score": 0.2}]`, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := parseDetections([]byte(tt.body))
			if tt.wantErr {
				var formatErr *FormatError
				require.True(t, errors.As(err, &formatErr))
				assert.Equal(t, tt.body, formatErr.Payload)
				return
			}
			require.NoError(t, err)
			assert.Len(t, detections, tt.want)
		})
	}
}
