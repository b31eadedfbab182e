package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

const (
	tempPattern  = "trash-*.jpg"
	jpegQuality  = 90
	maxRetryWait = 10 * time.Second
)

// ClientOpts configures a Client.
type ClientOpts struct {
	BaseURL string // Inference API root, the model path is appended to it
	Token   string
	Model   string
	TempDir string // Staging directory, the OS default when empty
	Policy  config.CallPolicy
}

// Client calls a hosted object-detection model. It is safe for concurrent use.
type Client struct {
	httpClient *resty.Client
	model      string
	tempDir    string
}

// NewClient creates a detection client with the timeout and retry policy from opts.
// Transport errors, 429 and 5xx responses are retried; the hosted models answer
// 503 while they are being loaded.
func NewClient(opts ClientOpts) *Client {
	httpClient := resty.New().
		SetDebug(false).
		SetBaseURL(opts.BaseURL).
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Policy.Timeout).
		SetRetryCount(opts.Policy.Retries).
		SetRetryWaitTime(opts.Policy.RetryWait).
		SetRetryMaxWaitTime(maxRetryWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			if res == nil {
				return false
			}
			return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		httpClient: httpClient,
		model:      opts.Model,
		tempDir:    opts.TempDir,
	}
}

// Model returns the detection model identifier.
func (c *Client) Model() string {
	return c.model
}

// Detect stages img as a JPEG file, sends it to the detection model and returns
// the parsed detections. The staged file is removed on every return path; a
// failure to remove it is reported as a *TempFileError joined to any other error.
func (c *Client) Detect(ctx context.Context, img image.Image) (detections []Detection, err error) {
	if img == nil {
		return nil, errors.New("vision: no image to detect")
	}

	dir := c.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return nil, &TempFileError{Op: "create", Dir: dir, Err: err}
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			detections = nil
			err = errors.Join(err, &TempFileError{Op: "remove", Path: path, Dir: dir, Err: rmErr})
		}
	}()

	data, err := writeJPEG(f, img)
	if err != nil {
		return nil, &TempFileError{Op: "write", Path: path, Dir: dir, Err: err}
	}

	start := time.Now()
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/jpeg").
		SetBody(data).
		Post("/models/" + c.model)
	if err != nil {
		return nil, &ServiceError{Model: c.model, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &ServiceError{
			Model:      c.model,
			StatusCode: res.StatusCode(),
			Body:       res.String(),
			Err:        fmt.Errorf("request failed: %s", res.Status()),
		}
	}

	detections, err = parseDetections(res.Body())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", c.model).
		Int("detections", len(detections)).
		Int("imageBytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("vision call")

	return detections, nil
}

// writeJPEG encodes img into f, closes it and reads the staged file back.
func writeJPEG(f *os.File, img image.Image) ([]byte, error) {
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Name())
}

type wireDetection struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
	Box   *Box     `json:"box"`
}

// parseDetections decodes a JSON list of detections. Anything else, including an
// error object returned with a success status, is a *FormatError.
func parseDetections(body []byte) ([]Detection, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || items == nil {
		return nil, &FormatError{Payload: string(body)}
	}

	detections := make([]Detection, 0, len(items))
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &FormatError{Payload: string(body)}
		}

		var w wireDetection
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, &FormatError{Payload: string(body)}
		}

		d := Detection{Label: "unknown", Box: w.Box}
		if w.Label != nil {
			d.Label = *w.Label
		}
		if w.Score != nil {
			d.Score = *w.Score
		}
		detections = append(detections, d)
	}

	return detections, nil
}
