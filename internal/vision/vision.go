package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"unicode/utf8"
)

// Box is the bounding box reported with a detection. It is decoded for
// completeness but not used when building advice.
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Detection is a single object found in an image.
type Detection struct {
	Label string  // Class name, "unknown" when the service omits it
	Score float64 // Confidence in [0, 1], 0 when the service omits it
	Box   *Box
}

// Detector finds objects in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// ServiceError is returned when the detection endpoint cannot be reached or
// answers with a non-success status.
type ServiceError struct {
	Model      string
	StatusCode int    // 0 when the request never got a response
	Body       string // Response body, if any
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vision service error: model %s returned status %d: %s", e.Model, e.StatusCode, truncate(e.Body, maxPayloadInMessage))
	}
	return fmt.Sprintf("vision service error: model %s: %v", e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// FormatError is returned when the detection endpoint answers successfully but
// the payload is not a list of detections.
type FormatError struct {
	Payload string // Raw response body
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected response format from vision service: %s", truncate(e.Payload, maxPayloadInMessage))
}

// TempFileError is returned when staging or removing the temporary image fails.
type TempFileError struct {
	Op   string // "create", "write" or "remove"
	Path string // Empty when the file could not be created at all
	Dir  string // Staging directory
	Err  error
}

// Permission reports whether the failure was caused by missing file permissions.
func (e *TempFileError) Permission() bool {
	return errors.Is(e.Err, fs.ErrPermission)
}

func (e *TempFileError) Error() string {
	if e.Permission() {
		return fmt.Sprintf("permission denied for temporary path %s", e.displayPath())
	}
	return fmt.Sprintf("temporary file %s failed for %s: %v", e.Op, e.displayPath(), e.Err)
}

func (e *TempFileError) Unwrap() error { return e.Err }

func (e *TempFileError) displayPath() string {
	if e.Path == "" {
		return e.Dir + " (not created)"
	}
	return e.Path
}

const maxPayloadInMessage = 1000

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
