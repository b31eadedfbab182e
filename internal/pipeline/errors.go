package pipeline

import (
	"errors"
	"fmt"
)

// Stage names the part of a run that failed.
type Stage string

const (
	StageDetection  Stage = "detection"
	StageAdvice     Stage = "advice"
	StageProcessing Stage = "processing"
)

var (
	ErrAlreadyResumed = errors.New("manual label was already submitted for this run")
	ErrEmptyLabel     = errors.New("manual label is empty")
	ErrNoImage        = errors.New("no image provided")
)

// Error is returned by Run and Resume for any failed run. The adapter's own
// error sits underneath and can be reached with errors.As.
type Error struct {
	Stage Stage
	RunID string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == StageProcessing {
		return fmt.Sprintf("processing error: %v", e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf returns the failed stage of err, or "" if err is not a pipeline error.
func StageOf(err error) Stage {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Stage
	}
	return ""
}
