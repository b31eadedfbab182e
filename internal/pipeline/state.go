package pipeline

// State is a step of a single pipeline run.
type State int

const (
	StateIdle State = iota
	StateImageReceived
	StateDetecting
	StateDetectionError
	StateLowConfidence
	StateAwaitingManualLabel
	StateDetectionDone
	StateGeneratingAdvice
	StateAdviceError
	StateSanitizing
	StateDone
	StateProcessingError
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateImageReceived:       "image_received",
	StateDetecting:           "detecting",
	StateDetectionError:      "detection_error",
	StateLowConfidence:       "low_confidence",
	StateAwaitingManualLabel: "awaiting_manual_label",
	StateDetectionDone:       "detection_done",
	StateGeneratingAdvice:    "generating_advice",
	StateAdviceError:         "advice_error",
	StateSanitizing:          "sanitizing",
	StateDone:                "done",
	StateProcessingError:     "processing_error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether a run in this state has finished.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateDetectionError, StateAdviceError, StateProcessingError:
		return true
	}
	return false
}

// Observer receives each state transition of a run.
type Observer interface {
	Transition(runID string, from, to State)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(runID string, from, to State)

func (f ObserverFunc) Transition(runID string, from, to State) { f(runID, from, to) }
