package vision

import "strings"

// ConfidenceThreshold is the score a detection must exceed to be trusted.
const ConfidenceThreshold = 0.7

// UnidentifiedItem is the summary text used when no detection is trusted.
const UnidentifiedItem = "Unidentified trash item"

// Summary is the deduplicated set of trusted labels found in an image.
type Summary struct {
	Labels        []string // Unique labels in first-seen order
	Text          string   // Labels joined with ", ", or UnidentifiedItem
	LowConfidence bool     // True when no detection passed the threshold
}

// Summarize keeps detections scoring strictly above ConfidenceThreshold and
// collapses them into a set of labels. An empty set yields the UnidentifiedItem
// summary with LowConfidence set. The result depends only on the input, so
// summarizing the same detections twice gives the same summary.
func Summarize(detections []Detection) Summary {
	seen := make(map[string]struct{}, len(detections))
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if d.Score <= ConfidenceThreshold {
			continue
		}
		label := strings.TrimSpace(d.Label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return Summary{Text: UnidentifiedItem, LowConfidence: true}
	}
	return Summary{Labels: labels, Text: strings.Join(labels, ", ")}
}

// ManualSummary wraps a label typed by a user in place of a low-confidence detection.
func ManualSummary(label string) Summary {
	label = strings.TrimSpace(label)
	return Summary{Labels: []string{label}, Text: label}
}
