package run

import (
	"linkbias/domain/stats"
)

// Record is a persisted run: its manifest, one summary per mode or sweep point,
// and the raw trials behind each summary (keyed by the summary's position).
type Record struct {
	Manifest  Manifest              `json:"manifest"`
	Summaries []stats.Summary       `json:"summaries"`
	Trials    [][]stats.TrialResult `json:"trials,omitempty"`
	RuntimeMs int64                 `json:"runtime_ms"`
}
