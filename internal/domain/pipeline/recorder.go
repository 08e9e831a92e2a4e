package pipeline

import "github.com/okian/riftelo/pkg/metrics"

// Recorder receives the telemetry of a run.
type Recorder interface {
	MatchProcessed()
	MatchSkipped(reason string)
	RunFinished(variant string, durationMs float64)
}

// promRecorder forwards to the process metrics registry.
type promRecorder struct{}

func (promRecorder) MatchProcessed() { metrics.RecordMatchProcessed() }
func (promRecorder) MatchSkipped(reason string) { metrics.RecordMatchSkipped(reason) }
func (promRecorder) RunFinished(variant string, durationMs float64) {
	metrics.RecordPipelineRun(variant, durationMs)
}

// NopRecorder discards all telemetry. Cross-validation folds use it so that
// training runs do not count as production computations.
type NopRecorder struct{}

func (NopRecorder) MatchProcessed() {}
func (NopRecorder) MatchSkipped(string) {}
func (NopRecorder) RunFinished(string, float64) {}
