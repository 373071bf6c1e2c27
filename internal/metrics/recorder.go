package metrics

import "time"

// BuildOutcome labels the final status of one build run.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Recorder receives build observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcome)
	IncFileAction(action string)
	IncMissingAsset()
	IncRebuildCoalesced()
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)       {}
func (NoopRecorder) IncFileAction(string)               {}
func (NoopRecorder) IncMissingAsset()                   {}
func (NoopRecorder) IncRebuildCoalesced()               {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
