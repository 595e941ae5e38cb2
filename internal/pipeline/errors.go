package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when the campaign already has an active run
	ErrRunInProgress = errors.New("a pipeline run is already in progress for this campaign")
	// ErrEmptyDescription is returned when the campaign brief is blank
	ErrEmptyDescription = errors.New("campaign description is required")
	// ErrNoProspects is returned when the prospect list resolves to nobody contactable
	ErrNoProspects = errors.New("no contactable prospects in list")
	// ErrNoSegments is returned when segmentation produced nothing
	ErrNoSegments = errors.New("no segments")
)

// Error kinds recorded in a failed run's error string
const (
	KindValidation   = "ValidationError"
	KindProspectLoad = "ProspectLoadError"
	KindEssence      = "EssenceError"
	KindResearch     = "ResearchError"
	KindSegmentation = "SegmentationError"
	KindTracking     = "TrackingError"
	KindPersistence  = "PersistenceError"
	KindScheduling   = "SchedulingError"
	KindCancelled    = "CancelledError"
)

// StageError is a fatal error that aborted a run
type StageError struct {
	Kind  string
	Stage string
	Err   error
}

// Error formats as "{Kind}: {message}", which is also the run's recorded error
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is how a stage finished
type Outcome int

const (
	// OutcomeOK means every item succeeded
	OutcomeOK Outcome = iota
	// OutcomeRecovered means some items failed and were replaced by fallbacks
	OutcomeRecovered
	// OutcomeFatal means the run must stop
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StageResult is what every stage step returns to the orchestrator
type StageResult struct {
	Outcome   Outcome
	Err       error // set for OutcomeFatal
	Kind      string
	Recovered int // number of items replaced by fallbacks
}

func ok() StageResult {
	return StageResult{Outcome: OutcomeOK}
}

func recovered(n int) StageResult {
	if n == 0 {
		return ok()
	}
	return StageResult{Outcome: OutcomeRecovered, Recovered: n}
}

func fatal(kind string, err error) StageResult {
	return StageResult{Outcome: OutcomeFatal, Kind: kind, Err: err}
}
