package tracking

import "errors"

var (
	// ErrInvalidSignature means the signature does not match the tracking ID
	ErrInvalidSignature = errors.New("invalid tracking signature")
	// ErrUnknownTrackingID means no mapping exists, usually because it expired
	ErrUnknownTrackingID = errors.New("unknown tracking id")
)

// RecordError wraps a store failure during event recording
type RecordError struct {
	Op         string
	TrackingID string
	Cause      error
}

func (e *RecordError) Error() string {
	return e.Op + " " + e.TrackingID + ": " + e.Cause.Error()
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}
