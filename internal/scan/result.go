package scan

import "time"

// Status classifies a worker's terminal outcome. Failures travel as data
// in a WorkerResult so the coordinator can decide from returned values
// alone; they never cross the pool boundary as panics.
type Status int

const (
	// Completed means every assigned root was walked without a single error.
	Completed Status = iota
	// CompletedWithErrors means the walk finished but some entries were
	// skipped; the skips are counted in ErrorCount.
	CompletedWithErrors
	// Failed means the worker produced no trustworthy output. Its
	// intermediate file may be absent or truncated.
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case CompletedWithErrors:
		return "completed_with_errors"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// WorkerResult is the single message a worker reports to the coordinator
// when it terminates.
type WorkerResult struct {
	WorkerID         int
	IntermediatePath string
	Status           Status
	PathCount        int64
	ErrorCount       int64
	FatalErr         error // set only when Status is Failed
}

// Report aggregates the outcome of a whole scan.
type Report struct {
	TotalPathsWritten int64
	TotalErrors       int64
	Workers           []WorkerResult
	Elapsed           time.Duration
}
