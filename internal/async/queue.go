package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/vinscan/internal/vin"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one image waiting for extraction.
type Job struct {
	Path        string
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Processor is what workers call for each job; extract.Service satisfies it.
type Processor interface {
	ExtractFile(ctx context.Context, path string) vin.Result
}

// ResultHandler receives every finished job. It is called from worker goroutines.
type ResultHandler func(job Job, res vin.Result)
