package queue

import (
	"time"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// Outcome reports how a job ended. Exactly one of Record and Err is set.
type Outcome struct {
	SubmissionID string
	Record       model.Record
	Err          error
}

// Job is one agent reply waiting to be extracted into a submission.
type Job struct {
	SubmissionID string
	Reply        string
	Enqueued     time.Time
	done         chan Outcome
}

// NewJob creates a job whose completion can be awaited on Done.
func NewJob(submissionID, reply string) Job {
	return Job{
		SubmissionID: submissionID,
		Reply:        reply,
		Enqueued:     time.Now(),
		done:         make(chan Outcome, 1),
	}
}

// Done delivers the outcome once the job has been processed.
func (j Job) Done() <-chan Outcome { return j.done }

// Complete publishes the outcome. Only the first call has an effect.
func (j Job) Complete(o Outcome) {
	if j.done == nil {
		return
	}
	select {
	case j.done <- o:
	default:
	}
}
