package model

import "time"

// JobStatus is the lifecycle state of a submitted download job.
//
// Jobs move pending → running → {completed | failed}. A job completes
// once every item has been attempted, regardless of individual unit or
// image failures; it fails only on a whole-job condition (every item
// failed, or cancellation).
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// UnitFailure records one unit that could not be fetched.
type UnitFailure struct {
	UnitUID string `json:"unit_uid"`
	Title   string `json:"title,omitempty"`
	Reason  string `json:"reason"`
}

// ItemOutcome is the per-item result record of a job.
type ItemOutcome struct {
	ItemUID        string        `json:"item_uid"`
	Title          string        `json:"title,omitempty"`
	Status         string        `json:"status"`
	SucceededUnits int           `json:"succeeded_units"`
	FailedUnits    []UnitFailure `json:"failed_units,omitempty"`
	Images         ImageSummary  `json:"images"`
	OutputDir      string        `json:"output_dir,omitempty"`
}

// Job is the pollable record of one batch download. It is the only
// mutable shared entity in the system: the tracker owns it, the
// orchestrator mutates it through the tracker's update operation, and
// pollers read copies.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalItems int           `json:"total_items"`
	Items      []ItemOutcome `json:"items,omitempty"`
}

// Clone returns a deep copy safe to hand to pollers while the original
// keeps being mutated under the tracker's lock.
func (j *Job) Clone() Job {
	out := *j
	if j.Items != nil {
		out.Items = make([]ItemOutcome, len(j.Items))
		for i, it := range j.Items {
			c := it
			if it.FailedUnits != nil {
				c.FailedUnits = append([]UnitFailure(nil), it.FailedUnits...)
			}
			if it.Images.Failed != nil {
				c.Images.Failed = append([]FailedImage(nil), it.Images.Failed...)
			}
			out.Items[i] = c
		}
	}
	return out
}
