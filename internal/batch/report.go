package batch

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"webpoptimizer/internal/pipeline"
)

// OutcomeMissing marks a requested id that has no attachment record or whose
// file is gone.
const OutcomeMissing pipeline.Outcome = "missing"

// OutcomeRegisterFailed marks an item whose WebP file could not be recorded.
// The file is removed again and the original left in place.
const OutcomeRegisterFailed pipeline.Outcome = "register_failed"

// ItemResult is the outcome of one attachment in a bulk run.
type ItemResult struct {
	AttachmentID    int64            `json:"attachment_id"`
	Source          string           `json:"source"`
	Output          string           `json:"output,omitempty"`
	Outcome         pipeline.Outcome `json:"outcome"`
	Error           string           `json:"error,omitempty"`
	NewAttachmentID int64            `json:"new_attachment_id,omitempty"`
	Bytes           int64            `json:"bytes,omitempty"`
}

// Report summarizes a bulk run.
type Report struct {
	ID        string       `json:"id"`
	Quality   int          `json:"quality"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Items     []ItemResult `json:"items"`
	Cancelled bool         `json:"cancelled"`
}

// Processed is the number of items visited.
func (r *Report) Processed() int {
	return len(r.Items)
}

// Converted is the number of items that produced a WebP file.
func (r *Report) Converted() int {
	return r.count(func(o pipeline.Outcome) bool { return o.Produced() })
}

// Skipped is the number of items that were not applicable or already converted.
func (r *Report) Skipped() int {
	return r.count(func(o pipeline.Outcome) bool { return o.Skip() })
}

// Failed is the number of items that neither converted nor skipped.
func (r *Report) Failed() int {
	return r.Processed() - r.Converted() - r.Skipped()
}

// BytesWritten is the total size of produced WebP files.
func (r *Report) BytesWritten() int64 {
	var n int64
	for _, it := range r.Items {
		n += it.Bytes
	}
	return n
}

func (r *Report) count(match func(pipeline.Outcome) bool) int {
	n := 0
	for _, it := range r.Items {
		if match(it.Outcome) {
			n++
		}
	}
	return n
}

// Summary is a one-line human readable digest.
func (r *Report) Summary() string {
	s := fmt.Sprintf("processed %d, converted %d, skipped %d, failed %d, wrote %s in %s",
		r.Processed(), r.Converted(), r.Skipped(), r.Failed(),
		humanize.Bytes(uint64(r.BytesWritten())), r.Finished.Sub(r.Started).Round(time.Millisecond))
	if r.Cancelled {
		s += " (cancelled)"
	}
	return s
}
