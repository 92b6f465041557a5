package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/target/printmaker/internal/domain/model"
)

var jobSeq atomic.Int64

// JobBuilder builds model.Job values with unique ids for tests.
type JobBuilder struct {
	job model.Job
}

// NewJob returns a builder with a unique id, user "alice" and a spool path under dir.
func NewJob(dir string) *JobBuilder {
	id := fmt.Sprintf("job%06d", jobSeq.Add(1))
	return &JobBuilder{job: model.Job{
		ID:        id,
		Name:      "document.ps",
		User:      "alice",
		SpoolPath: dir + "/" + id + ".ps.xz",
	}}
}

func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

func (b *JobBuilder) WithUser(user string) *JobBuilder {
	b.job.User = user
	return b
}

func (b *JobBuilder) WithSpoolPath(path string) *JobBuilder {
	b.job.SpoolPath = path
	return b
}

func (b *JobBuilder) Build() model.Job {
	return b.job
}
