// Package metrics emits the standard lifecycle metrics of printmaker components.
package metrics

import (
	"time"

	obserrors "github.com/target/printmaker/internal/observability/errors"
	"github.com/target/printmaker/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures one pipeline stage transition.
type JobMetric struct {
	Queue    string
	Stage    string
	Result   string
	Failure  string
	Duration time.Duration
	Err      error
}

// EmitJobLifecycle counts a stage transition and records its duration when known.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"result": in.Result,
	}
	if in.Queue != "" {
		tags["queue"] = in.Queue
	}
	if in.Failure != "" {
		tags["failure"] = in.Failure
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("pipeline.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("pipeline.duration", in.Duration, CloneTags(tags))
	}
}

// PoolMetric is a snapshot of worker pool occupancy.
type PoolMetric struct {
	Workers int
	Active  int
	Queued  int
}

// EmitPoolGauges records worker pool occupancy.
func EmitPoolGauges(sink statsd.Sink, in PoolMetric) {
	if sink == nil {
		return
	}
	sink.Gauge("pool.workers", float64(in.Workers), nil)
	sink.Gauge("pool.active", float64(in.Active), nil)
	sink.Gauge("pool.queued", float64(in.Queued), nil)
}

// EmitPurge records one purge run.
func EmitPurge(sink statsd.Sink, flagged int64, duration time.Duration, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	switch {
	case err != nil:
		tags["result"] = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	case flagged == 0:
		tags["result"] = ResultNoop
	}
	sink.Count("purge.runs", 1, tags)
	if flagged > 0 {
		sink.Count("purge.flagged", flagged, nil)
	}
	sink.Timing("purge.duration", duration, CloneTags(tags))
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
