// Package metrics maps shell events onto StatsD metric names and tags.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/mmk-ui-shell/internal/observability/errors"
	"github.com/target/mmk-ui-shell/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder emits shell metrics. A nil Recorder drops everything.
type Recorder struct {
	sink statsd.Sink
}

// New returns a Recorder writing to sink, or to statsd.Discard when sink is nil.
func New(sink statsd.Sink) *Recorder {
	if sink == nil {
		sink = statsd.Discard{}
	}
	return &Recorder{sink: sink}
}

// ObserveAPIRequest records one request through the API pipeline. status is 0 when
// no response arrived.
func (r *Recorder) ObserveAPIRequest(method string, status int, d time.Duration, err error) {
	if r == nil {
		return
	}
	tags := map[string]string{
		"method":       method,
		"status_class": StatusClass(status),
		"result":       ResultSuccess,
	}
	if status < 200 || status >= 300 {
		tags["result"] = ResultError
	}
	if status == 0 && err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	r.sink.Count("api.request", 1, tags)
	if d > 0 {
		r.sink.Timing("api.request.duration", d, tags)
	}
}

// Startup records how long a shell instance took to synchronize and whether it succeeded.
func (r *Recorder) Startup(d time.Duration, err error) {
	if r == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	r.sink.Count("shell.startup", 1, tags)
	r.sink.Timing("shell.startup.duration", d, tags)
}

// Reload records a shell instance being replaced.
func (r *Recorder) Reload(reason string) {
	if r == nil {
		return
	}
	r.sink.Count("shell.reload", 1, map[string]string{"reason": reason})
}

// StatusClass returns "2xx", "4xx" and so on, or "none" for status 0.
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
