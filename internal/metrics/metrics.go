// Package metrics exposes an in-process Prometheus registry. There is no
// HTTP /metrics endpoint here (presentation/HTTP is out of scope, §1
// Non-goals); callers that do run one can register this package's
// Registry with their own handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the collectors the catalog core records against: the
// aggregator's query latency (§4.4 performance contract) and the job
// queue's per-kind run duration (§4.8).
type Registry struct {
	reg *prometheus.Registry

	QueryDuration *prometheus.HistogramVec
	JobDuration   *prometheus.HistogramVec
}

// New builds a Registry with all collectors registered against a fresh
// prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediacatalog",
		Subsystem: "aggregator",
		Name:      "query_duration_seconds",
		Help:      "Latency of aggregator query methods, by method name.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediacatalog",
		Subsystem: "jobqueue",
		Name:      "job_duration_seconds",
		Help:      "Wall-clock duration of a job run, by kind and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "outcome"})

	reg.MustRegister(queryDuration, jobDuration)

	return &Registry{reg: reg, QueryDuration: queryDuration, JobDuration: jobDuration}
}

// Prometheus returns the underlying registry, for a caller that wants to
// serve it or gather it directly.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// ObserveQuery times fn and records its duration under the aggregator
// query_duration_seconds histogram, labeled by method.
func (r *Registry) ObserveQuery(method string, fn func() error) error {
	if r == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	r.QueryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return err
}

// ObserveJob records a job's duration under job_duration_seconds, labeled
// by kind and outcome ("succeeded" or "failed").
func (r *Registry) ObserveJob(kind string, d time.Duration, succeeded bool) {
	if r == nil {
		return
	}
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	r.JobDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}
