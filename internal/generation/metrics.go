package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_tasks_submitted_total",
		Help: "Image generation tasks accepted by the upstream provider.",
	})
	pollsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "generation_polls_total",
		Help: "Status queries issued against in-flight generation tasks.",
	})
	tasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_tasks_finished_total",
		Help: "Generation tasks by terminal outcome.",
	}, []string{"outcome"})
)

const (
	outcomeSucceeded        = "succeeded"
	outcomeFailed           = "failed"
	outcomeTimedOut         = "timed_out"
	outcomeMalformedSuccess = "malformed_success"
	outcomeCanceled         = "canceled"
)
