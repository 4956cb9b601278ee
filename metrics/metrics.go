package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "captcha",
		Name:      "tasks_submitted_total",
		Help:      "Tasks accepted by /in.php.",
	})

	TasksDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "captcha",
		Name:      "tasks_delivered_total",
		Help:      "Terminal task states delivered to a poll.",
	}, []string{"status"})

	EngineResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "captcha",
		Name:      "engine_results_total",
		Help:      "Per-engine cascade outcomes.",
	}, []string{"engine", "outcome"})

	CleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "captcha",
		Name:      "cleanup_failures_total",
		Help:      "Temp image disposals that failed.",
	})
)

func init() {
	prometheus.MustRegister(TasksSubmitted, TasksDelivered, EngineResults, CleanupFailures)
}
