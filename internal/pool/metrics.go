package pool

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter publishes pool activity as Prometheus collectors.
// Attach it with WithObserver and register the pool's gauges with
// RegisterGauges once the pool exists.
type MetricsExporter struct {
	tasksSubmitted      *prom.CounterVec
	tasksCompleted      *prom.CounterVec
	tasksCanceled       prom.Counter
	tasksCoalesced      prom.Counter
	taskDurationSeconds *prom.HistogramVec
}

var _ Observer = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers the pool's counters.
// An empty namespace defaults to "presage".
func NewMetricsExporter(namespace string, reg prom.Registerer) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "presage"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	m := &MetricsExporter{
		tasksSubmitted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks submitted to the pool.",
		}, []string{"priority"}),
		tasksCompleted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks run to completion.",
		}, []string{"priority"}),
		tasksCanceled: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_canceled_total",
			Help:      "Total number of tasks canceled before starting.",
		}),
		tasksCoalesced: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_coalesced_total",
			Help:      "Total number of submissions deduplicated onto a pending task.",
		}),
		taskDurationSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds.",
			Buckets:   prom.DefBuckets,
		}, []string{"priority"}),
	}

	collectors := []prom.Collector{
		m.tasksSubmitted, m.tasksCompleted, m.tasksCanceled,
		m.tasksCoalesced, m.taskDurationSeconds,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterGauges exposes the pool's live occupancy. Separate from the
// constructor because the exporter is built before the pool it
// observes.
func (m *MetricsExporter) RegisterGauges(namespace string, reg prom.Registerer, p *Pool) error {
	if namespace == "" {
		namespace = "presage"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	activeTasks := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tasks",
		Help:      "Tasks currently pending or running.",
	}, func() float64 { return float64(p.Statistics().ActiveTasks) })
	activeThreads := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_threads",
		Help:      "Workers currently executing a task.",
	}, func() float64 { return float64(p.ActiveThreadCount()) })

	if err := reg.Register(activeTasks); err != nil {
		return err
	}
	return reg.Register(activeThreads)
}

// TaskSubmitted counts a submission
func (m *MetricsExporter) TaskSubmitted(priority Priority) {
	m.tasksSubmitted.WithLabelValues(priority.String()).Inc()
}

// TaskCompleted counts a completion and observes its duration
func (m *MetricsExporter) TaskCompleted(priority Priority, duration time.Duration) {
	m.tasksCompleted.WithLabelValues(priority.String()).Inc()
	m.taskDurationSeconds.WithLabelValues(priority.String()).Observe(duration.Seconds())
}

// TaskCanceled counts a cancellation
func (m *MetricsExporter) TaskCanceled() {
	m.tasksCanceled.Inc()
}

// TaskCoalesced counts a deduplicated submission
func (m *MetricsExporter) TaskCoalesced() {
	m.tasksCoalesced.Inc()
}
