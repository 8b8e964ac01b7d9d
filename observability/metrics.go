package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the creation and broadcast paths.
// Each instance owns its registry so tests never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	ContactsCreated    prometheus.Counter
	CreateRejected     *prometheus.CounterVec
	CreateDuration     prometheus.Histogram
	EventsPublished    prometheus.Counter
	EventsDelivered    prometheus.Counter
	SubscribersEvicted prometheus.Counter
	ViewersConnected   prometheus.Gauge
	WorkerRestarts     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		ContactsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactlab_contacts_created_total",
			Help: "Total number of contacts persisted and broadcast",
		}),
		CreateRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlab_contact_create_rejected_total",
			Help: "Contact creations rejected, by reason",
		}, []string{"reason"}),
		CreateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactlab_contact_create_duration_seconds",
			Help:    "Duration of CreateContact from validation to publish",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactlab_events_published_total",
			Help: "Events published on the broadcast channel",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactlab_events_delivered_total",
			Help: "Event deliveries accepted by subscriber buffers",
		}),
		SubscribersEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactlab_subscribers_evicted_total",
			Help: "Subscribers dropped because their buffer was full",
		}),
		ViewersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "contactlab_viewers_connected",
			Help: "Currently registered viewer sessions",
		}),
		WorkerRestarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlab_worker_restarts_total",
			Help: "Supervised worker restarts after a crash",
		}, []string{"worker"}),
	}
}

// ObserveCreate records the duration of a CreateContact call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCreated() {
	if m == nil {
		return
	}
	m.ContactsCreated.Inc()
}

func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.CreateRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

func (m *Metrics) IncDelivered() {
	if m == nil {
		return
	}
	m.EventsDelivered.Inc()
}

func (m *Metrics) IncEvicted() {
	if m == nil {
		return
	}
	m.SubscribersEvicted.Inc()
}

func (m *Metrics) SetViewers(n int) {
	if m == nil {
		return
	}
	m.ViewersConnected.Set(float64(n))
}

func (m *Metrics) IncWorkerRestart(worker string) {
	if m == nil {
		return
	}
	m.WorkerRestarts.WithLabelValues(worker).Inc()
}
