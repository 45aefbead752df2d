package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records game and delivery metrics.
type Collector interface {
	SubscriberAdded()
	SubscriberRemoved()
	SinkDropped()
	AnnouncementSent(kind string)
	RunCompleted()
}

// NoOp is used when metrics aren't needed.
type NoOp struct{}

func (NoOp) SubscriberAdded()        {}
func (NoOp) SubscriberRemoved()      {}
func (NoOp) SinkDropped()            {}
func (NoOp) AnnouncementSent(string) {}
func (NoOp) RunCompleted()           {}

type Prometheus struct {
	subscribers   prometheus.Gauge
	droppedSinks  prometheus.Counter
	announcements *prometheus.CounterVec
	completedRuns prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hunt",
			Name:      "subscribers",
			Help:      "Currently connected subscription sessions.",
		}),
		droppedSinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "dropped_sinks_total",
			Help:      "Subscribers removed after a failed delivery.",
		}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "announcements_total",
			Help:      "Announcements broadcast, by kind.",
		}, []string{"kind"}),
		completedRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "completed_runs_total",
			Help:      "Runs that found every item and reached the leaderboard.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hunt",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(p.subscribers, p.droppedSinks, p.announcements, p.completedRuns, p.HTTPRequests)
	return p
}

func (p *Prometheus) SubscriberAdded()   { p.subscribers.Inc() }
func (p *Prometheus) SubscriberRemoved() { p.subscribers.Dec() }
func (p *Prometheus) SinkDropped()       { p.droppedSinks.Inc() }
func (p *Prometheus) RunCompleted()      { p.completedRuns.Inc() }

func (p *Prometheus) AnnouncementSent(kind string) {
	p.announcements.WithLabelValues(kind).Inc()
}
