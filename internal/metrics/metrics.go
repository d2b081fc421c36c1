package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	intentResponsesDesc = prometheus.NewDesc(
		"riverway_chatbot_intent_responses_total",
		"Total bot replies by classified intent",
		[]string{"intent"},
		nil,
	)
)

// IntentSource reports stored bot replies per intent.
type IntentSource interface {
	IntentCounts(ctx context.Context) (map[string]int, error)
}

// IntentCollector is a custom Prometheus collector that reads per-intent
// reply counts from the database on each scrape, so the numbers survive
// restarts and agree across instances.
type IntentCollector struct {
	source IntentSource
	logger *zap.Logger
}

// Describe sends the metric descriptor to the channel.
func (c *IntentCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- intentResponsesDesc
}

// Collect queries the database for intent counts and emits them as counters.
func (c *IntentCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.source.IntentCounts(ctx)
	if err != nil {
		c.logger.Error("failed to collect intent metrics", zap.Error(err))
		return
	}
	for intent, n := range counts {
		ch <- prometheus.MustNewConstMetric(
			intentResponsesDesc,
			prometheus.CounterValue,
			float64(n),
			intent,
		)
	}
}

// Recorder records per-request chatbot measurements.
type Recorder struct {
	latency     *prometheus.HistogramVec
	escalations *prometheus.CounterVec
	faqHits     prometheus.Counter
}

// NewRecorder registers the intent collector and the request metrics on reg.
func NewRecorder(reg prometheus.Registerer, source IntentSource, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riverway_chatbot_response_seconds",
			Help:    "Time to generate a chatbot reply",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"channel"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riverway_chatbot_escalations_total",
			Help: "Conversations handed to a human agent, by trigger",
		}, []string{"trigger"}),
		faqHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riverway_chatbot_faq_answers_total",
			Help: "Replies answered straight from the FAQ",
		}),
	}

	reg.MustRegister(r.latency, r.escalations, r.faqHits)
	if source != nil {
		reg.MustRegister(&IntentCollector{source: source, logger: logger.Named("metrics")})
	}
	return r
}

// ObserveResponse records how long a reply took.
func (r *Recorder) ObserveResponse(channel string, d time.Duration) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(channel).Observe(d.Seconds())
}

// RecordEscalation counts a hand-off. trigger is the intent that caused it
// (complaint, booking, unknown, error).
func (r *Recorder) RecordEscalation(trigger string) {
	if r == nil {
		return
	}
	r.escalations.WithLabelValues(trigger).Inc()
}

// RecordFAQAnswer counts a reply served from the FAQ.
func (r *Recorder) RecordFAQAnswer() {
	if r == nil {
		return
	}
	r.faqHits.Inc()
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the collectors with the default registry and returns the
// process-wide recorder. Must be called once at startup.
func Init(source IntentSource, logger *zap.Logger) *Recorder {
	recorderOnce.Do(func() {
		recorder = NewRecorder(prometheus.DefaultRegisterer, source, logger)
	})
	return recorder
}
