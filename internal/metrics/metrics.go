package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civicwatch/internal/models"
)

const namespace = "civicwatch"

var (
	reportsDesc = prometheus.NewDesc(
		namespace+"_reports",
		"Number of reports by operational and moderation status",
		[]string{"status", "moderation_status"},
		nil,
	)

	classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifications_total",
		Help:      "Image classification gate results by outcome",
	}, []string{"outcome"})

	inferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Latency of calls to the image inference service",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	votes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Votes applied by direction",
	}, []string{"direction"})

	moderationActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_actions_total",
		Help:      "Moderation actions taken by administrators",
	}, []string{"action"})
)

// ReportCounter is the read side the report collector scrapes.
type ReportCounter interface {
	CountReportsByStatus(ctx context.Context) ([]models.ReportStatusCount, error)
}

// ReportCollector is a custom Prometheus collector that reads report counts
// from the database on each scrape.
type ReportCollector struct {
	source  ReportCounter
	timeout time.Duration
}

// Describe sends the metric descriptor to the channel.
func (c *ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- reportsDesc
}

// Collect queries the database for report counts and emits them as gauges.
func (c *ReportCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.source.CountReportsByStatus(ctx)
	if err != nil {
		slog.Error("failed to collect report metrics", "error", err)
		return
	}
	for _, rc := range counts {
		ch <- prometheus.MustNewConstMetric(
			reportsDesc,
			prometheus.GaugeValue,
			float64(rc.Count),
			rc.Status,
			rc.ModerationStatus,
		)
	}
}

var initOnce sync.Once

// Init registers all collectors with the default registry.
// Must be called once at startup; later calls are no-ops.
func Init(source ReportCounter) {
	initOnce.Do(func() {
		prometheus.MustRegister(classifications, inferenceDuration, votes, moderationActions)
		if source != nil {
			prometheus.MustRegister(&ReportCollector{source: source, timeout: 5 * time.Second})
		}
	})
}

// Handler exposes the default registry for fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RecordClassification counts one classification gate result.
func RecordClassification(outcome string) {
	classifications.WithLabelValues(outcome).Inc()
}

// ObserveInference records the latency of one inference call.
func ObserveInference(d time.Duration) {
	inferenceDuration.Observe(d.Seconds())
}

// RecordVote counts one applied vote.
func RecordVote(direction string) {
	votes.WithLabelValues(direction).Inc()
}

// RecordModeration counts one moderation action.
func RecordModeration(action string) {
	moderationActions.WithLabelValues(action).Inc()
}
