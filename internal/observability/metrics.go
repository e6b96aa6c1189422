// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commung_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts board posts created, labeled by community.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_posts_created_total",
		Help: "Total number of board posts created",
	}, []string{"community_id"})

	// RepliesCreated counts replies created, labeled by community.
	RepliesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_replies_created_total",
		Help: "Total number of replies created",
	}, []string{"community_id"})

	// MessagesSent counts chat messages, labeled by conversation kind.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_messages_sent_total",
		Help: "Total number of chat messages sent",
	}, []string{"kind"})

	// ApplicationsReviewed counts application decisions by outcome.
	ApplicationsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_applications_reviewed_total",
		Help: "Total number of join applications reviewed",
	}, []string{"decision"})

	// NotificationsCreated counts notifications fanned out by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_notifications_created_total",
		Help: "Total number of notifications created",
	}, []string{"type"})

	// MediaUploads counts media uploads by detected content type.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_media_uploads_total",
		Help: "Total number of media uploads",
	}, []string{"content_type"})

	// BotRequests counts bot API requests by outcome.
	BotRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commung_bot_requests_total",
		Help: "Total number of bot API requests",
	}, []string{"outcome"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
