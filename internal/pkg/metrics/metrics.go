package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "redact"

// 对账结果
const (
	OutcomePaid          = "paid"
	OutcomeAlready       = "already_processed"
	OutcomeNotFound      = "not_found"
	OutcomeProviderError = "provider_error"
	OutcomeNoAddress     = "no_deposit_address"
)

// 额度发放来源
const (
	SourcePayment = "payment"
	SourceAdmin   = "admin"
)

var (
	// CreditsConsumed 按套餐统计消耗的额度
	CreditsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_consumed_total",
		Help:      "Credits consumed by plan.",
	}, []string{"plan"})

	// CreditsGranted 按来源统计发放的额度
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_granted_total",
		Help:      "Credits granted by source.",
	}, []string{"source"})

	ConsumeRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consume_rejected_total",
		Help:      "Rejected consume requests by reason.",
	}, []string{"reason"})

	// PaymentReconcile 对账次数
	PaymentReconcile = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_reconcile_total",
		Help:      "Payment reconciliation attempts by outcome.",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SyncJobs worker 处理的同步任务
	SyncJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "sync_jobs_total",
		Help:      "Payment sync jobs processed by source and result.",
	}, []string{"source", "result"})
)
