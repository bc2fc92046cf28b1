package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat request metrics
	activeChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_gateway_active_requests",
		Help: "Number of chat requests currently being processed",
	})

	totalChats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_requests_total",
		Help: "Total number of chat requests processed",
	})

	chatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_gateway_request_duration_seconds",
		Help:    "End-to-end duration of chat requests in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Model call metrics
	modelRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_model_requests_total",
		Help: "Total number of model completion requests",
	}, []string{"status"})

	modelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_gateway_model_latency_seconds",
		Help:    "Model completion latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	modelTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_model_tokens_total",
		Help: "Total tokens reported by the model provider",
	}, []string{"kind"}) // kind: "prompt" or "completion"

	// Tool execution metrics
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_tool_executions_total",
		Help: "Total number of tool executions",
	}, []string{"tool", "status"})

	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_gateway_tool_latency_seconds",
		Help:    "Tool execution latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	}, []string{"tool"})

	// Downstream invocation metrics
	invokeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_invoke_requests_total",
		Help: "Total number of downstream service invocations",
	}, []string{"service", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordChatStart records the start of a chat request
func RecordChatStart() {
	activeChats.Inc()
	totalChats.Inc()
}

// RecordChatEnd records the end of a chat request started at the given time
func RecordChatEnd(start time.Time) {
	activeChats.Dec()
	chatDuration.Observe(time.Since(start).Seconds())
}

// RecordModelCall records a single model completion round trip
func RecordModelCall(start time.Time, err error) {
	modelLatency.Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	modelRequests.WithLabelValues(status).Inc()
}

// RecordModelTokens records provider-reported token usage
func RecordModelTokens(prompt, completion int) {
	modelTokens.WithLabelValues("prompt").Add(float64(prompt))
	modelTokens.WithLabelValues("completion").Add(float64(completion))
}

// RecordToolExecution records a single tool execution
func RecordToolExecution(tool string, start time.Time, success bool) {
	toolLatency.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordInvocation records a downstream service invocation
func RecordInvocation(service string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	invokeRequests.WithLabelValues(service, status).Inc()
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
