package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages timed by TurnMetrics
const (
	StageCapture   = "capture"
	StageResolve   = "resolve"
	StageDispatch  = "dispatch"
	StageSynthesis = "synthesis"
)

var (
	// Turn metrics
	activeTurns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicecmd_active_turns",
		Help: "Number of voice turns in progress",
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_turns_total",
		Help: "Total number of voice turns by outcome",
	}, []string{"outcome"}) // completed, cancelled, error, discarded

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicecmd_turn_duration_seconds",
		Help:    "Duration of voice turns from listening to idle",
		Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30},
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicecmd_stage_duration_seconds",
		Help:    "Latency of each pipeline stage in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	// Intent metrics
	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_intents_total",
		Help: "Resolved intents by kind",
	}, []string{"kind"})

	// Capture metrics
	captureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_capture_total",
		Help: "Capture attempts by backend mode and status",
	}, []string{"mode", "status"})

	// Synthesis metrics
	synthesisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_synthesis_total",
		Help: "Synthesis attempts by backend and status",
	}, []string{"backend", "status"})

	synthesisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicecmd_synthesis_fallbacks_total",
		Help: "Times the local synthesizer was used after the remote one failed",
	})

	// Executor metrics
	executorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_executor_requests_total",
		Help: "Command executor calls by status",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voicecmd_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"service", "to"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecmd_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// TurnMetrics tracks metrics for a single voice turn
type TurnMetrics struct {
	turnID    string
	startTime time.Time

	mu     sync.Mutex
	stages map[string]time.Time
	ended  bool
}

// NewTurnMetrics creates a new metrics tracker for a turn and counts it active
func NewTurnMetrics(turnID string) *TurnMetrics {
	activeTurns.Inc()
	return &TurnMetrics{
		turnID:    turnID,
		startTime: time.Now(),
		stages:    make(map[string]time.Time),
	}
}

// StageStart records the start of a pipeline stage
func (m *TurnMetrics) StageStart(stage string) {
	m.mu.Lock()
	m.stages[stage] = time.Now()
	m.mu.Unlock()
}

// StageEnd observes the latency of a stage started with StageStart
func (m *TurnMetrics) StageEnd(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if start, ok := m.stages[stage]; ok {
		stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		delete(m.stages, stage)
	}
}

// End records the turn outcome. Only the first call has an effect.
func (m *TurnMetrics) End(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended {
		return
	}
	m.ended = true

	activeTurns.Dec()
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordIntent counts a resolved intent
func RecordIntent(kind string) {
	intentsTotal.WithLabelValues(kind).Inc()
}

// RecordCapture counts a capture attempt
func RecordCapture(mode string, success bool) {
	captureTotal.WithLabelValues(mode, statusLabel(success)).Inc()
}

// RecordSynthesis counts a synthesis attempt on one backend
func RecordSynthesis(backend string, success bool) {
	synthesisTotal.WithLabelValues(backend, statusLabel(success)).Inc()
}

// RecordSynthesisFallback counts a switch to the local synthesizer
func RecordSynthesisFallback() {
	synthesisFallbacks.Inc()
}

// RecordExecutorRequest counts a command executor call
func RecordExecutorRequest(success bool) {
	executorRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int, to string) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
	circuitBreakerTransitions.WithLabelValues(service, to).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
