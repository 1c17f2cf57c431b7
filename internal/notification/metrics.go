package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 는 알림 엔진의 Prometheus 지표.
// nil 이어도 메서드를 호출할 수 있다.
type Metrics struct {
	derived       *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	armedTimers   prometheus.Gauge
	triggerEvents *prometheus.CounterVec
}

// NewMetrics 는 reg 에 지표를 등록한다.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		derived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_derived_total",
				Help: "Total number of notifications persisted, by kind",
			},
			[]string{"kind"},
		),
		dispatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_dispatch_total",
				Help: "Total number of push dispatch attempts, by outcome",
			},
			[]string{"outcome"},
		),
		armedTimers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifier_armed_timers",
				Help: "Number of in-process delivery timers currently armed",
			},
		),
		triggerEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_trigger_events_total",
				Help: "Total number of trigger events handled, by type and result",
			},
			[]string{"type", "result"},
		),
	}
}

// Derived 는 저장된 알림 하나를 센다.
func (m *Metrics) Derived(kind Kind) {
	if m == nil {
		return
	}
	m.derived.WithLabelValues(string(kind)).Inc()
}

// Dispatched 는 발송 시도 결과 하나를 센다.
func (m *Metrics) Dispatched(outcome Outcome) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(string(outcome)).Inc()
}

// SetArmedTimers 는 현재 걸려 있는 타이머 수를 기록한다.
func (m *Metrics) SetArmedTimers(n int) {
	if m == nil {
		return
	}
	m.armedTimers.Set(float64(n))
}

// TriggerEvent 는 처리한 트리거 이벤트 하나를 센다.
func (m *Metrics) TriggerEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.triggerEvents.WithLabelValues(eventType, result).Inc()
}
