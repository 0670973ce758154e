package usecase

import "time"

// MetricsRecorder 用例层使用的指标接口, 由 monitoring.Metrics 实现
type MetricsRecorder interface {
	IncIngested()
	IncRejected(reason string)
	IncIngestFailed()
	ObserveStats(outcome string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncIngested() {}
func (noopMetrics) IncRejected(string) {}
func (noopMetrics) IncIngestFailed() {}
func (noopMetrics) ObserveStats(string, time.Duration) {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
