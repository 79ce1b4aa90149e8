package source

import (
	"log/slog"
	"sync"
	"time"
)

// rateWindow is the request count after which the failure rate is checked.
const rateWindow = 20

// Breaker stops calling the listings backend after repeated failures
// and lets one attempt through again once resetTimeout has passed.
type Breaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	logger           *slog.Logger
	now              func() time.Time

	failures            int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// BreakerStatus is a point-in-time view of a Breaker.
type BreakerStatus struct {
	Open                bool `json:"open"`
	Failures            int  `json:"failures"`
	TotalRequests       int  `json:"total_requests"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}

// NewBreaker opens after failureThreshold consecutive failures, or when at least
// 40% of the last rateWindow requests failed.
func NewBreaker(failureThreshold int, resetTimeout time.Duration, logger *slog.Logger) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// RecordSuccess records a successful request
func (cb *Breaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.consecutiveFailures = 0
	cb.rollWindow()
}

// RecordFailure records a failed request; statusCode is 0 for transport errors
func (cb *Breaker) RecordFailure(statusCode int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	if cb.consecutiveFailures >= cb.failureThreshold {
		if !cb.isOpen {
			cb.logger.Warn("listings backend circuit open",
				"consecutive_failures", cb.consecutiveFailures,
				"status_code", statusCode,
				"retry_after", cb.resetTimeout)
		}
		cb.isOpen = true
		return
	}

	if cb.totalRequests >= rateWindow {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.40 {
			if !cb.isOpen {
				cb.logger.Warn("listings backend circuit open",
					"failure_rate", failureRate,
					"failures", cb.failures,
					"total", cb.totalRequests,
					"retry_after", cb.resetTimeout)
			}
			cb.isOpen = true
		}
	}
	cb.rollWindow()
}

// CanProceed checks if requests are allowed
func (cb *Breaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.logger.Info("listings backend circuit half-open", "after", cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// Status returns the current counters
func (cb *Breaker) Status() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return BreakerStatus{
		Open:                cb.isOpen,
		Failures:            cb.failures,
		TotalRequests:       cb.totalRequests,
		ConsecutiveFailures: cb.consecutiveFailures,
	}
}

// rollWindow restarts the rate window once it is full and the circuit stayed closed.
func (cb *Breaker) rollWindow() {
	if cb.totalRequests >= rateWindow && !cb.isOpen {
		cb.failures = 0
		cb.totalRequests = 0
	}
}
