// Package ratelimit throttles callers with per-minute, per-hour and
// per-day quotas, tracked separately for every key.
package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// Limits are the request quotas per window. A limit of 0 disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Limiter enforces Limits independently for every key (the contact form
// keys on client IP). Keys with no requests in the last day are dropped
// at most once an hour.
type Limiter struct {
	limits  Limits
	enabled bool
	now     func() time.Time

	mu      sync.Mutex
	history map[string][]time.Time
	lastGC  time.Time
}

// NewLimiter creates a limiter. When enabled is false every request is allowed.
func NewLimiter(limits Limits, enabled bool) *Limiter {
	return &Limiter{
		limits:  limits,
		enabled: enabled,
		now:     time.Now,
		history: make(map[string][]time.Time),
	}
}

// Allow records a request for key and reports whether it is within limits.
// Rejected requests are not recorded.
func (l *Limiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.collect(now)

	times := trim(l.history[key], now.Add(-24*time.Hour))
	w := counts(times, now)
	if exceeded(w.minute, l.limits.PerMinute) ||
		exceeded(w.hour, l.limits.PerHour) ||
		exceeded(w.day, l.limits.PerDay) {
		l.history[key] = times
		return false
	}

	l.history[key] = append(times, now)
	return true
}

// Stats returns the counters for key.
func (l *Limiter) Stats(key string) Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := counts(trim(l.history[key], now.Add(-24*time.Hour)), now)
	return Stats{
		Enabled:             true,
		RequestsLastMinute:  w.minute,
		RequestsLastHour:    w.hour,
		RequestsLastDay:     w.day,
		LimitPerMinute:      l.limits.PerMinute,
		LimitPerHour:        l.limits.PerHour,
		LimitPerDay:         l.limits.PerDay,
		RemainingThisMinute: max(0, l.limits.PerMinute-w.minute),
		RemainingThisHour:   max(0, l.limits.PerHour-w.hour),
		RemainingThisDay:    max(0, l.limits.PerDay-w.day),
	}
}

// Reset forgets every request recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.history, key)
}

// Len is the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// collect drops idle keys. Callers hold l.mu.
func (l *Limiter) collect(now time.Time) {
	if now.Sub(l.lastGC) <= time.Hour {
		return
	}
	cutoff := now.Add(-24 * time.Hour)
	for key, times := range l.history {
		if len(trim(times, cutoff)) == 0 {
			delete(l.history, key)
		}
	}
	l.lastGC = now
}

type windowCounts struct {
	minute, hour, day int
}

// counts sizes each window over times, which is sorted and already
// limited to the last day.
func counts(times []time.Time, now time.Time) windowCounts {
	return windowCounts{
		minute: len(times) - after(times, now.Add(-time.Minute)),
		hour:   len(times) - after(times, now.Add(-time.Hour)),
		day:    len(times),
	}
}

// trim drops the entries at or before cutoff.
func trim(times []time.Time, cutoff time.Time) []time.Time {
	return times[after(times, cutoff):]
}

// after is the index of the first entry later than cutoff.
func after(times []time.Time, cutoff time.Time) int {
	return sort.Search(len(times), func(i int) bool { return times[i].After(cutoff) })
}

func exceeded(count, limit int) bool {
	return limit > 0 && count >= limit
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	RequestsLastDay     int  `json:"requests_last_day"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	LimitPerDay         int  `json:"limit_per_day"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
	RemainingThisDay    int  `json:"remaining_this_day"`
}
