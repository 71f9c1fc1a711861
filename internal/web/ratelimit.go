// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package web

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default rate limiting values.
const (
	// DefaultBurstCapacity is the number of requests a client can make in a
	// burst before rate limiting kicks in.
	DefaultBurstCapacity = 5

	// DefaultSustainedRate is the token refill rate in requests per second.
	DefaultSustainedRate = 1.0

	// MinSustainedRate ensures the refill rate is at least 0.1 tokens/second.
	MinSustainedRate = 0.1

	// DefaultCleanupInterval is how often idle clients are forgotten.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultClientMaxAge is how long a client may stay idle before cleanup
	// removes its bucket.
	DefaultClientMaxAge = time.Hour
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// BurstCapacity is the maximum number of requests allowed in a burst.
	// Defaults to DefaultBurstCapacity if zero or negative.
	BurstCapacity int

	// SustainedRate is the number of requests per second allowed as sustained rate.
	// Defaults to DefaultSustainedRate if zero or negative.
	SustainedRate float64

	// CleanupInterval defaults to DefaultCleanupInterval if zero.
	CleanupInterval time.Duration

	// ClientMaxAge defaults to DefaultClientMaxAge if zero.
	ClientMaxAge time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

type clientBucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-client token bucket. It is safe for concurrent use.
//
// A background goroutine forgets idle clients. Call Close to stop it.
type RateLimiter struct {
	mu            sync.Mutex
	clients       map[string]*clientBucket
	burstCapacity int
	sustainedRate float64
	clientMaxAge  time.Duration
	now           func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	clientGauge prometheus.Gauge
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// reg may be nil.
func NewRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	burstCapacity := cfg.BurstCapacity
	if burstCapacity <= 0 {
		burstCapacity = DefaultBurstCapacity
	}

	sustainedRate := cfg.SustainedRate
	if sustainedRate <= 0 {
		sustainedRate = DefaultSustainedRate
	}
	sustainedRate = max(sustainedRate, MinSustainedRate)

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	clientMaxAge := cfg.ClientMaxAge
	if clientMaxAge <= 0 {
		clientMaxAge = DefaultClientMaxAge
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rl := &RateLimiter{
		clients:       make(map[string]*clientBucket),
		burstCapacity: burstCapacity,
		sustainedRate: sustainedRate,
		clientMaxAge:  clientMaxAge,
		now:           now,
		stopChan:      make(chan struct{}),
	}

	if reg != nil {
		rl.clientGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridquest_ratelimiter_clients",
			Help: "Current number of tracked rate limiter clients",
		})
		reg.MustRegister(rl.clientGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(cleanupInterval)

	return rl
}

// Allow consumes a token for key. It returns false and the time until the
// next token when the bucket is empty.
func (rl *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	bucket, exists := rl.clients[key]
	if !exists {
		bucket = &clientBucket{tokens: float64(rl.burstCapacity), lastCheck: now}
		rl.clients[key] = bucket
		rl.updateGaugeLocked()
	}

	elapsed := now.Sub(bucket.lastCheck).Seconds()
	bucket.tokens = min(bucket.tokens+elapsed*rl.sustainedRate, float64(rl.burstCapacity))
	bucket.lastCheck = now

	if bucket.tokens >= 1.0 {
		bucket.tokens--
		return true, 0
	}

	deficit := 1.0 - bucket.tokens
	return false, time.Duration(deficit / rl.sustainedRate * float64(time.Second))
}

// ClientCount returns the number of tracked clients.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Cleanup removes clients that haven't been seen since maxAge ago.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for key, bucket := range rl.clients {
		if bucket.lastCheck.Before(threshold) {
			delete(rl.clients, key)
		}
	}
	rl.updateGaugeLocked()
}

func (rl *RateLimiter) updateGaugeLocked() {
	if rl.clientGauge != nil {
		rl.clientGauge.Set(float64(len(rl.clients)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.clientMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit. It is safe to
// call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopChan) })
	rl.wg.Wait()
}
