// Package security guards the connection server against abusive clients:
// a bounded, per-source-IP sliding-window rate limiter.
package security

import (
	"sync"
	"time"
)

// rateLimitEntry tracks connection rate for a single source IP.
type rateLimitEntry struct {
	windowStart    time.Time // start of the current 1-second sliding window
	cooldownExpiry time.Time // when the cooldown ends (zero if not in cooldown)
	lastSeen       time.Time // last connection seen, for LRU eviction
	count          int       // connections seen in the current window
}

// RateLimiter bounds how many connections per second a single source IP may
// open before it is placed in cooldown and refused outright.
type RateLimiter struct {
	threshold  int // max connections/second per source IP
	cooldown   time.Duration
	maxEntries int // bound on tracked source IPs, to cap memory under a spoofed-source flood

	mu            sync.Mutex
	sources       map[string]*rateLimitEntry
	evictionCount uint64
}

// NewRateLimiter builds a limiter allowing up to threshold connections per
// second per source IP, placing an offending IP in cooldown for the given
// duration, and tracking at most maxEntries distinct source IPs.
func NewRateLimiter(threshold int, cooldown time.Duration, maxEntries int) *RateLimiter {
	return &RateLimiter{
		threshold:  threshold,
		cooldown:   cooldown,
		maxEntries: maxEntries,
		sources:    make(map[string]*rateLimitEntry),
	}
}

// Allow reports whether a new connection from sourceIP should be accepted.
func (rl *RateLimiter) Allow(sourceIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.sources[sourceIP]
	if !exists {
		rl.sources[sourceIP] = &rateLimitEntry{count: 1, windowStart: now, lastSeen: now}
		if len(rl.sources) > rl.maxEntries {
			rl.evict()
		}
		return true
	}

	if !entry.cooldownExpiry.IsZero() && now.Before(entry.cooldownExpiry) {
		entry.lastSeen = now
		return false
	}

	if now.Sub(entry.windowStart) > time.Second || !entry.cooldownExpiry.IsZero() {
		entry.count = 1
		entry.windowStart = now
		entry.cooldownExpiry = time.Time{}
	} else {
		entry.count++
	}
	entry.lastSeen = now

	if entry.count > rl.threshold {
		entry.cooldownExpiry = now.Add(rl.cooldown)
		return false
	}
	return true
}

// evict drops the oldest 10% of tracked entries by lastSeen. Must be
// called while holding rl.mu.
func (rl *RateLimiter) evict() {
	evictCount := rl.maxEntries / 10
	if evictCount == 0 {
		evictCount = 1
	}

	type aged struct {
		ip       string
		lastSeen time.Time
	}
	entries := make([]aged, 0, len(rl.sources))
	for ip, e := range rl.sources {
		entries = append(entries, aged{ip: ip, lastSeen: e.lastSeen})
	}

	for i := 0; i < evictCount && i < len(entries); i++ {
		oldest := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].lastSeen.Before(entries[oldest].lastSeen) {
				oldest = j
			}
		}
		entries[i], entries[oldest] = entries[oldest], entries[i]
	}

	evicted := 0
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(rl.sources, entries[i].ip)
		evicted++
	}
	rl.evictionCount += uint64(evicted)
}

// Cleanup removes entries not seen in the last minute. Call periodically
// (e.g. every 5 minutes) so a long-running agent doesn't accumulate stale
// source-IP entries from clients that came and went.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, e := range rl.sources {
		if now.Sub(e.lastSeen) > time.Minute {
			delete(rl.sources, ip)
		}
	}
}
