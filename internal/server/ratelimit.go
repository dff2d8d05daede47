package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimits tracks a token-bucket limiter per client IP. Entries for IPs
// that have gone quiet longer than idleAfter are evicted by a background
// sweep so the map stays bounded.
type clientLimits struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	rps       rate.Limit
	burst     int
	idleAfter time.Duration
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimits(rps float64, burst int, idleAfter time.Duration) *clientLimits {
	cl := &clientLimits{
		clients:   make(map[string]*clientEntry),
		rps:       rate.Limit(rps),
		burst:     burst,
		idleAfter: idleAfter,
	}
	go cl.evictIdle()
	return cl
}

func (cl *clientLimits) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cl.mu.Lock()
		for ip, e := range cl.clients {
			if time.Since(e.lastSeen) > cl.idleAfter {
				delete(cl.clients, ip)
			}
		}
		cl.mu.Unlock()
	}
}

func (cl *clientLimits) allow(ip string) bool {
	cl.mu.Lock()
	e, ok := cl.clients[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[ip] = e
	}
	e.lastSeen = time.Now()
	cl.mu.Unlock()

	return e.limiter.Allow()
}

// RateLimitMiddleware throttles requests per client IP. Over-limit requests
// get a 429 without reaching the handler.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limits := newClientLimits(rps, burst, 3*time.Minute)

	return func(c *gin.Context) {
		if !limits.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
