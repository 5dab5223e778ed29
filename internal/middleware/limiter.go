package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"storefront-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate limit tiers
const (
	// Checkout / webhook endpoints (strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

func init() {
	go cleanupVisitors()
}

// getVisitor retrieves or creates a rate limiter for the given key.
func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes stale entries to prevent the map growing forever.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// RateLimit applies the given tier per caller. Authenticated callers are
// keyed by user id, anonymous ones by IP.
func RateLimit(strict bool) func(http.Handler) http.Handler {
	limit, burst, tier := limitGeneral, burstGeneral, "general"
	if strict {
		limit, burst, tier = limitStrict, burstStrict, "strict"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity string
			if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
				identity = "user:" + userID
			} else {
				ip, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					ip = r.RemoteAddr
				}
				identity = "ip:" + ip
			}

			// Same caller gets separate quotas for strict vs general actions.
			key := fmt.Sprintf("%s:%s", identity, tier)

			limiter := getVisitor(key, limit, burst)
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
