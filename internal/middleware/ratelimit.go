package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/inkwell-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitKeyPrefix is the Redis key prefix for rate limiting
const RateLimitKeyPrefix = "ratelimit:"

// windowScript increments the window counter and starts its expiry on the
// first hit, returning {count, pttl}. It needs only INCR, PTTL and PEXPIRE.
var windowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// WindowLimit counts requests per signed-in user, or per client IP before
// authentication, in a fixed Redis window shared by all server instances.
// Redis failures let the request through.
type WindowLimit struct {
	rdb    redis.Cmdable
	name   string
	window time.Duration
	max    int
	log    *zap.Logger
}

func NewWindowLimit(rdb redis.Cmdable, name string, window time.Duration, max int, log *zap.Logger) *WindowLimit {
	return &WindowLimit{rdb: rdb, name: name, window: window, max: max, log: log}
}

func (l *WindowLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		subject := clientip.LimitKey(r)
		if userID, ok := UserID(ctx); ok {
			subject = userID.String()
		}
		key := RateLimitKeyPrefix + l.name + ":" + subject

		res, err := windowScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			l.log.Warn("rate limit unavailable", zap.String("limit", l.name), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		count := int(res[0])
		ttl := time.Duration(res[1]) * time.Millisecond
		reset := time.Now().Add(ttl)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(l.max-count, 0)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > l.max {
			retry := int(ttl.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, retry)))
			return
		}
		next.ServeHTTP(w, r)
	})
}
