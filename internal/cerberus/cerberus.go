package cerberus

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/config"
	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/metrics"
	"github.com/fleetdesk/backend/internal/util"
)

// SessionHeader carries the client session id in both directions.
const SessionHeader = "X-Session-ID"

// IPSessionPrefix marks a session key derived from the client address. It is
// used when the request carries no valid session header.
const IPSessionPrefix = "ip:"

// FloodIdle is how long a client's flood bucket may go unused before Prune
// drops it.
const FloodIdle = 10 * time.Minute

const actorKey = "actor"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Cerberus is the HTTP-level security facade: it identifies the caller,
// applies a coarse per-IP flood limit and turns blocked identifiers away
// before any handler runs.
type Cerberus struct {
	cfg    config.SecurityConfig
	ledger *audit.Ledger

	limiters sync.Map
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type floodBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// New creates a new Cerberus instance
func New(cfg config.SecurityConfig, ledger *audit.Ledger) *Cerberus {
	burst := cfg.FloodBurst
	if burst <= 0 {
		burst = 1
	}
	return &Cerberus{
		cfg:    cfg,
		ledger: ledger,
		rate:   rate.Limit(cfg.FloodRPS),
		burst:  burst,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to track bucket activity.
func (c *Cerberus) WithClock(now func() time.Time) *Cerberus {
	c.now = now
	return c
}

// FloodLimitEnabled reports whether the per-IP token bucket is active.
func (c *Cerberus) FloodLimitEnabled() bool {
	return c.cfg.FloodRPS > 0
}

// Identify attaches the caller's Actor to the request context.
func (c *Cerberus) Identify() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identify(ctx)
		ctx.Next()
	}
}

// Middleware identifies the caller, then enforces the flood limit and
// active blocks.
func (c *Cerberus) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := identify(ctx)

		if c.FloodLimitEnabled() && !c.limiter(actor.ClientIP).Allow() {
			metrics.IncRateLimited("request", "api")
			logger.Log().WithFields(map[string]interface{}{
				"source":   "cerberus",
				"decision": "flood",
				"ip":       actor.ClientIP,
				"path":     util.SanitizeForLog(ctx.Request.URL.Path),
			}).Warn("request flood limited")
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		if c.ledger != nil && c.ledger.IsBlocked(actor.Identifier()) {
			logger.Log().WithFields(map[string]interface{}{
				"source":     "cerberus",
				"decision":   "block",
				"identifier": util.LogSafe(actor.Identifier(), 64),
				"path":       util.SanitizeForLog(ctx.Request.URL.Path),
			}).Warn("blocked identifier refused")
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "temporarily blocked after repeated security violations"})
			return
		}

		ctx.Next()
	}
}

func (c *Cerberus) limiter(ip string) *rate.Limiter {
	v, ok := c.limiters.Load(ip)
	if !ok {
		v, _ = c.limiters.LoadOrStore(ip, &floodBucket{limiter: rate.NewLimiter(c.rate, c.burst)})
	}
	b := v.(*floodBucket)
	b.lastSeen.Store(c.now().UnixNano())
	return b.limiter
}

// Prune drops flood buckets unused for longer than idle and returns how many
// were dropped.
func (c *Cerberus) Prune(idle time.Duration) int {
	cutoff := c.now().Add(-idle).UnixNano()
	n := 0
	c.limiters.Range(func(key, v any) bool {
		if v.(*floodBucket).lastSeen.Load() < cutoff {
			c.limiters.Delete(key)
			n++
		}
		return true
	})
	return n
}

// Clients returns the number of tracked flood buckets.
func (c *Cerberus) Clients() int {
	n := 0
	c.limiters.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// ActorFrom returns the actor stored by Identify or Middleware.
func ActorFrom(ctx *gin.Context) interceptor.Actor {
	if v, ok := ctx.Get(actorKey); ok {
		if a, ok := v.(interceptor.Actor); ok {
			return a
		}
	}
	return interceptor.ActorFrom(ctx.Request.Context())
}

func identify(ctx *gin.Context) interceptor.Actor {
	if v, ok := ctx.Get(actorKey); ok {
		if a, ok := v.(interceptor.Actor); ok {
			return a
		}
	}

	actor := interceptor.Actor{
		UserID:   subject(ctx.GetHeader("Authorization")),
		ClientIP: ctx.ClientIP(),
	}
	// Without a valid header the caller is keyed on its address. The fresh id
	// is only offered for the client to send back.
	session := ctx.GetHeader(SessionHeader)
	if sessionIDPattern.MatchString(session) {
		actor.SessionID = session
	} else {
		actor.SessionID = IPSessionPrefix + actor.ClientIP
		session = uuid.NewString()
	}

	ctx.Set(actorKey, actor)
	ctx.Header(SessionHeader, session)
	ctx.Request = ctx.Request.WithContext(interceptor.WithActor(ctx.Request.Context(), actor))
	return actor
}

// subject reads the sub claim of a bearer token. The signature is not
// checked: the value keys rate windows and audit records, it grants nothing.
func subject(header string) string {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return util.LogSafe(sub, 64)
}
