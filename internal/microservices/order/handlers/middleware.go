package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"restaurant-orders/internal/common/logger"
)

const (
	actorKey     = "actorId"
	requestIDKey = "requestId"
)

// RequestLog tags every request with an id and logs its outcome.
func RequestLog(lg *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()

		fields := map[string]any{
			"request_id":  rid,
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError {
			lg.Error("http_request", c.Errors.Last().Err, fields)
			return
		}
		lg.Info("http_request", fields)
	}
}

// Limit rejects requests with 503 while max requests are already in flight.
// A max below one is treated as one.
func Limit(max int) gin.HandlerFunc {
	if max < 1 {
		max = 1
	}
	sem := make(chan struct{}, max)
	return func(c *gin.Context) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			c.Next()
		default:
			writeProblem(c, http.StatusServiceUnavailable, "overloaded", "too many concurrent requests")
		}
	}
}

var ErrEmptySecret = errors.New("jwt secret must not be empty")

// Auth accepts an HMAC-signed bearer token and stores the acting user's id,
// taken from the sub claim or a userId claim. An empty secret is refused,
// since anyone can sign with an empty key.
func Auth(secret string) (gin.HandlerFunc, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeProblem(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(strings.TrimPrefix(h, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			writeProblem(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		actor, err := actorFromClaims(claims)
		if err != nil {
			writeProblem(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}, nil
}

func actorFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	for _, k := range []string{"sub", "userId"} {
		if s, ok := claims[k].(string); ok && s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return uuid.Nil, errors.New(k + " claim is not a UUID")
			}
			return id, nil
		}
	}
	return uuid.Nil, errors.New("token carries no user id")
}

func currentActor(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(actorKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
