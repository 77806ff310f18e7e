package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 5

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute

	maxLoginBody = int64(16 << 10)
)

func retryAfter(c *gin.Context, ttl time.Duration, what string) {
	minutes := int(math.Ceil(ttl.Minutes()))
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
	utils.AbortFail(c, http.StatusTooManyRequests, fmt.Sprintf("Too many %s. Try again in %d minutes", what, minutes))
}

// LoginRateLimit locks an email out after LoginMaxAttempts failed logins.
// A successful login resets the counter.
func LoginRateLimit(store cache.AttemptStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.AbortFail(c, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			utils.AbortFail(c, http.StatusBadRequest, "Could not read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var input struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &input) != nil || strings.TrimSpace(input.Email) == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "login:" + strings.ToLower(strings.TrimSpace(input.Email))

		ttl, err := store.Cooldown(ctx, key)
		if err != nil {
			// Fail open: a Redis outage must not lock every user out.
			log.Warn("login rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if ttl > 0 {
			retryAfter(c, ttl, "failed login attempts")
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			remaining, err := store.Hit(ctx, key, LoginMaxAttempts, LoginCooldown)
			if err != nil {
				log.Warn("login attempt not counted", zap.Error(err))
				return
			}
			if remaining == 0 {
				log.Info("login locked", zap.String("key", key), zap.Duration("cooldown", LoginCooldown))
			}
		case http.StatusOK:
			if err := store.Reset(ctx, key); err != nil {
				log.Warn("login attempts not reset", zap.Error(err))
			}
		}
	}
}

// RegisterRateLimit caps account creation per client IP.
func RegisterRateLimit(store cache.AttemptStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "register:" + c.ClientIP()

		ttl, err := store.Cooldown(ctx, key)
		if err != nil {
			log.Warn("register rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if ttl > 0 {
			retryAfter(c, ttl, "registrations")
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusCreated {
			if _, err := store.Hit(ctx, key, RegisterMaxAttempts, RegisterCooldown); err != nil {
				log.Warn("registration not counted", zap.Error(err))
			}
		}
	}
}
