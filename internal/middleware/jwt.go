package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ctxUser   = "user"
	ctxUserID = "user_id"
)

// UserFinder is the lookup the auth middleware needs.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// bearerToken reads "Authorization: Bearer <token>". Websocket clients
// cannot set headers, so a token query parameter is accepted as well.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return c.Query("token")
}

// AuthRequired rejects the request unless it carries a valid token for a
// user that still exists.
func AuthRequired(tokens *utils.TokenManager, users UserFinder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			utils.AbortFail(c, http.StatusUnauthorized, "You are not logged in")
			return
		}
		user, status, msg := authenticate(c, tokens, users, log, raw)
		if user == nil {
			if status >= 500 {
				utils.AbortError(c, status, msg)
			} else {
				utils.AbortFail(c, status, msg)
			}
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets the
// request through otherwise.
func OptionalAuth(tokens *utils.TokenManager, users UserFinder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if user, _, _ := authenticate(c, tokens, users, log, raw); user != nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens *utils.TokenManager, users UserFinder, log *zap.Logger, raw string) (*models.User, int, string) {
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	user, err := users.FindByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, http.StatusUnauthorized, "User no longer exists"
	}
	if err != nil {
		log.Error("auth user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, http.StatusInternalServerError, "Authentication failed"
	}
	return user, 0, ""
}

func setUser(c *gin.Context, u *models.User) {
	c.Set(ctxUser, u)
	c.Set(ctxUserID, u.ID.Hex())
}

// CurrentUser returns the user set by AuthRequired or OptionalAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

// MustUser is CurrentUser for routes behind AuthRequired.
func MustUser(c *gin.Context) *models.User {
	u, ok := CurrentUser(c)
	if !ok {
		panic("middleware: MustUser called on a route without AuthRequired")
	}
	return u
}
