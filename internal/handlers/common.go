// Package handlers holds the helpers shared by the per-surface handler
// packages and the endpoints that belong to no surface.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestTimeout bounds the work of a single request.
const RequestTimeout = 10 * time.Second

// Ctx derives the per-request context.
func Ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

// ObjectIDParam parses the named path parameter. On failure it writes a 400
// with msg and returns false.
func ObjectIDParam(c *gin.Context, name, msg string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, msg)
		return primitive.NilObjectID, false
	}
	return id, true
}

// Internal logs nothing itself; the request logger picks the error up from
// c.Errors.
func Internal(c *gin.Context, err error) {
	_ = c.Error(err)
	utils.RespondError(c, http.StatusInternalServerError, "Something went wrong")
}

// ModelError answers a domain validation failure with its message and
// anything else with a 500.
func ModelError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		utils.RespondFail(c, http.StatusBadRequest, verr.Message)
		return
	}
	Internal(c, err)
}

// GuestSessionHeader carries the id of an anonymous cart.
const GuestSessionHeader = "X-Guest-Session"

// GuestSession returns the guest session id sent by the client, or "" when
// it is missing or not a UUID. fallback is used when the header is absent.
func GuestSession(c *gin.Context, fallback string) string {
	v := strings.TrimSpace(c.GetHeader(GuestSessionHeader))
	if v == "" {
		v = strings.TrimSpace(fallback)
	}
	if _, err := uuid.Parse(v); err != nil {
		return ""
	}
	return v
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is healthy"})
}

const landingPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Stride API</title></head>
<body style="font-family: sans-serif; max-width: 40rem; margin: 3rem auto;">
<h1>Stride API</h1>
<p>The shoe store back end is running.</p>
<ul>
<li><a href="/api/health">/api/health</a></li>
<li><a href="/api/shoes">/api/shoes</a></li>
</ul>
</body>
</html>`

func Root(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
}
