// Package handlers contains the v1 HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obrador/internal/core/apperror"
	"obrador/internal/core/appctx"
	"obrador/internal/core/id"
	"obrador/internal/infrastructure/storage/postgres"
)

// bindJSON binds the request body and wraps binding failures as validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperror.NewValidation("invalid request body").WithCause(err))
		return false
	}
	return true
}

// pathID parses the :id path parameter as a UUID.
func pathID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.NewValidation("invalid id").
			WithDetail("field", "id").
			WithCause(err))
		return id.Nil(), false
	}
	return parsed, true
}

func actor(c *gin.Context) string {
	return appctx.ActorName(c.Request.Context())
}

func actorWarehouse(c *gin.Context) string {
	return appctx.ActorWarehouse(c.Request.Context())
}

// respond writes a JSON response and, when the request carried an
// idempotency key, stores it for replay.
func respond(c *gin.Context, status int, body any) {
	if key, exists := c.Get("idempotency_key"); exists {
		if store, ok := c.Get("idempotency_store"); ok {
			if s, ok := store.(*postgres.IdempotencyStore); ok && s != nil {
				_ = s.CompleteKey(c.Request.Context(), key.(string), status, body)
			}
		}
	}
	c.JSON(status, body)
}

func ok(c *gin.Context, body any) {
	respond(c, http.StatusOK, body)
}

func created(c *gin.Context, body any) {
	respond(c, http.StatusCreated, body)
}
