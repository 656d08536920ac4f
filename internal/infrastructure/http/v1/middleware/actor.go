package middleware

import (
	"github.com/gin-gonic/gin"

	"obrador/internal/core/appctx"
)

const (
	HeaderActor          = "X-Actor"
	HeaderActorWarehouse = "X-Actor-Warehouse"
)

// Actor extracts the caller identity from request headers into the context.
// Authentication lives at the gateway in front of this service; here we only
// record who acted for status history, audit entries and the destination
// check on transfer confirmation.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := &appctx.ActorContext{
			Actor:       c.GetHeader(HeaderActor),
			WarehouseID: c.GetHeader(HeaderActorWarehouse),
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
