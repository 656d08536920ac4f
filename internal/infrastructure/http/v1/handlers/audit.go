package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"obrador/internal/core/apperror"
	"obrador/internal/infrastructure/http/v1/dto"
	"obrador/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the change log of an entity.
type AuditHandler struct {
	store *postgres.AuditStore
}

func NewAuditHandler(store *postgres.AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

var auditEntityTypes = map[string]string{
	"orders":    "Order",
	"transfers": "Transfer",
}

type auditEntryResponse struct {
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// History returns recent change entries for one entity, newest first.
func (h *AuditHandler) History(c *gin.Context) {
	entityType, known := auditEntityTypes[c.Param("entity")]
	if !known {
		_ = c.Error(apperror.NewValidation("unknown entity type").
			WithDetail("field", "entity").
			WithDetail("entity", c.Param("entity")))
		return
	}

	entityID, valid := pathID(c)
	if !valid {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, err := h.store.EntityHistory(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	entries := make([]auditEntryResponse, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, auditEntryResponse{
			Action:    row.Action,
			Actor:     row.Actor,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
		})
	}

	ok(c, dto.NewListResponse(entries))
}
