package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"obrador/internal/domain/order"
	"obrador/internal/infrastructure/http/v1/dto"
)

// DraftHandler serves per-actor order drafts. A shop that loses its
// connection mid-edit recovers the form from here instead of retyping it.
type DraftHandler struct {
	lifecycle *order.Lifecycle
}

func NewDraftHandler(lifecycle *order.Lifecycle) *DraftHandler {
	return &DraftHandler{lifecycle: lifecycle}
}

// Save upserts the draft under the given key for the calling actor.
func (h *DraftHandler) Save(c *gin.Context) {
	var req dto.DraftRequest
	if !bindJSON(c, &req) {
		return
	}

	d := &order.Draft{
		Actor:   actor(c),
		Key:     c.Param("key"),
		Payload: req.Payload,
	}

	if err := h.lifecycle.SaveDraft(c.Request.Context(), d); err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, dto.SuccessResponse{Success: true})
}

// Get returns the actor's draft for the given key.
func (h *DraftHandler) Get(c *gin.Context) {
	d, err := h.lifecycle.GetDraft(c.Request.Context(), actor(c), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, d)
}

// Delete discards the draft. Deleting a missing draft succeeds.
func (h *DraftHandler) Delete(c *gin.Context) {
	if err := h.lifecycle.DiscardDraft(c.Request.Context(), actor(c), c.Param("key")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
