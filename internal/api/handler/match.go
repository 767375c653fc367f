package handler

import (
	"errors"
	"net/http"

	"matchago/backend/internal/match"
	"matchago/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type matchRequestBody struct {
	Mode         string `json:"mode"`
	GenderFilter string `json:"gender_filter"`
}

// PostMatch runs one match request and returns either the paired room or
// a queued status.
func (h *Handler) PostMatch(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	var body matchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	filter, ok := models.ParseGenderFilter(body.GenderFilter)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gender filter"})
		return
	}

	result, err := h.Engine.Match(c.Request.Context(), models.MatchRequest{
		UserID:       userID,
		Mode:         body.Mode,
		GenderFilter: filter,
	})
	switch {
	case errors.Is(err, match.ErrBadMode), errors.Is(err, match.ErrNoInterests):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, match.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking temporarily unavailable"})
		return
	case err != nil:
		h.Log.Errorw("match request failed", "user", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPending is the poll endpoint the queued side uses to discover its
// room. room_id is null until a match lands.
func (h *Handler) GetPending(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	pm, err := h.Engine.CheckPending(c.Request.Context(), userID)
	if errors.Is(err, match.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking temporarily unavailable"})
		return
	}
	if err != nil {
		h.Log.Errorw("pending check failed", "user", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if pm == nil {
		c.JSON(http.StatusOK, gin.H{"room_id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":      pm.RoomID,
		"partner_id":   pm.PartnerID,
		"partner_name": pm.PartnerName,
	})
}

// PostLeave deregisters the caller from every queue and marker. Fire and
// forget: always reports success, even if internal cleanup partially
// failed — clients must not block on cleanup correctness. Also serves as
// the unload-beacon endpoint.
func (h *Handler) PostLeave(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	h.Engine.Cleanup(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PostHeartbeat refreshes the caller's presence marker.
func (h *Handler) PostHeartbeat(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	guest := c.GetBool(ctxIsGuest)

	if err := h.Engine.Heartbeat(c.Request.Context(), userID, guest); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presence refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
