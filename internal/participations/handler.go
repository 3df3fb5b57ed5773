package participations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/pkg/response"
)

// Store is the persistence surface the participations handler needs.
type Store interface {
	Join(ctx context.Context, eventID, userID uuid.UUID) (*models.Participation, error)
	Leave(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	GetWithEventOwner(ctx context.Context, id uuid.UUID) (*models.Participation, uuid.UUID, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ParticipationStatus) (*models.Participation, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// EventGetter checks that the target event exists before a join.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// SetStatusRequest is the body for PATCH /participations/:id/status.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles participation HTTP endpoints.
type Handler struct {
	store  Store
	events EventGetter
	logger *zap.Logger
}

// NewHandler creates a participations handler.
func NewHandler(store Store, events EventGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, logger: logger}
}

// Join handles POST /events/:id/join. Inserts status=accepted directly; there
// is no pending approval step. Duplicate joins return 409.
func (h *Handler) Join(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if _, err := h.events.GetByID(c.Request.Context(), eventID); err != nil {
		response.NotFound(c, "event not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.store.Join(c.Request.Context(), eventID, userID)
	if err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			response.Conflict(c, "already joined this event")
			return
		}
		h.logger.Error("join failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to join event")
		return
	}
	response.Created(c, p)
}

// Leave handles DELETE /events/:id/leave. Removes the caller's own row.
func (h *Handler) Leave(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	removed, err := h.store.Leave(c.Request.Context(), eventID, userID)
	if err != nil {
		h.logger.Error("leave failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to leave event")
		return
	}
	if !removed {
		response.NotFound(c, "not a participant of this event")
		return
	}
	response.NoContent(c)
}

// SetStatus handles PATCH /participations/:id/status. Only the event's
// organizer may accept or decline; enforced here, not by UI hiding. The two
// transitions are independently well-defined and repeatable in either order.
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participation id")
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.ParticipationStatus(req.Status)
	if status != models.ParticipationAccepted && status != models.ParticipationDeclined {
		response.BadRequest(c, "status must be accepted or declined")
		return
	}

	_, owner, err := h.store.GetWithEventOwner(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "participation not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if owner != userID {
		response.Forbidden(c, "only the event organizer can change participation status")
		return
	}

	p, err := h.store.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		h.logger.Error("set status failed", zap.Error(err), zap.String("participation_id", id.String()))
		response.Internal(c, "failed to update status")
		return
	}
	response.OK(c, p)
}

// Remove handles DELETE /participations/:id: organizer-initiated removal of a
// participant, any state.
func (h *Handler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participation id")
		return
	}
	_, owner, err := h.store.GetWithEventOwner(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "participation not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if owner != userID {
		response.Forbidden(c, "only the event organizer can remove participants")
		return
	}
	if err := h.store.Remove(c.Request.Context(), id); err != nil {
		h.logger.Error("remove participation failed", zap.Error(err), zap.String("participation_id", id.String()))
		response.Internal(c, "failed to remove participant")
		return
	}
	response.NoContent(c)
}
