package events

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/pkg/response"
)

// Store is the persistence surface the events handler needs.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListCatalog(ctx context.Context, viewer uuid.UUID) ([]models.EventSummary, error)
	Update(ctx context.Context, id uuid.UUID, title, description, location string, startsAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ParticipantLister supplies the enriched participant list for the detail view.
type ParticipantLister interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error)
}

// PhotoLister supplies the enriched photo list (newest first) for the detail view.
type PhotoLister interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventPhoto, error)
	PhotoKeysByEvent(ctx context.Context, eventID uuid.UUID) ([]string, error)
}

// Janitor reclaims stored objects left behind by a cascade deletion.
type Janitor interface {
	EnqueueObjectDelete(ctx context.Context, objectKey string) error
}

// EventForm is the body for POST /events and PATCH /events/:id.
// Title, location and starts_at are required; validation happens before any
// database work and failures name the offending field.
type EventForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartsAt    string `json:"starts_at"`
}

func (f *EventForm) validate() (time.Time, string) {
	if strings.TrimSpace(f.Title) == "" {
		return time.Time{}, "title is required"
	}
	if strings.TrimSpace(f.Location) == "" {
		return time.Time{}, "location is required"
	}
	if strings.TrimSpace(f.StartsAt) == "" {
		return time.Time{}, "starts_at is required"
	}
	startsAt, err := time.Parse(time.RFC3339, f.StartsAt)
	if err != nil {
		return time.Time{}, "starts_at must be RFC3339"
	}
	return startsAt, ""
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store        Store
	participants ParticipantLister
	photos       PhotoLister
	janitor      Janitor
	logger       *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(store Store, participants ParticipantLister, photos PhotoLister, janitor Janitor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, participants: participants, photos: photos, janitor: janitor, logger: logger}
}

// Create handles POST /events (organizer only).
func (h *Handler) Create(c *gin.Context) {
	var form EventForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, msg := form.validate()
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	e := &models.Event{
		Title:       form.Title,
		Description: form.Description,
		Location:    form.Location,
		StartsAt:    startsAt,
		CreatedBy:   userID,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events: the full catalog with derived display fields,
// ascending by start time.
func (h *Handler) List(c *gin.Context) {
	viewer := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.store.ListCatalog(c.Request.Context(), viewer)
	if err != nil {
		h.logger.Error("list catalog failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id: the event plus its full participant list
// and its photo list. Always a fresh read, never cached.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	participants, err := h.participants.ListByEvent(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to load participants")
		return
	}
	photos, err := h.photos.ListByEvent(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list photos failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to load photos")
		return
	}
	response.OK(c, models.EventDetail{Event: *e, Participants: participants, Photos: photos})
}

// Update handles PATCH /events/:id (owning organizer only). The full form is
// resubmitted and revalidated, same rules as Create.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if e.CreatedBy != userID {
		response.Forbidden(c, "only the organizer can update this event")
		return
	}

	var form EventForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, msg := form.validate()
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}
	if err := h.store.Update(c.Request.Context(), id, form.Title, form.Description, form.Location, startsAt); err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	updated, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to reload event")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id (owning organizer only). Child rows are
// removed by FK cascade; photo objects are handed to the janitor so nothing
// is orphaned in storage.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if e.CreatedBy != userID {
		response.Forbidden(c, "only the organizer can delete this event")
		return
	}

	// Keys must be read before the delete; the cascade erases the rows.
	keys, err := h.photos.PhotoKeysByEvent(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list photo keys failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	for _, key := range keys {
		if err := h.janitor.EnqueueObjectDelete(c.Request.Context(), key); err != nil {
			h.logger.Warn("enqueue object delete failed", zap.Error(err), zap.String("object_key", key))
		}
	}
	response.NoContent(c)
}
