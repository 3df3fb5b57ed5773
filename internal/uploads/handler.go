package uploads

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/pkg/response"
	"github.com/ecosort/backend/pkg/storage"
)

// Store is the persistence surface the uploads handler needs.
type Store interface {
	Create(ctx context.Context, u *models.Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventPhoto, error)
}

// ObjectStore is the object storage surface: store a photo, reclaim one.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Janitor reclaims a deleted upload's object asynchronously.
type Janitor interface {
	EnqueueObjectDelete(ctx context.Context, objectKey string) error
}

// EventGetter checks that the target event exists before storing a photo.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Handler handles photo upload HTTP endpoints.
type Handler struct {
	store   Store
	objects ObjectStore
	janitor Janitor
	events  EventGetter
	logger  *zap.Logger
}

// NewHandler creates an uploads handler.
func NewHandler(store Store, objects ObjectStore, janitor Janitor, events EventGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, objects: objects, janitor: janitor, events: events, logger: logger}
}

// Create handles POST /events/:id/photos. Two-phase pipeline: store the object,
// then record the metadata row. A failed record triggers a compensating object
// delete so storage never holds an orphan.
func (h *Handler) Create(c *gin.Context) {
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

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		response.BadRequest(c, "photo file is required")
		return
	}
	if fileHeader.Size > storage.MaxPhotoFileSize {
		response.BadRequest(c, "photo exceeds maximum size")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidatePhotoType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported photo type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read photo")
		return
	}
	defer f.Close()

	key := storage.EventPhotoKey(eventID.String(), userID.String(), time.Now().Unix(), fileHeader.Filename)
	url, err := h.objects.Upload(c.Request.Context(), key, contentType, f, fileHeader.Size)
	if err != nil {
		h.logger.Error("store photo failed", zap.Error(err), zap.String("object_key", key))
		response.Internal(c, "failed to store photo")
		return
	}

	up := &models.Upload{
		UploaderID: userID,
		EventID:    &eventID,
		ObjectKey:  key,
		URL:        url,
		Category:   models.CategoryEventPhoto,
	}
	if err := h.store.Create(c.Request.Context(), up); err != nil {
		// Compensate: the object was stored but the row was not, reclaim it now.
		if delErr := h.objects.DeleteObject(c.Request.Context(), key); delErr != nil {
			h.logger.Error("compensating object delete failed", zap.Error(delErr), zap.String("object_key", key))
		}
		h.logger.Error("record photo failed", zap.Error(err), zap.String("object_key", key))
		response.Internal(c, "failed to record photo")
		return
	}
	response.Created(c, up)
}

// ListByEvent handles GET /events/:id/photos: newest first, enriched with
// uploader emails.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list photos failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list photos")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /uploads/:id. Only the uploader may delete; the row
// goes now, the stored object is reclaimed by the janitor.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid upload id")
		return
	}
	up, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "upload not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if up.UploaderID != userID {
		response.Forbidden(c, "only the uploader can delete this photo")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete upload failed", zap.Error(err), zap.String("upload_id", id.String()))
		response.Internal(c, "failed to delete photo")
		return
	}
	if err := h.janitor.EnqueueObjectDelete(c.Request.Context(), up.ObjectKey); err != nil {
		h.logger.Warn("enqueue object delete failed", zap.Error(err), zap.String("object_key", up.ObjectKey))
	}
	response.NoContent(c)
}
