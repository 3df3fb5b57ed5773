package classifier

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

// UploadRecorder records classification shots in the uploads table.
type UploadRecorder interface {
	Create(ctx context.Context, u *models.Upload) error
}

// ObjectStore stores the classified image and reclaims it on a failed record.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Handler handles the classification HTTP endpoint.
type Handler struct {
	svc     Service
	objects ObjectStore
	store   UploadRecorder
	logger  *zap.Logger
}

// NewHandler creates a classifier handler. svc may be nil when no inference
// service is configured; the endpoint then answers 503.
func NewHandler(svc Service, objects ObjectStore, store UploadRecorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, objects: objects, store: store, logger: logger}
}

// Classify handles POST /classify: one image in, exactly one label from the
// fixed set out. The shot is kept in the uploads table (category
// classification) with the verdict attached.
func (h *Handler) Classify(c *gin.Context) {
	if h.svc == nil {
		response.ServiceUnavailable(c, "classification service not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file is required")
		return
	}
	if fileHeader.Size > storage.MaxPhotoFileSize {
		response.BadRequest(c, "image exceeds maximum size")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidatePhotoType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read image")
		return
	}
	label, err := h.svc.Classify(c.Request.Context(), fileHeader.Filename, contentType, f)
	f.Close()
	if err != nil {
		h.logger.Error("classify failed", zap.Error(err))
		response.BadGateway(c, "classification failed: "+err.Error())
		return
	}

	f, err = fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read image")
		return
	}
	defer f.Close()
	key := storage.ClassificationKey(userID.String(), time.Now().Unix(), fileHeader.Filename)
	url, err := h.objects.Upload(c.Request.Context(), key, contentType, f, fileHeader.Size)
	if err != nil {
		h.logger.Error("store classification shot failed", zap.Error(err), zap.String("object_key", key))
		response.Internal(c, "failed to store image")
		return
	}

	up := &models.Upload{
		UploaderID: userID,
		ObjectKey:  key,
		URL:        url,
		Category:   models.CategoryClassification,
		Label:      string(label),
	}
	if err := h.store.Create(c.Request.Context(), up); err != nil {
		if delErr := h.objects.DeleteObject(c.Request.Context(), key); delErr != nil {
			h.logger.Error("compensating object delete failed", zap.Error(delErr), zap.String("object_key", key))
		}
		h.logger.Error("record classification failed", zap.Error(err))
		response.Internal(c, "failed to record classification")
		return
	}
	response.OK(c, gin.H{"label": label, "upload": up})
}
