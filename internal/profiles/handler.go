package profiles

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecosort/backend/internal/auth"
	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/pkg/response"
)

// Store is the persistence surface the profiles handler needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	PromoteToOrganizer(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	store  Store
	jwt    *auth.JWTService
	logger *zap.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(store Store, jwt *auth.JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// Me handles GET /me. The profile is re-read from the database rather than
// echoed from the token, so a role change is visible on the next call.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.store.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "profile not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// BecomeOrganizer handles POST /me/become-organizer. Upgrades the caller's role
// to organizer, no approval step, no downgrade path. A fresh token is returned
// so the new role takes effect without a re-login.
func (h *Handler) BecomeOrganizer(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	user, err := h.store.PromoteToOrganizer(c.Request.Context(), userID)
	if err != nil {
		current, getErr := h.store.GetByID(c.Request.Context(), userID)
		if getErr == nil && current.Role == models.RoleOrganizer {
			response.OK(c, gin.H{"user": current.ToPublic()})
			return
		}
		h.logger.Error("promote to organizer failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to upgrade role")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{"token": token, "user": user.ToPublic()})
}
