package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeUsers struct {
	byEmail map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]*models.User)}
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("no rows")
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, email, passwordHash, fullName string) (*models.User, error) {
	u := &models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: passwordHash,
		FullName: fullName,
		Role:     models.RoleVolunteer,
	}
	f.byEmail[email] = u
	return u, nil
}

func newRouter(store *fakeUsers) *gin.Engine {
	h := NewHandler(store, NewJWTService("test-secret", 24), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func post(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_NewUserIsVolunteer(t *testing.T) {
	store := newFakeUsers()
	r := newRouter(store)

	w := post(r, "/auth/register", RegisterRequest{
		Email:    "maria@example.com",
		Password: "secret123",
		FullName: "Maria Santos",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var env struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)
	require.Equal(t, models.RoleVolunteer, env.Data.User.Role)
	require.Equal(t, models.RoleVolunteer, store.byEmail["maria@example.com"].Role)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	store := newFakeUsers()
	r := newRouter(store)

	w := post(r, "/auth/register", RegisterRequest{Email: "maria@example.com", Password: "secret123", FullName: "Maria"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = post(r, "/auth/register", RegisterRequest{Email: "maria@example.com", Password: "other456", FullName: "Impostor"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, store.byEmail, 1)
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	r := newRouter(newFakeUsers())

	w := post(r, "/auth/register", RegisterRequest{Email: "maria@example.com", Password: "abc", FullName: "Maria"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_ChecksPassword(t *testing.T) {
	store := newFakeUsers()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "maria@example.com", hash, "Maria Santos")
	require.NoError(t, err)
	r := newRouter(store)

	w := post(r, "/auth/login", LoginRequest{Email: "maria@example.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/auth/login", LoginRequest{Email: "maria@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	claims, err := NewJWTService("test-secret", 24).Validate(env.Data.Token)
	require.NoError(t, err)
	require.Equal(t, "maria@example.com", claims.Email)
}

func TestLogin_UnknownEmailUnauthorized(t *testing.T) {
	r := newRouter(newFakeUsers())

	w := post(r, "/auth/login", LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
