package classifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

type stubService struct {
	label Label
	err   error
}

func (s *stubService) Classify(_ context.Context, _, _ string, _ io.Reader) (Label, error) {
	return s.label, s.err
}

type recorderFake struct {
	rows      []*models.Upload
	createErr error
}

func (r *recorderFake) Create(_ context.Context, u *models.Upload) error {
	if r.createErr != nil {
		return r.createErr
	}
	u.ID = uuid.New()
	r.rows = append(r.rows, u)
	return nil
}

type objectsFake struct {
	uploaded []string
	deleted  []string
}

func (o *objectsFake) Upload(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	o.uploaded = append(o.uploaded, key)
	return "https://photos.example.com/" + key, nil
}

func (o *objectsFake) DeleteObject(_ context.Context, key string) error {
	o.deleted = append(o.deleted, key)
	return nil
}

func classifyRouter(svc Service, objects *objectsFake, store *recorderFake) *gin.Engine {
	h := NewHandler(svc, objects, store, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, uuid.New()); c.Next() })
	r.POST("/classify", h.Classify)
	return r
}

func imageRequest(t *testing.T, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = io.Copy(fw, strings.NewReader("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/classify", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestClassify_RecordsShotWithVerdict(t *testing.T) {
	store := &recorderFake{}
	objects := &objectsFake{}
	r := classifyRouter(&stubService{label: LabelBiodegradable}, objects, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "peel.jpg"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"Biodegradable"`)
	require.Len(t, store.rows, 1)
	require.Equal(t, models.CategoryClassification, store.rows[0].Category)
	require.Equal(t, string(LabelBiodegradable), store.rows[0].Label)
	require.Nil(t, store.rows[0].EventID)
	require.Len(t, objects.uploaded, 1)
	require.Empty(t, objects.deleted)
}

func TestClassify_NilServiceUnavailable(t *testing.T) {
	r := classifyRouter(nil, &objectsFake{}, &recorderFake{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "peel.jpg"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClassify_ServiceFailureIsBadGateway(t *testing.T) {
	objects := &objectsFake{}
	r := classifyRouter(&stubService{err: errors.New("timeout")}, objects, &recorderFake{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "peel.jpg"))

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Empty(t, objects.uploaded)
}

func TestClassify_FailedRecordDeletesStoredObject(t *testing.T) {
	store := &recorderFake{createErr: errors.New("connection reset")}
	objects := &objectsFake{}
	r := classifyRouter(&stubService{label: LabelResidual}, objects, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "wrapper.png"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, objects.uploaded, 1)
	require.Equal(t, objects.uploaded, objects.deleted)
}

func TestClassify_UnsupportedTypeRejected(t *testing.T) {
	objects := &objectsFake{}
	r := classifyRouter(&stubService{label: LabelResidual}, objects, &recorderFake{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "notes.txt"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, objects.uploaded)
}
