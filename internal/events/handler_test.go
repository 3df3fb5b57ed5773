package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/internal/participations"
)

func init() { gin.SetMode(gin.TestMode) }

// catalogFake backs both the events handler and, for the end-to-end scenario,
// the participations handler with one shared in-memory state.
type catalogFake struct {
	events      map[uuid.UUID]*models.Event
	parts       map[uuid.UUID][]models.Participation
	createCalls int
	updateCalls int
}

func newCatalogFake() *catalogFake {
	return &catalogFake{
		events: make(map[uuid.UUID]*models.Event),
		parts:  make(map[uuid.UUID][]models.Participation),
	}
}

func (f *catalogFake) Create(_ context.Context, e *models.Event) error {
	f.createCalls++
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *catalogFake) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *e
	return &cp, nil
}

func (f *catalogFake) ListCatalog(_ context.Context, viewer uuid.UUID) ([]models.EventSummary, error) {
	var list []models.EventSummary
	for _, e := range f.events {
		s := models.EventSummary{Event: *e, OrganizerEmail: "organizer@example.com"}
		for _, p := range f.parts[e.ID] {
			s.ParticipantCount++
			if p.UserID == viewer {
				cp := p
				s.MyParticipation = &cp
			}
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return list, nil
}

func (f *catalogFake) Update(_ context.Context, id uuid.UUID, title, description, location string, startsAt time.Time) error {
	f.updateCalls++
	e := f.events[id]
	e.Title, e.Description, e.Location, e.StartsAt = title, description, location, startsAt
	return nil
}

func (f *catalogFake) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.events, id)
	delete(f.parts, id)
	return nil
}

// participations.Store, for the cross-handler scenario.

func (f *catalogFake) Join(_ context.Context, eventID, userID uuid.UUID) (*models.Participation, error) {
	for _, p := range f.parts[eventID] {
		if p.UserID == userID {
			return nil, participations.ErrAlreadyJoined
		}
	}
	p := models.Participation{
		ID:      uuid.New(),
		EventID: eventID,
		UserID:  userID,
		Status:  models.ParticipationAccepted,
	}
	f.parts[eventID] = append(f.parts[eventID], p)
	return &p, nil
}

func (f *catalogFake) Leave(_ context.Context, eventID, userID uuid.UUID) (bool, error) {
	rows := f.parts[eventID]
	for i, p := range rows {
		if p.UserID == userID {
			f.parts[eventID] = append(rows[:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *catalogFake) GetWithEventOwner(_ context.Context, id uuid.UUID) (*models.Participation, uuid.UUID, error) {
	for eventID, rows := range f.parts {
		for _, p := range rows {
			if p.ID == id {
				cp := p
				return &cp, f.events[eventID].CreatedBy, nil
			}
		}
	}
	return nil, uuid.Nil, errors.New("no rows")
}

func (f *catalogFake) SetStatus(_ context.Context, id uuid.UUID, status models.ParticipationStatus) (*models.Participation, error) {
	for eventID, rows := range f.parts {
		for i, p := range rows {
			if p.ID == id {
				f.parts[eventID][i].Status = status
				cp := f.parts[eventID][i]
				return &cp, nil
			}
		}
	}
	return nil, errors.New("no rows")
}

func (f *catalogFake) Remove(_ context.Context, id uuid.UUID) error {
	for eventID, rows := range f.parts {
		for i, p := range rows {
			if p.ID == id {
				f.parts[eventID] = append(rows[:i], rows[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// events.ParticipantLister / PhotoLister / Janitor.

func (f *catalogFake) ListParticipants(_ context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	var list []models.Participant
	for _, p := range f.parts[eventID] {
		list = append(list, models.Participant{Participation: p, Email: "member@example.com"})
	}
	return list, nil
}

type participantAdapter struct{ f *catalogFake }

func (a participantAdapter) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	return a.f.ListParticipants(ctx, eventID)
}

type photoFake struct {
	keys map[uuid.UUID][]string
}

func (p *photoFake) ListByEvent(_ context.Context, _ uuid.UUID) ([]models.EventPhoto, error) {
	return nil, nil
}

func (p *photoFake) PhotoKeysByEvent(_ context.Context, eventID uuid.UUID) ([]string, error) {
	return p.keys[eventID], nil
}

type janitorFake struct {
	enqueued []string
}

func (j *janitorFake) EnqueueObjectDelete(_ context.Context, key string) error {
	j.enqueued = append(j.enqueued, key)
	return nil
}

func authAs(uid uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Next()
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newEventsRouter(f *catalogFake, photos *photoFake, janitor *janitorFake, uid uuid.UUID) *gin.Engine {
	h := NewHandler(f, participantAdapter{f}, photos, janitor, nil)
	r := gin.New()
	r.Use(authAs(uid))
	r.POST("/events", h.Create)
	r.GET("/events", h.List)
	r.GET("/events/:id", h.GetByID)
	r.PATCH("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)
	return r
}

func postJSON(r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateEvent_EmptyLocationFailsWithoutStoreCall(t *testing.T) {
	f := newCatalogFake()
	r := newEventsRouter(f, &photoFake{}, &janitorFake{}, uuid.New())

	w := postJSON(r, http.MethodPost, "/events", EventForm{
		Title:    "Coastal clean-up",
		Location: "   ",
		StartsAt: "2024-06-01T08:00:00+08:00",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, "location is required", env.Error)
	require.Zero(t, f.createCalls)
}

func TestCreateEvent_BadTimeRejected(t *testing.T) {
	f := newCatalogFake()
	r := newEventsRouter(f, &photoFake{}, &janitorFake{}, uuid.New())

	w := postJSON(r, http.MethodPost, "/events", EventForm{
		Title:    "Coastal clean-up",
		Location: "Bucana",
		StartsAt: "June 1st, 8am",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, f.createCalls)
}

func TestCatalogSortedAscendingByStart(t *testing.T) {
	f := newCatalogFake()
	organizer := uuid.New()
	later := &models.Event{Title: "Later", Location: "B", StartsAt: time.Now().Add(48 * time.Hour), CreatedBy: organizer}
	sooner := &models.Event{Title: "Sooner", Location: "A", StartsAt: time.Now().Add(2 * time.Hour), CreatedBy: organizer}
	require.NoError(t, f.Create(context.Background(), later))
	require.NoError(t, f.Create(context.Background(), sooner))

	r := newEventsRouter(f, &photoFake{}, &janitorFake{}, uuid.New())
	w := postJSON(r, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.EventSummary
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	require.Equal(t, "Sooner", list[0].Title)
	require.Equal(t, "Later", list[1].Title)
}

func TestUpdateEvent_NonOwnerForbidden(t *testing.T) {
	f := newCatalogFake()
	owner := uuid.New()
	e := &models.Event{Title: "Drive", Location: "Hall", StartsAt: time.Now(), CreatedBy: owner}
	require.NoError(t, f.Create(context.Background(), e))

	r := newEventsRouter(f, &photoFake{}, &janitorFake{}, uuid.New()) // not the owner
	w := postJSON(r, http.MethodPatch, "/events/"+e.ID.String(), EventForm{
		Title:    "Hijacked",
		Location: "Elsewhere",
		StartsAt: "2024-06-01T08:00:00+08:00",
	})

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, f.updateCalls)
}

func TestDeleteEvent_ReclaimsPhotoObjects(t *testing.T) {
	f := newCatalogFake()
	owner := uuid.New()
	e := &models.Event{Title: "Drive", Location: "Hall", StartsAt: time.Now(), CreatedBy: owner}
	require.NoError(t, f.Create(context.Background(), e))

	photos := &photoFake{keys: map[uuid.UUID][]string{
		e.ID: {"events/a/1.jpg", "events/a/2.jpg"},
	}}
	janitor := &janitorFake{}
	r := newEventsRouter(f, photos, janitor, owner)

	w := postJSON(r, http.MethodDelete, "/events/"+e.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, []string{"events/a/1.jpg", "events/a/2.jpg"}, janitor.enqueued)
	_, err := f.GetByID(context.Background(), e.ID)
	require.Error(t, err)
}

// Full lifecycle: organizer A creates an event, volunteer B joins, the catalog
// reflects B's accepted participation and count, A deletes, the catalog empties.
func TestEventLifecycleAcrossViewers(t *testing.T) {
	f := newCatalogFake()
	organizerA := uuid.New()
	volunteerB := uuid.New()

	routerA := newEventsRouter(f, &photoFake{}, &janitorFake{}, organizerA)
	w := postJSON(routerA, http.MethodPost, "/events", EventForm{
		Title:    "Bucana Beach Clean-up",
		Location: "Bucana Beach",
		StartsAt: "2024-06-01T08:00:00+08:00",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Event
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &created))

	pHandler := participations.NewHandler(f, f, nil)
	routerB := gin.New()
	routerB.Use(authAs(volunteerB))
	routerB.POST("/events/:id/join", pHandler.Join)
	w = postJSON(routerB, http.MethodPost, "/events/"+created.ID.String()+"/join", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// Any viewer sees participant_count=1; B sees their own accepted row.
	routerBView := newEventsRouter(f, &photoFake{}, &janitorFake{}, volunteerB)
	w = postJSON(routerBView, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.EventSummary
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].ParticipantCount)
	require.NotNil(t, list[0].MyParticipation)
	require.Equal(t, models.ParticipationAccepted, list[0].MyParticipation.Status)

	w = postJSON(routerA, http.MethodDelete, "/events/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = postJSON(routerBView, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	list = nil
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Empty(t, list)
}
