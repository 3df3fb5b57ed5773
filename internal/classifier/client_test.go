package classifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecosort/backend/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.ClassifierConfig{URL: url, APIKey: "test-key", TimeoutSeconds: 5}, nil)
}

func TestClassify_ReturnsLabelFromService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		require.Equal(t, "bottle.jpg", header.Filename)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"label":"Recyclable"}`))
	}))
	defer srv.Close()

	label, err := newTestClient(srv.URL).Classify(context.Background(), "bottle.jpg", "image/jpeg", strings.NewReader("img"))
	require.NoError(t, err)
	require.Equal(t, LabelRecyclable, label)
}

func TestClassify_UnknownLabelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"label":"Plastic"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Classify(context.Background(), "bottle.jpg", "image/jpeg", strings.NewReader("img"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownLabel))
}

func TestClassify_ServiceErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Classify(context.Background(), "bottle.jpg", "image/jpeg", strings.NewReader("img"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestValidLabel(t *testing.T) {
	for _, l := range Labels {
		require.True(t, ValidLabel(string(l)))
	}
	require.False(t, ValidLabel("Organic"))
	require.False(t, ValidLabel("recyclable")) // case sensitive
	require.False(t, ValidLabel(""))
}
