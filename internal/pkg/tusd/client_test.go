package tusd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoint string) *Client {
	return New(&Config{Endpoint: endpoint, Timeout: time.Second}, logger.NewNop())
}

func TestDeleteSendsTusHeaders(t *testing.T) {
	var gotMethod, gotPath, gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("Tus-Resumable")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL + "/files")
	err := client.Delete(context.Background(), "frspc-abc")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/files/frspc-abc", gotPath)
	assert.Equal(t, "1.0.0", gotHeader)
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	assert.NoError(t, client.Delete(context.Background(), "gone"))
}

func TestDeleteSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.Delete(context.Background(), "frspc-abc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
