package eonet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/eonet-report/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wildfiresBody = `{
  "title": "EONET Events: Wildfires",
  "events": [
    {
      "id": "EONET_3142",
      "title": "Thomas Fire, CA",
      "description": "",
      "link": "https://eonet.gsfc.nasa.gov/api/v2.1/events/EONET_3142",
      "closed": "2017-10-20T00:00:00Z",
      "categories": [{"id": 8, "title": "Wildfires"}],
      "sources": [{"id": "InciWeb", "url": "https://inciweb.nwcg.gov/incident/5670/"}],
      "geometries": [{"date": "2017-10-05T00:00:00Z", "type": "Point", "coordinates": [-119.08, 34.43]}]
    }
  ]
}`

func testClient(baseURL string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		baseURL:      baseURL,
		status:       "closed",
		lookbackDays: 60,
		metrics:      observability.NewMetricsForTesting(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_FetchCategory_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/categories/8", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("status"))
		assert.Equal(t, "60", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, wildfiresBody)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	resp, err := c.FetchCategory(context.Background(), "8")
	require.NoError(t, err)

	assert.Equal(t, "8", resp.CategoryID)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "EONET_3142", resp.Events[0]["id"])

	categories := resp.Events[0]["categories"].([]any)
	first := categories[0].(map[string]any)
	assert.Equal(t, json.Number("8"), first["id"])

	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.EventsFetched.WithLabelValues("8")), 0)
}

func TestClient_FetchCategory_EmptyEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"events": []}`)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).FetchCategory(context.Background(), "14")
	require.NoError(t, err)
	assert.Equal(t, "14", resp.CategoryID)
	assert.Empty(t, resp.Events)
}

func TestClient_FetchCategory_CustomQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		_, _ = io.WriteString(w, `{"events": []}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.status = "open"
	c.lookbackDays = 30

	_, err := c.FetchCategory(context.Background(), "10")
	require.NoError(t, err)
}

func TestClient_FetchCategory_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchCategory(context.Background(), "8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClient_FetchCategory_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchCategory(context.Background(), "8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode category 8 response")
}

func TestClient_FetchCategory_MissingEventsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"title": "no events here"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchCategory(context.Background(), "8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "events" array`)
}

func TestClient_FetchCategory_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"events": []}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).FetchCategory(ctx, "8")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
