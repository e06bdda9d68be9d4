package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionatlas/atlasd/internal/atlastest"
	"github.com/regionatlas/atlasd/internal/config"
	"github.com/regionatlas/atlasd/internal/dataset"
)

func newTestHandler(t *testing.T, load bool) (*Handler, *dataset.Store) {
	t.Helper()
	root := atlastest.WriteDataset(t, t.TempDir())
	store := dataset.NewStore(dataset.ResolvePaths(root, nil), dataset.DefaultThresholds, 1)
	handler := NewHandler(config.Config{DatasetRoot: root, Workers: 1}, store, func() {})
	if load {
		started := time.Now()
		_, err := store.Reload(context.Background())
		handler.SetupCompleted(started, err)
		require.NoError(t, err)
	}
	return handler, store
}

func newTestServer(t *testing.T, load bool) *httptest.Server {
	t.Helper()
	handler, _ := newTestHandler(t, load)
	srv := httptest.NewServer(NewServeMux(handler))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealthCheckReady(t *testing.T) {
	srv := newTestServer(t, true)
	var hc HealthCheck
	resp := getJSON(t, srv.URL+"/health-check", &hc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "READY", hc.Status)
	require.NotNil(t, hc.Setup)
	assert.Equal(t, SetupSucceeded, hc.Setup.Status)
}

func TestHealthCheckStarting(t *testing.T) {
	srv := newTestServer(t, false)
	var hc HealthCheck
	getJSON(t, srv.URL+"/health-check", &hc)
	assert.Equal(t, "STARTING", hc.Status)
}

func TestServiceInfo(t *testing.T) {
	srv := newTestServer(t, true)
	var info ServiceInfo
	getJSON(t, srv.URL+"/api/info", &info)
	assert.Equal(t, "atlasd", info.Name)
	assert.Equal(t, "READY", info.Status)
	assert.NotEmpty(t, info.SnapshotID)
}

func TestRegionsCollection(t *testing.T) {
	srv := newTestServer(t, true)
	var collection RegionCollection
	resp := getJSON(t, srv.URL+"/api/regions", &collection)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FeatureCollection", collection.Type)
	require.Len(t, collection.Features, 3)

	byName := make(map[string]RegionFeature)
	for _, f := range collection.Features {
		byName[f.Properties.Name] = f
	}

	north := byName["North"]
	assert.True(t, north.Properties.HasData)
	assert.Equal(t, "OK", north.Properties.Rating)
	assert.Equal(t, "green", north.Properties.Color)
	require.NotNil(t, north.Properties.Value)
	assert.InDelta(t, 0.9, *north.Properties.Value, 1e-9)

	east := byName["East"]
	assert.False(t, east.Properties.HasData)
	assert.Equal(t, "NO_DATA", east.Properties.Rating)
	assert.Equal(t, "gray", east.Properties.Color)
	assert.Nil(t, east.Properties.Value)
}

func TestRegionsNotReady(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/api/regions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRegionDetail(t *testing.T) {
	srv := newTestServer(t, true)
	var detail RegionDetail
	resp := getJSON(t, srv.URL+"/api/regions/South", &detail)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "South", detail.Name)
	assert.True(t, detail.HasData)
	assert.Equal(t, "ALERT", detail.Rating)
	assert.Equal(t, "red", detail.Color)

	require.NotNil(t, detail.CashUse)
	assert.InDelta(t, 50.0, detail.CashUse.Percent, 1e-9)
	assert.Equal(t, "red", detail.CashUse.Color)
	require.NotNil(t, detail.Staffing)
	assert.InDelta(t, 90.0, detail.Staffing.Percent, 1e-9)
	assert.Equal(t, "green", detail.Staffing.Color)

	require.Len(t, detail.Organizations, 1)
	assert.Equal(t, "Southport", detail.Organizations[0].City)
	require.Len(t, detail.Analytics, 1)
}

func TestRegionDetailEncodedName(t *testing.T) {
	srv := newTestServer(t, true)
	var detail RegionDetail
	resp := getJSON(t, srv.URL+"/api/regions/"+"%4Eorth", &detail)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "North", detail.Name)
}

func TestRegionDetailNotFound(t *testing.T) {
	srv := newTestServer(t, true)
	resp, err := http.Get(srv.URL + "/api/regions/Atlantis")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrganizationsFilter(t *testing.T) {
	srv := newTestServer(t, true)

	var all []dataset.Organization
	getJSON(t, srv.URL+"/api/organizations", &all)
	assert.Len(t, all, 2)

	var north []dataset.Organization
	getJSON(t, srv.URL+"/api/organizations?region=North", &north)
	require.Len(t, north, 1)
	assert.Equal(t, "Northville", north[0].City)

	var none []dataset.Organization
	getJSON(t, srv.URL+"/api/organizations?region=Atlantis", &none)
	assert.Empty(t, none)
}

func TestAnalytics(t *testing.T) {
	srv := newTestServer(t, true)
	var records []dataset.AnalyticRecord
	getJSON(t, srv.URL+"/api/analytics", &records)
	assert.Len(t, records, 2)
}

func TestReload(t *testing.T) {
	srv := newTestServer(t, true)
	resp, err := http.Post(srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reload ReloadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reload))
	assert.NotEmpty(t, reload.SnapshotID)
	assert.Equal(t, 3, reload.Regions)
	assert.Equal(t, 2, reload.Organizations)
}

func TestOpenApiDocument(t *testing.T) {
	doc, err := LoadSchema()
	require.NoError(t, err)
	assert.Equal(t, "atlasd", doc.Info.Title)

	srv := newTestServer(t, true)
	resp, err := http.Get(srv.URL + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestHomePage(t *testing.T) {
	srv := newTestServer(t, true)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestEventsStream(t *testing.T) {
	srv := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server side a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "dataset.reloaded", event.Event)
	assert.NotEmpty(t, event.SnapshotID)
	assert.Equal(t, 3, event.Regions)
}

func TestShutdownEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, true)
	called := false
	handler.shutdown = func() { called = true }
	srv := httptest.NewServer(NewServeMux(handler))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/shutdown", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, called)

	var hc HealthCheck
	getJSON(t, srv.URL+"/health-check", &hc)
	assert.Equal(t, "DEFUNCT", hc.Status)
}

func TestShutdownConcurrentHealthChecks(t *testing.T) {
	handler, _ := newTestHandler(t, true)
	srv := httptest.NewServer(NewServeMux(handler))
	t.Cleanup(srv.Close)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				resp, err := http.Get(srv.URL + "/health-check")
				if err != nil {
					return
				}
				resp.Body.Close()
			}
		}()
	}

	resp, err := http.Post(srv.URL+"/shutdown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	wg.Wait()

	var hc HealthCheck
	getJSON(t, srv.URL+"/health-check", &hc)
	assert.Equal(t, "DEFUNCT", hc.Status)
}
