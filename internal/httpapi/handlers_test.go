package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/internal/gateway"
	"github.com/feldrin/vtt-backend/internal/maps"
	"github.com/feldrin/vtt-backend/internal/model"
	"github.com/feldrin/vtt-backend/internal/store"
	"github.com/feldrin/vtt-backend/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ms := store.NewMemStore()
	ms.AddCampaign(model.Campaign{ID: "c1", Name: "The Sunken Keep"})
	ms.AddMedia(model.Media{ID: "m1", Name: "forest.png"})
	ms.AddMedia(model.Media{ID: "m2", Name: "cave.png"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := zap.NewNop()
	hub := gateway.NewHub(ctx, log)
	svc := maps.NewService(ms, hub, log)

	srv := httptest.NewServer(SetupRoutes(svc, hub, nil, log))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) types.Map {
	t.Helper()
	defer resp.Body.Close()
	var m types.Map
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestCreateMapEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"name":        "Forest",
		"mediaIds":    []string{"m1", "m2"},
		"campaignId":  "c1",
		"createdById": "u1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	m := decodeMap(t, resp)
	assert.Equal(t, "Forest", m.Name)
	assert.Equal(t, "m1", m.SelectedMediaID)
	assert.Equal(t, 0, m.Order)
	assert.NotEmpty(t, m.ID)
}

func TestCreateMapEndpoint_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	// missing name -> 400
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"mediaIds": []string{"m1"}, "campaignId": "c1", "createdById": "u1",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown campaign -> 404
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"name": "Forest", "mediaIds": []string{"m1"}, "campaignId": "nope", "createdById": "u1",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMapLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	created := decodeMap(t, doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"name": "Forest", "mediaIds": []string{"m1"}, "campaignId": "c1", "createdById": "u1",
	}))

	// get
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/maps/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decodeMap(t, resp).ID)

	// update
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/maps/"+created.ID, map[string]any{
		"name": "Dark Forest",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dark Forest", decodeMap(t, resp).Name)

	// duplicate
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/maps/"+created.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	dup := decodeMap(t, resp)
	assert.Equal(t, "Dark Forest - Copy", dup.Name)
	assert.NotEqual(t, created.ID, dup.ID)

	// delete
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/maps/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/maps/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReorderEndpoint(t *testing.T) {
	srv := newTestServer(t)

	mapA := decodeMap(t, doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"name": "A", "mediaIds": []string{"m1"}, "campaignId": "c1", "createdById": "u1",
	}))
	mapB := decodeMap(t, doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
		"name": "B", "mediaIds": []string{"m1"}, "campaignId": "c1", "createdById": "u1",
	}))

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/campaigns/c1/maps/reorder", map[string]any{
		"mapIds": []string{mapB.ID, mapA.ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var ms []types.Map
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ms))
	require.Len(t, ms, 2)
	assert.Equal(t, mapB.ID, ms[0].ID)
	assert.Equal(t, 0, ms[0].Order)
	assert.Equal(t, mapA.ID, ms[1].ID)
	assert.Equal(t, 1, ms[1].Order)
}

func TestListCampaignMapsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for _, name := range []string{"A", "B"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/maps", map[string]any{
			"name": name, "mediaIds": []string{"m1"}, "campaignId": "c1", "createdById": "u1",
		})
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/campaigns/c1/maps", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var ms []types.Map
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ms))
	require.Len(t, ms, 2)
	assert.Equal(t, "A", ms[0].Name)
	assert.Equal(t, "B", ms[1].Name)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
