package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinekele/twin-cities/internal/graph"
	"github.com/cinekele/twin-cities/internal/scrape"
	"github.com/cinekele/twin-cities/internal/wikidata"
)

type stubTwinSource struct {
	records map[string][]wikidata.TwinRecord
	uris    map[string]string
	err     error
}

func (s *stubTwinSource) TwinData(_ context.Context, cityURL string) ([]wikidata.TwinRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[cityURL], nil
}

func (s *stubTwinSource) EntityURI(_ context.Context, pageURL string) (string, error) {
	return s.uris[pageURL], nil
}

type stubReconciler struct {
	payloads []wikidata.UpdatePayload
	oneSided []bool
	err      error
}

func (s *stubReconciler) Update(_ context.Context, payload wikidata.UpdatePayload, oneSided bool) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	s.oneSided = append(s.oneSided, oneSided)
	return nil
}

func testStore() *graph.Store {
	s := graph.NewStore()
	s.AddCities([]*scrape.City{
		{
			Name:    "Radom",
			Country: "Poland",
			WikiURL: "u/radom",
			TwinCities: []*scrape.TwinCitiesAgreement{
				{
					SecondCity: "Kielce",
					WikiURL:    "u/kielce",
					Refs:       []*scrape.Reference{{URL: "http://ref-local", Title: "T"}},
				},
			},
		},
	})
	return s
}

func setup(twins TwinSource, reconciler Reconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewServer(testStore(), twins, reconciler, zap.NewNop().Sugar()).SetupRouter()
}

func do(t *testing.T, router *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	parsed := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestGetCities(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities", "")

	require.Equal(t, http.StatusOK, w.Code)
	var cities []graph.CitySummary
	require.NoError(t, json.Unmarshal(body["cities"], &cities))
	require.Len(t, cities, 2)
	assert.Equal(t, "Kielce", cities[0].Name)
	assert.Equal(t, "Radom", cities[1].Name)
}

func TestGetTwins(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities/twins?url=u/radom", "")

	require.Equal(t, http.StatusOK, w.Code)
	var twins []graph.TwinSummary
	require.NoError(t, json.Unmarshal(body["twins"], &twins))
	require.Len(t, twins, 1)
	assert.Equal(t, "Kielce", twins[0].Name)
}

func TestGetTwins_MissingParam(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, _ := do(t, router, http.MethodGet, "/cities/twins", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReferences(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities/references?city=u/radom&twin=u/kielce", "")

	require.Equal(t, http.StatusOK, w.Code)
	var refs []scrape.Reference
	require.NoError(t, json.Unmarshal(body["references"], &refs))
	require.Len(t, refs, 1)
	assert.Equal(t, "http://ref-local", refs[0].URL)
}

func TestCompareTwins(t *testing.T) {
	twins := &stubTwinSource{
		records: map[string][]wikidata.TwinRecord{
			"u/radom": {
				{ID: "http://www.wikidata.org/entity/Q2", Name: "Kielce", URL: "u/kielce"},
				{ID: "http://www.wikidata.org/entity/Q7", Name: "Bergen", URL: "u/bergen"},
			},
		},
		uris: map[string]string{"u/kielce": "http://www.wikidata.org/entity/Q2"},
	}
	router := setup(twins, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities/compare?url=u/radom", "")

	require.Equal(t, http.StatusOK, w.Code)
	var compared []struct {
		Wikidata  *wikidata.TwinRecord `json:"wikidata"`
		Wikipedia *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"wikipedia"`
	}
	require.NoError(t, json.Unmarshal(body["twins"], &compared))
	require.Len(t, compared, 2)

	// Kielce is known to both sides; Bergen only to the knowledge base.
	assert.NotNil(t, compared[0].Wikidata)
	require.NotNil(t, compared[0].Wikipedia)
	assert.Equal(t, "Kielce", compared[0].Wikipedia.Name)

	assert.NotNil(t, compared[1].Wikidata)
	assert.Nil(t, compared[1].Wikipedia)
	assert.Equal(t, "Bergen", compared[1].Wikidata.Name)
}

func TestCompareTwins_RemoteFailure(t *testing.T) {
	router := setup(&stubTwinSource{err: errors.New("endpoint down")}, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities/compare?url=u/radom", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `"endpoint down"`, string(body["error"]))
}

func TestCompareReferences(t *testing.T) {
	twins := &stubTwinSource{
		records: map[string][]wikidata.TwinRecord{
			"u/radom": {
				{
					ID:  "http://www.wikidata.org/entity/Q2",
					URL: "u/kielce",
					References: []wikidata.TwinReference{
						{URL: "http://ref-local"},
						{URL: "http://ref-remote-only"},
					},
				},
			},
		},
	}
	router := setup(twins, &stubReconciler{})
	w, body := do(t, router, http.MethodGet, "/cities/references/compare?city=u/radom&twin=u/kielce", "")

	require.Equal(t, http.StatusOK, w.Code)
	var compared []struct {
		Wikidata  *wikidata.TwinReference `json:"wikidata"`
		Wikipedia *scrape.Reference       `json:"wikipedia"`
	}
	require.NoError(t, json.Unmarshal(body["references"], &compared))
	require.Len(t, compared, 2)

	assert.True(t, compared[0].Wikidata != nil && compared[0].Wikipedia != nil)
	assert.Equal(t, "http://ref-local", compared[0].Wikidata.URL)

	assert.NotNil(t, compared[1].Wikidata)
	assert.Nil(t, compared[1].Wikipedia)
	assert.Equal(t, "http://ref-remote-only", compared[1].Wikidata.URL)
}

func TestReconcile(t *testing.T) {
	reconciler := &stubReconciler{}
	router := setup(&stubTwinSource{}, reconciler)

	payload := `{"sourceUrl":"u/radom","twin":{"url":"u/kielce","name":"Kielce"},"oneSided":true}`
	w, _ := do(t, router, http.MethodPost, "/reconcile", payload)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, reconciler.payloads, 1)
	assert.Equal(t, "u/radom", reconciler.payloads[0].SourceURL)
	assert.Equal(t, "Kielce", reconciler.payloads[0].Twin.Name)
	assert.True(t, reconciler.oneSided[0])
}

func TestReconcile_BadJSON(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, body := do(t, router, http.MethodPost, "/reconcile", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"Invalid request"`, string(body["error"]))
}

func TestReconcile_MissingFields(t *testing.T) {
	router := setup(&stubTwinSource{}, &stubReconciler{})
	w, _ := do(t, router, http.MethodPost, "/reconcile", `{"sourceUrl":"u/radom","twin":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcile_IDNotFound(t *testing.T) {
	reconciler := &stubReconciler{err: wikidata.ErrIDNotFound}
	router := setup(&stubTwinSource{}, reconciler)

	payload := `{"sourceUrl":"u/radom","twin":{"url":"u/kielce"}}`
	w, _ := do(t, router, http.MethodPost, "/reconcile", payload)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcile_RemoteRejection(t *testing.T) {
	reconciler := &stubReconciler{err: errors.New("The save has failed.")}
	router := setup(&stubTwinSource{}, reconciler)

	payload := `{"sourceUrl":"u/radom","twin":{"url":"u/kielce"}}`
	w, body := do(t, router, http.MethodPost, "/reconcile", payload)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `"The save has failed."`, string(body["error"]))
}
