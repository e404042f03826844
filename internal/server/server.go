package server

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cinekele/twin-cities/internal/align"
	"github.com/cinekele/twin-cities/internal/graph"
	"github.com/cinekele/twin-cities/internal/scrape"
	"github.com/cinekele/twin-cities/internal/wikidata"
)

// TwinSource reads twin statements from the structured knowledge base.
type TwinSource interface {
	TwinData(ctx context.Context, cityURL string) ([]wikidata.TwinRecord, error)
	EntityURI(ctx context.Context, pageURL string) (string, error)
}

// Reconciler publishes an operator-approved twin statement.
type Reconciler interface {
	Update(ctx context.Context, payload wikidata.UpdatePayload, oneSided bool) error
}

// Server exposes the graph store and the two-source comparison over HTTP.
// All session state lives here; there are no package globals.
type Server struct {
	Store      *graph.Store
	Twins      TwinSource
	Reconciler Reconciler
	Log        *zap.SugaredLogger
}

func NewServer(store *graph.Store, twins TwinSource, reconciler Reconciler, log *zap.SugaredLogger) *Server {
	return &Server{
		Store:      store,
		Twins:      twins,
		Reconciler: reconciler,
		Log:        log,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/cities", s.GetCities)
	r.GET("/cities/twins", s.GetTwins)
	r.GET("/cities/references", s.GetReferences)
	r.GET("/cities/compare", s.CompareTwins)
	r.GET("/cities/references/compare", s.CompareReferences)
	r.POST("/reconcile", s.Reconcile)

	return r
}

func (s *Server) GetCities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cities": s.Store.Cities()})
}

func (s *Server) GetTwins(c *gin.Context) {
	cityURL := c.Query("url")
	if cityURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' query parameter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"twins": s.Store.Twins(cityURL)})
}

func (s *Server) GetReferences(c *gin.Context) {
	cityURL := c.Query("city")
	twinURL := c.Query("twin")
	if cityURL == "" || twinURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'city' or 'twin' query parameter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"references": s.Store.References(cityURL, twinURL)})
}

// wikipediaTwin is a stored twin annotated with its Wikidata entity URI so
// the two sides share an alignment key.
type wikipediaTwin struct {
	ID string `json:"id"`
	graph.TwinSummary
}

type comparedTwin struct {
	Wikidata  *wikidata.TwinRecord `json:"wikidata,omitempty"`
	Wikipedia *wikipediaTwin       `json:"wikipedia,omitempty"`
}

// CompareTwins aligns the stored twin list against the knowledge base's twin
// list for one city, keyed by entity id.
func (s *Server) CompareTwins(c *gin.Context) {
	cityURL := c.Query("url")
	if cityURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' query parameter"})
		return
	}

	remote, err := s.Twins.TwinData(c.Request.Context(), cityURL)
	if err != nil {
		s.Log.Errorw("wikidata twin query failed", "city", cityURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	local := make([]wikipediaTwin, 0)
	for _, twin := range s.Store.Twins(cityURL) {
		uri, err := s.Twins.EntityURI(c.Request.Context(), twin.URL)
		if err != nil {
			s.Log.Warnw("entity lookup failed", "twin", twin.URL, "error", err)
		}
		local = append(local, wikipediaTwin{ID: uri, TwinSummary: twin})
	}
	sort.Slice(local, func(i, j int) bool { return local[i].ID < local[j].ID })

	entries := align.Merge(remote, local,
		func(r wikidata.TwinRecord) string { return r.ID },
		func(w wikipediaTwin) string { return w.ID },
	)

	out := make([]comparedTwin, 0, len(entries))
	for _, entry := range entries {
		out = append(out, comparedTwin{Wikidata: entry.Left, Wikipedia: entry.Right})
	}
	c.JSON(http.StatusOK, gin.H{"twins": out})
}

type comparedReference struct {
	Wikidata  *wikidata.TwinReference `json:"wikidata,omitempty"`
	Wikipedia *scrape.Reference       `json:"wikipedia,omitempty"`
}

// CompareReferences aligns the reference lists of one matched relationship,
// keyed by reference URL.
func (s *Server) CompareReferences(c *gin.Context) {
	cityURL := c.Query("city")
	twinURL := c.Query("twin")
	if cityURL == "" || twinURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'city' or 'twin' query parameter"})
		return
	}

	remote, err := s.Twins.TwinData(c.Request.Context(), cityURL)
	if err != nil {
		s.Log.Errorw("wikidata twin query failed", "city", cityURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	var remoteRefs []wikidata.TwinReference
	for _, record := range remote {
		if record.URL == twinURL {
			remoteRefs = record.References
			break
		}
	}
	sort.Slice(remoteRefs, func(i, j int) bool { return remoteRefs[i].URL < remoteRefs[j].URL })

	localRefs := s.Store.References(cityURL, twinURL)

	entries := align.Merge(remoteRefs, localRefs,
		func(r wikidata.TwinReference) string { return r.URL },
		func(r scrape.Reference) string { return r.URL },
	)

	out := make([]comparedReference, 0, len(entries))
	for _, entry := range entries {
		out = append(out, comparedReference{Wikidata: entry.Left, Wikipedia: entry.Right})
	}
	c.JSON(http.StatusOK, gin.H{"references": out})
}

type reconcileRequest struct {
	wikidata.UpdatePayload
	OneSided bool `json:"oneSided"`
}

// Reconcile publishes a twin statement both ways unless oneSided is set.
// Remote rejections are passed on to the operator verbatim and never retried.
func (s *Server) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.SourceURL == "" || req.Twin.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sourceUrl and twin.url are required"})
		return
	}

	err := s.Reconciler.Update(c.Request.Context(), req.UpdatePayload, req.OneSided)
	if err != nil {
		if errors.Is(err, wikidata.ErrIDNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.Log.Errorw("reconciliation failed", "source", req.SourceURL, "twin", req.Twin.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
