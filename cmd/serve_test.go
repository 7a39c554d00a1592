package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-supply/risk-cli/internal/config"
	"github.com/atlas-supply/risk-cli/internal/features"
	"github.com/atlas-supply/risk-cli/internal/pipeline"
	"github.com/atlas-supply/risk-cli/internal/store"
)

type fixedProvider struct{}

func (fixedProvider) WeatherRisk(_ context.Context, lat, _ float64) float64 {
	if lat > 50 {
		return 0.9
	}
	return 0.2
}

func (fixedProvider) WarRisk(_ context.Context, country string) float64 {
	if country == "Ukraine" {
		return 0.95
	}
	return 0.1
}

const testSuppliersCSV = `ProductID,Product,Category,SupplierID,SupplierName,City,Country,Latitude,Longitude,LeadTimeDays,PastReliability,Capacity
P1,Widget,Hardware,S1,Acme,Delhi,India,28.61,77.21,4,0.95,500
P1,Widget,Hardware,S2,Borealis,Oslo,Norway,59.91,10.75,9,0.85,300
P2,Gadget,Hardware,S3,Crux,Mumbai,India,19.08,72.88,6,0.90,400
`

const testWarehousesCSV = `City,Country,Latitude,Longitude
Nagpur,India,21.15,79.09
Delhi,India,28.61,77.21
`

// newTestServer builds a router over a real pipeline backed by temp files.
func newTestServer(t *testing.T) (http.Handler, *config.Config, store.Store) {
	t.Helper()
	dir := t.TempDir()

	c := config.Default()
	c.Data.RawPath = filepath.Join(dir, "suppliers.csv")
	c.Data.WarehousePath = filepath.Join(dir, "warehouses.csv")
	c.Data.ProcessedPath = filepath.Join(dir, "processed", "enriched.csv")
	c.Data.ModelPath = filepath.Join(dir, "models", "gbt.json")
	c.Store.DatabaseURL = filepath.Join(dir, "runs.db")

	require.NoError(t, os.WriteFile(c.Data.RawPath, []byte(testSuppliersCSV), 0o644))
	require.NoError(t, os.WriteFile(c.Data.WarehousePath, []byte(testWarehousesCSV), 0o644))

	st, err := store.Open(context.Background(), c.Store)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	builder := features.NewBuilder(fixedProvider{},
		features.WithNoise(false),
		features.WithRand(rand.New(rand.NewSource(7))),
	)
	p := pipeline.New(c, st, builder)

	return newRouter(p, st), c, st
}

func TestServe_Health(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_RunPipeline(t *testing.T) {
	router, _, st := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run-pipeline", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, store.RunStatusComplete, run.Status)
	assert.Equal(t, 3, run.SupplierRows)

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestServe_RunPipeline_MissingDataset(t *testing.T) {
	router, c, _ := newTestServer(t)
	require.NoError(t, os.Remove(c.Data.RawPath))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run-pipeline", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset not found")
}

func TestServe_BestSuppliers(t *testing.T) {
	router, _, _ := newTestServer(t)

	// No prior run: the query rebuilds artifacts lazily.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/best-suppliers?dc_city=Nagpur", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var ranking pipeline.Ranking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	require.NotNil(t, ranking.DC)
	assert.Equal(t, "Nagpur", ranking.DC.City)
	assert.Len(t, ranking.BestSuppliers, 2)
	assert.Len(t, ranking.AllSuppliers, 3)
}

func TestServe_Runs_Empty(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServe_UnknownRoute(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
