// Package pipeline orchestrates the end-to-end flow: raw dataset in,
// enriched table and trained model out, and supplier ranking on top of
// those artifacts.
package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atlas-supply/risk-cli/internal/classifier"
	"github.com/atlas-supply/risk-cli/internal/config"
	"github.com/atlas-supply/risk-cli/internal/dataset"
	"github.com/atlas-supply/risk-cli/internal/features"
	"github.com/atlas-supply/risk-cli/internal/model"
	"github.com/atlas-supply/risk-cli/internal/ranker"
	"github.com/atlas-supply/risk-cli/internal/store"
)

// Pipeline wires the dataset, feature builder, classifier, and ranker
// behind two operations: Run rebuilds the on-disk artifacts, and
// BestSuppliers answers ranking queries, rebuilding lazily when the
// artifacts are missing.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	builder *features.Builder

	// mu serializes artifact writers against ranking readers; rebuild
	// collapses concurrent lazy rebuilds into one run.
	mu      sync.RWMutex
	rebuild singleflight.Group

	// Cached trained model. Run replaces it; queries load it from disk
	// once and reuse it.
	modelMu sync.Mutex
	model   *classifier.Model
}

// Ranking is the full answer to a best-suppliers query.
type Ranking struct {
	DC              *model.Location        `json:"dc,omitempty"`
	BestSuppliers   []model.SupplierRecord `json:"best_suppliers"`
	AllSuppliers    []model.SupplierRecord `json:"all_suppliers"`
	WarehouseCities []string               `json:"warehouse_cities"`
	Warehouses      []model.Warehouse      `json:"warehouses"`
}

// New creates a Pipeline.
func New(cfg *config.Config, st store.Store, builder *features.Builder) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, builder: builder}
}

// Run executes the full pipeline: load the raw dataset, build the
// enriched table, persist it, train the failure classifier, and persist
// the model. Each run is recorded in the store. A missing raw dataset is
// fatal; the run is recorded as failed and the error returned.
func (p *Pipeline) Run(ctx context.Context) (*store.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, err
	}

	rows, failures, err := p.execute(ctx)
	if err != nil {
		if cerr := p.store.CompleteRun(ctx, run.ID, store.RunStatusFailed, 0, 0, err.Error()); cerr != nil {
			zap.L().Warn("pipeline: record failed run", zap.Error(cerr))
		}
		return nil, err
	}

	if err := p.store.CompleteRun(ctx, run.ID, store.RunStatusComplete, rows, failures, ""); err != nil {
		zap.L().Warn("pipeline: record completed run", zap.Error(err))
	}
	run.Status = store.RunStatusComplete
	run.SupplierRows = rows
	run.Failures = failures

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("supplier_rows", rows),
		zap.Int("failures", failures),
	)
	return run, nil
}

// execute performs the artifact rebuild under the write lock.
func (p *Pipeline) execute(ctx context.Context) (int, int, error) {
	raw, err := dataset.LoadSuppliers(p.cfg.Data.RawPath)
	if err != nil {
		return 0, 0, err
	}

	enriched := p.builder.Build(ctx, raw)
	if err := dataset.WriteEnriched(p.cfg.Data.ProcessedPath, enriched); err != nil {
		return 0, 0, err
	}

	mdl, err := classifier.Train(enriched, classifier.Params{
		Rounds:       p.cfg.Model.Rounds,
		LearningRate: p.cfg.Model.LearningRate,
	})
	if err != nil {
		return 0, 0, err
	}
	if err := classifier.Save(mdl, p.cfg.Data.ModelPath); err != nil {
		return 0, 0, err
	}
	p.modelMu.Lock()
	p.model = mdl
	p.modelMu.Unlock()

	failures := 0
	for i := range enriched {
		failures += enriched[i].Failure
	}
	return len(enriched), failures, nil
}

// BestSuppliers ranks the enriched table against a distribution center
// and returns the best supplier per product. When the enriched table or
// model artifact is missing, the pipeline is rebuilt inline first;
// concurrent queries share a single rebuild. An empty dcCity lets the
// warehouse table pick the DC.
func (p *Pipeline) BestSuppliers(ctx context.Context, dcCity string) (*Ranking, error) {
	rows, mdl, err := p.artifacts()
	if err != nil {
		if !missingArtifact(err) {
			return nil, err
		}
		zap.L().Info("pipeline: artifacts missing, rebuilding", zap.Error(err))
		if _, err, _ := p.rebuild.Do("run", func() (any, error) {
			_, runErr := p.Run(ctx)
			return nil, runErr
		}); err != nil {
			return nil, err
		}
		if rows, mdl, err = p.artifacts(); err != nil {
			return nil, err
		}
	}

	warehouses, err := dataset.LoadWarehouses(p.cfg.Data.WarehousePath)
	if err != nil {
		return nil, err
	}
	warehouses = dataset.FilterCountry(warehouses, p.cfg.Ranking.WarehouseCountry)

	result := &Ranking{
		Warehouses:      warehouses,
		WarehouseCities: ranker.UniqueCities(warehouses),
		BestSuppliers:   []model.SupplierRecord{},
		// The enriched table is returned unranked even when no DC can
		// be resolved.
		AllSuppliers: rows,
	}

	dc, ok := ranker.SelectDC(dcCity, warehouses, rows)
	if !ok {
		zap.L().Warn("pipeline: no usable distribution center",
			zap.String("dc_city", dcCity),
			zap.Int("warehouses", len(warehouses)),
		)
		return result, nil
	}
	result.DC = &dc

	p.mu.RLock()
	ranked := ranker.Rank(rows, mdl, dc, ranker.Weights{
		Risk: p.cfg.Ranking.RiskWeight,
		Dist: p.cfg.Ranking.DistWeight,
	})
	p.mu.RUnlock()

	result.BestSuppliers = ranked.Best
	result.AllSuppliers = ranked.All
	return result, nil
}

// artifacts loads the enriched table and the model under the read lock.
func (p *Pipeline) artifacts() ([]model.SupplierRecord, *classifier.Model, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := dataset.ReadEnriched(p.cfg.Data.ProcessedPath)
	if err != nil {
		return nil, nil, err
	}

	p.modelMu.Lock()
	defer p.modelMu.Unlock()
	if p.model == nil {
		mdl, err := classifier.Load(p.cfg.Data.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		p.model = mdl
	}
	return rows, p.model, nil
}

func missingArtifact(err error) bool {
	return eris.Is(err, dataset.ErrDatasetNotFound) || eris.Is(err, classifier.ErrModelNotFound)
}
