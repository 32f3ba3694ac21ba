package aggregation

import (
	"context"
	"errors"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Evaluator runs pipelines against the collections of a provider.
type Evaluator struct {
	provider domain.CollectionProvider
}

// NewEvaluator creates an evaluator reading from provider.
func NewEvaluator(provider domain.CollectionProvider) *Evaluator {
	return &Evaluator{provider: provider}
}

// execution is the state of a single run.
type execution struct {
	provider domain.CollectionProvider
	fetched  map[string][]domain.Document
}

// fetch reads a collection once per run.
func (x *execution) fetch(ctx context.Context, collName string) ([]domain.Document, error) {
	if docs, ok := x.fetched[collName]; ok {
		return docs, nil
	}
	if x.provider == nil {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}
	docs, err := x.provider.FetchAll(ctx, collName)
	if err != nil {
		return nil, providerError(err, collName)
	}
	x.fetched[collName] = docs
	return docs, nil
}

func providerError(err error, collName string) error {
	var derr *domain.Error
	if errors.As(err, &derr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.Provider(err, "fetch collection %s", collName)
}

// Run evaluates stages over the documents of collName. The output of each
// stage is the input of the next; the input collection is never modified.
func (e *Evaluator) Run(ctx context.Context, collName string, stages []Stage) ([]domain.Document, error) {
	if collName == "" {
		return nil, domain.Validation("collection name is empty")
	}
	if err := Pipeline(stages).Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := e.newExecution()
	docs, err := run.fetch(ctx, collName)
	if err != nil {
		return nil, err
	}
	return run.evaluate(ctx, collName, stages, docs)
}

// Apply evaluates stages over an in-memory set of documents. Lookup stages
// still read their foreign collection from the provider.
func (e *Evaluator) Apply(ctx context.Context, docs []domain.Document, stages []Stage) ([]domain.Document, error) {
	if err := Pipeline(stages).Validate(); err != nil {
		return nil, err
	}
	return e.newExecution().evaluate(ctx, "", stages, docs)
}

func (e *Evaluator) newExecution() *execution {
	return &execution{provider: e.provider, fetched: make(map[string][]domain.Document)}
}

func (x *execution) evaluate(ctx context.Context, collName string, stages []Stage, docs []domain.Document) ([]domain.Document, error) {
	started := time.Now()
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageStart := time.Now()
		in := len(docs)

		out, err := stage.apply(ctx, x, docs)
		if err != nil {
			log.Debug().
				Err(err).
				Str("collection", collName).
				Int("stage", i).
				Str("kind", stage.Kind().String()).
				Msg("Stage failed")
			return nil, stageError(i, stage, err)
		}
		docs = out

		log.Debug().
			Str("collection", collName).
			Int("stage", i).
			Str("kind", stage.Kind().String()).
			Int("in", in).
			Int("out", len(docs)).
			Dur("took", time.Since(stageStart)).
			Msg("Stage complete")
	}

	log.Debug().
		Str("collection", collName).
		Int("stages", len(stages)).
		Int("results", len(docs)).
		Dur("took", time.Since(started)).
		Msg("Pipeline complete")
	return docs, nil
}
