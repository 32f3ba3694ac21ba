package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Service runs reports and stores records through a Collection Provider.
type Service struct {
	provider  domain.CollectionProvider
	evaluator *aggregation.Evaluator
}

// NewService creates a service over provider.
func NewService(provider domain.CollectionProvider) *Service {
	return &Service{
		provider:  provider,
		evaluator: aggregation.NewEvaluator(provider),
	}
}

// Run evaluates a report. A source collection that was never written reads
// as empty; a missing lookup collection is still a NotFound error.
func (s *Service) Run(ctx context.Context, report Report) ([]domain.Document, error) {
	start := time.Now()
	if err := report.Pipeline.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.provider.FetchAll(ctx, report.Collection)
	if domain.IsKind(err, domain.KindNotFound) {
		docs, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	results, err := s.evaluator.Apply(ctx, docs, report.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", report.Name, err)
	}
	if results == nil {
		results = []domain.Document{}
	}

	log.Debug().
		Str("report", report.Name).
		Str("collection", report.Collection).
		Int("input", len(docs)).
		Int("results", len(results)).
		Dur("took", time.Since(start)).
		Msg("Report complete")
	return results, nil
}

// Create stores a decoded record in its shape's collection.
func (s *Service) Create(ctx context.Context, shape Shape, record Record) (domain.Document, error) {
	stored, err := s.provider.Insert(ctx, shape.Collection, record.ToDocument())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("collection", shape.Collection).Interface("_id", stored["_id"]).Msg("Record stored")
	return stored, nil
}

// FriendStatsResult is the body of the friend stats endpoint. AverageAge is
// nil when no user has a numeric age.
type FriendStatsResult struct {
	AverageAge interface{} `json:"averageAge"`
}

func (s *Service) ProductStats(ctx context.Context) ([]domain.Document, error) {
	return s.Run(ctx, ProductStats())
}

func (s *Service) FriendStats(ctx context.Context) (FriendStatsResult, error) {
	results, err := s.Run(ctx, FriendStats())
	if err != nil {
		return FriendStatsResult{}, err
	}
	if len(results) == 0 {
		return FriendStatsResult{}, nil
	}
	return FriendStatsResult{AverageAge: results[0]["averageAge"]}, nil
}

func (s *Service) AverageRatings(ctx context.Context) ([]domain.Document, error) {
	return s.Run(ctx, AverageRatings())
}

func (s *Service) CustomerRevenue(ctx context.Context) ([]domain.Document, error) {
	return s.Run(ctx, CustomerRevenue())
}

func (s *Service) OrderTotals(ctx context.Context, r DateRange) ([]domain.Document, error) {
	return s.Run(ctx, OrderTotals(r))
}

func (s *Service) EventsByUser(ctx context.Context, r DateRange) ([]domain.Document, error) {
	return s.Run(ctx, EventsByUser(r))
}

func (s *Service) SalesRevenue(ctx context.Context, r DateRange) ([]domain.Document, error) {
	return s.Run(ctx, SalesRevenue(r))
}
