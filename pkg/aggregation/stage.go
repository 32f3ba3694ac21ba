package aggregation

import (
	"context"
	"fmt"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// StageKind identifies one of the supported pipeline stages.
type StageKind int

const (
	StageMatch StageKind = iota + 1
	StageGroup
	StageSort
	StageProject
	StageUnwind
	StageLookup
)

func (k StageKind) String() string {
	switch k {
	case StageMatch:
		return "$match"
	case StageGroup:
		return "$group"
	case StageSort:
		return "$sort"
	case StageProject:
		return "$project"
	case StageUnwind:
		return "$unwind"
	case StageLookup:
		return "$lookup"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// Stage is one step of a pipeline. The set of implementations is closed:
// Match, Group, Sort, Project, Unwind and Lookup.
type Stage interface {
	Kind() StageKind
	Validate() error
	apply(ctx context.Context, run *execution, docs []domain.Document) ([]domain.Document, error)
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Validate checks every stage and reports the first malformed one.
func (p Pipeline) Validate() error {
	for i, stage := range p {
		if stage == nil {
			return domain.Validation("stage %d is nil", i)
		}
		if err := stage.Validate(); err != nil {
			return stageError(i, stage, err)
		}
	}
	return nil
}

// stageError attaches the stage position to err while keeping its kind.
func stageError(i int, stage Stage, err error) error {
	return fmt.Errorf("stage %d (%s): %w", i, stage.Kind(), err)
}

// checkEvery is how many documents a stage processes between context checks.
const checkEvery = 1024

func checkContext(ctx context.Context, i int) error {
	if i%checkEvery != 0 {
		return nil
	}
	return ctx.Err()
}
