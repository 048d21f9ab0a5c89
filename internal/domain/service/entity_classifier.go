package service

import (
	"context"

	"aml-risk-engine/internal/domain/entity"
)

// EntityClassifier is the external collaborator that maps an address to an
// entity type, category, and tag set. Implementations may fail
// with an entity.AnalysisError of kind entity.KindClassifierUnavailable;
// callers downgrade that to category=unknown, tags=nil rather than
// propagating it.
type EntityClassifier interface {
	Classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error)
}
