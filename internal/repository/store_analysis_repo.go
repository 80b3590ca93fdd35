package repository

import (
	"context"
	"errors"
	"time"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/store"
)

const (
	keyAssessmentPrefix = "analysis:"
	keyConfigOverride   = "config:override"
)

// StoreAnalysisRepo caches assessments with a TTL and persists the applied
// config override under a fixed key.
type StoreAnalysisRepo struct {
	store store.Store
}

func NewStoreAnalysisRepo(s store.Store) *StoreAnalysisRepo {
	return &StoreAnalysisRepo{store: s}
}

var _ domrepo.AnalysisStore = (*StoreAnalysisRepo)(nil)

func (r *StoreAnalysisRepo) SaveAssessment(ctx context.Context, a *models.RiskAssessment, ttl time.Duration) error {
	return wrapStoreErr(r.store.Set(ctx, keyAssessmentPrefix+a.Asset, a, ttl))
}

func (r *StoreAnalysisRepo) GetAssessment(ctx context.Context, asset string) (*models.RiskAssessment, error) {
	var a models.RiskAssessment
	if err := r.store.Get(ctx, keyAssessmentPrefix+asset, &a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return &a, nil
}

func (r *StoreAnalysisRepo) SaveOverride(ctx context.Context, o models.ParamsOverride) error {
	return wrapStoreErr(r.store.Set(ctx, keyConfigOverride, o, 0))
}

func (r *StoreAnalysisRepo) GetOverride(ctx context.Context) (models.ParamsOverride, error) {
	var o models.ParamsOverride
	if err := r.store.Get(ctx, keyConfigOverride, &o); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ParamsOverride{}, models.ErrNotFound
		}
		return models.ParamsOverride{}, wrapStoreErr(err)
	}
	return o, nil
}
