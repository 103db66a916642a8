package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

type AssociationRepository interface {
	// GetByUserID returns the user's association, or nil when there is none.
	GetByUserID(ctx context.Context, userID string) (*models.Association, error)
	Create(ctx context.Context, a *models.Association) error
	Update(ctx context.Context, a *models.Association) error
}

type gatewayAssociationRepository struct {
	q gateway.Querier
}

func NewAssociationRepository(q gateway.Querier) AssociationRepository {
	return &gatewayAssociationRepository{q: q}
}

func (r *gatewayAssociationRepository) GetByUserID(ctx context.Context, userID string) (*models.Association, error) {
	// limit 2 so that a second row is noticed instead of silently ignored
	raws, err := r.q.RunQuery(ctx, gateway.From(tableAssociations).Eq("user_id", userID).WithLimit(2))
	if err != nil {
		return nil, err
	}
	switch len(raws) {
	case 0:
		return nil, nil
	case 1:
		var a models.Association
		if err := decodeRow(raws[0], &a); err != nil {
			return nil, err
		}
		return &a, nil
	}
	return nil, fmt.Errorf("%w: user %s", ErrAssociationAmbiguous, userID)
}

type associationRow struct {
	Name    string  `json:"name"`
	UserID  string  `json:"user_id"`
	LogoURL *string `json:"logo_url"`
}

func (r *gatewayAssociationRepository) Create(ctx context.Context, a *models.Association) error {
	raw, err := r.q.Insert(ctx, tableAssociations, associationRow{Name: a.Name, UserID: a.UserID, LogoURL: a.LogoURL})
	if err != nil {
		return mapWriteError(err, ErrAssociationConflict, nil)
	}
	return decodeRow(raw, a)
}

func (r *gatewayAssociationRepository) Update(ctx context.Context, a *models.Association) error {
	patch := map[string]any{"name": a.Name, "logo_url": a.LogoURL}
	raws, err := r.q.Update(ctx, gateway.From(tableAssociations).Eq("id", a.ID), patch)
	if err != nil {
		return err
	}
	updated, err := firstOrNotFound[models.Association](raws, ErrAssociationNotFound)
	if err != nil {
		return err
	}
	*a = *updated
	return nil
}
