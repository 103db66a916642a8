package repositories

import (
	"context"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

type MemberRepository interface {
	Create(ctx context.Context, m *models.Member) error
	GetByID(ctx context.Context, id string) (*models.Member, error)
	// ListByAssociation never returns a nil slice.
	ListByAssociation(ctx context.Context, associationID string) ([]models.Member, error)
	Update(ctx context.Context, m *models.Member) error
	Delete(ctx context.Context, id string) error
}

type gatewayMemberRepository struct {
	q gateway.Querier
}

func NewMemberRepository(q gateway.Querier) MemberRepository {
	return &gatewayMemberRepository{q: q}
}

type memberRow struct {
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	DateOfBirth   models.Date       `json:"date_of_birth"`
	Type          models.MemberType `json:"type"`
	Grade         *string           `json:"grade"`
	AssociationID string            `json:"association_id"`
}

func rowOf(m *models.Member) memberRow {
	return memberRow{
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		DateOfBirth:   m.DateOfBirth,
		Type:          m.Type,
		Grade:         m.Grade,
		AssociationID: m.AssociationID,
	}
}

func (r *gatewayMemberRepository) Create(ctx context.Context, m *models.Member) error {
	raw, err := r.q.Insert(ctx, tableMembers, rowOf(m))
	if err != nil {
		return mapWriteError(err, nil, ErrMemberInvalidRef)
	}
	return decodeRow(raw, m)
}

func (r *gatewayMemberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	raws, err := r.q.RunQuery(ctx, gateway.From(tableMembers).Eq("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	return firstOrNotFound[models.Member](raws, ErrMemberNotFound)
}

func (r *gatewayMemberRepository) ListByAssociation(ctx context.Context, associationID string) ([]models.Member, error) {
	raws, err := r.q.RunQuery(ctx, gateway.From(tableMembers).Eq("association_id", associationID))
	if err != nil {
		return nil, err
	}
	return decodeRows[models.Member](raws)
}

func (r *gatewayMemberRepository) Update(ctx context.Context, m *models.Member) error {
	raws, err := r.q.Update(ctx, gateway.From(tableMembers).Eq("id", m.ID), rowOf(m))
	if err != nil {
		return mapWriteError(err, nil, ErrMemberInvalidRef)
	}
	updated, err := firstOrNotFound[models.Member](raws, ErrMemberNotFound)
	if err != nil {
		return err
	}
	*m = *updated
	return nil
}

func (r *gatewayMemberRepository) Delete(ctx context.Context, id string) error {
	return r.q.Delete(ctx, gateway.From(tableMembers).Eq("id", id))
}
