package repositories

import (
	"context"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.CompetitionRegistration) error
	ListByCompetition(ctx context.Context, competitionID string) ([]models.CompetitionRegistration, error)
	ListByMembers(ctx context.Context, memberIDs []string) ([]models.CompetitionRegistration, error)
	Delete(ctx context.Context, id string) error
}

type gatewayRegistrationRepository struct {
	q gateway.Querier
}

func NewRegistrationRepository(q gateway.Querier) RegistrationRepository {
	return &gatewayRegistrationRepository{q: q}
}

type registrationRow struct {
	CompetitionID string  `json:"competition_id"`
	MemberID      string  `json:"member_id"`
	Weight        float64 `json:"weight"`
}

func (r *gatewayRegistrationRepository) Create(ctx context.Context, reg *models.CompetitionRegistration) error {
	raw, err := r.q.Insert(ctx, tableRegistrations, registrationRow{
		CompetitionID: reg.CompetitionID,
		MemberID:      reg.MemberID,
		Weight:        reg.Weight,
	})
	if err != nil {
		return mapWriteError(err, ErrRegistrationConflict, ErrRegistrationInvalid)
	}
	return decodeRow(raw, reg)
}

func (r *gatewayRegistrationRepository) ListByCompetition(ctx context.Context, competitionID string) ([]models.CompetitionRegistration, error) {
	raws, err := r.q.RunQuery(ctx, gateway.From(tableRegistrations).Eq("competition_id", competitionID))
	if err != nil {
		return nil, err
	}
	return decodeRows[models.CompetitionRegistration](raws)
}

func (r *gatewayRegistrationRepository) ListByMembers(ctx context.Context, memberIDs []string) ([]models.CompetitionRegistration, error) {
	if len(memberIDs) == 0 {
		return []models.CompetitionRegistration{}, nil
	}
	raws, err := r.q.RunQuery(ctx, gateway.From(tableRegistrations).In("member_id", memberIDs))
	if err != nil {
		return nil, err
	}
	return decodeRows[models.CompetitionRegistration](raws)
}

func (r *gatewayRegistrationRepository) Delete(ctx context.Context, id string) error {
	return r.q.Delete(ctx, gateway.From(tableRegistrations).Eq("id", id))
}
