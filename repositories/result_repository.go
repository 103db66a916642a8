package repositories

import (
	"context"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

type ResultRepository interface {
	Create(ctx context.Context, res *models.CompetitionResult) error
	ListByCompetition(ctx context.Context, competitionID string) ([]models.CompetitionResult, error)
}

type gatewayResultRepository struct {
	q gateway.Querier
}

func NewResultRepository(q gateway.Querier) ResultRepository {
	return &gatewayResultRepository{q: q}
}

type resultRow struct {
	CompetitionID       string  `json:"competition_id"`
	PouleName           string  `json:"poule_name"`
	FirstPlaceMemberID  *string `json:"first_place_member_id"`
	SecondPlaceMemberID *string `json:"second_place_member_id"`
	ThirdPlaceMemberID  *string `json:"third_place_member_id"`
	FourthPlaceMemberID *string `json:"fourth_place_member_id"`
}

func (r *gatewayResultRepository) Create(ctx context.Context, res *models.CompetitionResult) error {
	raw, err := r.q.Insert(ctx, tableResults, resultRow{
		CompetitionID:       res.CompetitionID,
		PouleName:           res.PouleName,
		FirstPlaceMemberID:  res.FirstPlaceMemberID,
		SecondPlaceMemberID: res.SecondPlaceMemberID,
		ThirdPlaceMemberID:  res.ThirdPlaceMemberID,
		FourthPlaceMemberID: res.FourthPlaceMemberID,
	})
	if err != nil {
		return mapWriteError(err, ErrResultConflict, ErrResultInvalidRef)
	}
	return decodeRow(raw, res)
}

func (r *gatewayResultRepository) ListByCompetition(ctx context.Context, competitionID string) ([]models.CompetitionResult, error) {
	raws, err := r.q.RunQuery(ctx, gateway.From(tableResults).Eq("competition_id", competitionID).OrderBy("poule_name", true))
	if err != nil {
		return nil, err
	}
	return decodeRows[models.CompetitionResult](raws)
}
