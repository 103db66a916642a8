package repositories

import (
	"context"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

type CompetitionRepository interface {
	// ListUpcoming returns competitions whose registration deadline is on or
	// after since, earliest competition date first.
	ListUpcoming(ctx context.Context, since models.Date) ([]models.Competition, error)
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	Create(ctx context.Context, c *models.Competition) error
	Update(ctx context.Context, c *models.Competition) error
	Delete(ctx context.Context, id string) error
}

type gatewayCompetitionRepository struct {
	q gateway.Querier
}

func NewCompetitionRepository(q gateway.Querier) CompetitionRepository {
	return &gatewayCompetitionRepository{q: q}
}

// UpcomingQuery is the read behind the dashboard's competition list.
func UpcomingQuery(since models.Date) *gateway.Query {
	return gateway.From(tableCompetitions).
		Gte("registration_deadline", since).
		OrderBy("date", true)
}

func (r *gatewayCompetitionRepository) ListUpcoming(ctx context.Context, since models.Date) ([]models.Competition, error) {
	raws, err := r.q.RunQuery(ctx, UpcomingQuery(since))
	if err != nil {
		return nil, err
	}
	return decodeRows[models.Competition](raws)
}

func (r *gatewayCompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	raws, err := r.q.RunQuery(ctx, gateway.From(tableCompetitions).Eq("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	return firstOrNotFound[models.Competition](raws, ErrCompetitionNotFound)
}

type competitionRow struct {
	Name                 string      `json:"name"`
	Date                 models.Date `json:"date"`
	Location             string      `json:"location"`
	RegistrationDeadline models.Date `json:"registration_deadline"`
}

func competitionRowOf(c *models.Competition) competitionRow {
	return competitionRow{Name: c.Name, Date: c.Date, Location: c.Location, RegistrationDeadline: c.RegistrationDeadline}
}

func (r *gatewayCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	raw, err := r.q.Insert(ctx, tableCompetitions, competitionRowOf(c))
	if err != nil {
		return err
	}
	return decodeRow(raw, c)
}

func (r *gatewayCompetitionRepository) Update(ctx context.Context, c *models.Competition) error {
	raws, err := r.q.Update(ctx, gateway.From(tableCompetitions).Eq("id", c.ID), competitionRowOf(c))
	if err != nil {
		return err
	}
	updated, err := firstOrNotFound[models.Competition](raws, ErrCompetitionNotFound)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

func (r *gatewayCompetitionRepository) Delete(ctx context.Context, id string) error {
	return r.q.Delete(ctx, gateway.From(tableCompetitions).Eq("id", id))
}
