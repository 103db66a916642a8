package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

type CompetitionInput struct {
	Name                 string      `json:"name"`
	Date                 models.Date `json:"date"`
	Location             string      `json:"location"`
	RegistrationDeadline models.Date `json:"registration_deadline"`
}

type CompetitionService interface {
	ListUpcoming(ctx context.Context, q gateway.Querier) ([]models.Competition, error)
	GetByID(ctx context.Context, q gateway.Querier, id string) (*models.Competition, error)
	Create(ctx context.Context, q gateway.Querier, sess *models.Session, in CompetitionInput) (*models.Competition, error)
	Update(ctx context.Context, q gateway.Querier, sess *models.Session, id string, in CompetitionInput) (*models.Competition, error)
	Delete(ctx context.Context, q gateway.Querier, sess *models.Session, id string) error
}

type competitionService struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewCompetitionService(logger *slog.Logger, now func() time.Time) CompetitionService {
	if now == nil {
		now = time.Now
	}
	return &competitionService{logger: logger, now: now}
}

func validateCompetition(in *CompetitionInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	switch {
	case in.Name == "":
		return validationError("competition name is required")
	case in.Location == "":
		return validationError("competition location is required")
	case in.Date.IsZero() || in.RegistrationDeadline.IsZero():
		return validationError("competition date and registration deadline are required")
	case in.RegistrationDeadline.After(in.Date):
		return validationError("registration deadline %s is after the competition date %s", in.RegistrationDeadline, in.Date)
	}
	return nil
}

func (s *competitionService) ListUpcoming(ctx context.Context, q gateway.Querier) ([]models.Competition, error) {
	competitions, err := repositories.NewCompetitionRepository(q).ListUpcoming(ctx, models.DateOf(s.now()))
	return competitions, handleRepositoryError(err)
}

func (s *competitionService) GetByID(ctx context.Context, q gateway.Querier, id string) (*models.Competition, error) {
	c, err := repositories.NewCompetitionRepository(q).GetByID(ctx, id)
	return c, handleRepositoryError(err)
}

func (s *competitionService) Create(ctx context.Context, q gateway.Querier, sess *models.Session, in CompetitionInput) (*models.Competition, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := validateCompetition(&in); err != nil {
		return nil, err
	}
	c := &models.Competition{Name: in.Name, Date: in.Date, Location: in.Location, RegistrationDeadline: in.RegistrationDeadline}
	if err := repositories.NewCompetitionRepository(q).Create(ctx, c); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Competition created", slog.String("competition_id", c.ID), slog.String("admin_id", sess.UserID()))
	return c, nil
}

func (s *competitionService) Update(ctx context.Context, q gateway.Querier, sess *models.Session, id string, in CompetitionInput) (*models.Competition, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := validateCompetition(&in); err != nil {
		return nil, err
	}
	c := &models.Competition{ID: id, Name: in.Name, Date: in.Date, Location: in.Location, RegistrationDeadline: in.RegistrationDeadline}
	if err := repositories.NewCompetitionRepository(q).Update(ctx, c); err != nil {
		return nil, handleRepositoryError(err)
	}
	return c, nil
}

func (s *competitionService) Delete(ctx context.Context, q gateway.Querier, sess *models.Session, id string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := repositories.NewCompetitionRepository(q).Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Competition deleted", slog.String("competition_id", id), slog.String("admin_id", sess.UserID()))
	return nil
}
