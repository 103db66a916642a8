package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

type ResultInput struct {
	PouleName string `json:"poule_name"`
	// Places holds member ids from first to fourth; empty entries are unset.
	Places [4]string `json:"places"`
}

type ResultService interface {
	Record(ctx context.Context, q gateway.Querier, sess *models.Session, competitionID string, in ResultInput) (*models.CompetitionResult, error)
	List(ctx context.Context, q gateway.Querier, competitionID string) ([]models.CompetitionResult, error)
}

type resultService struct {
	logger *slog.Logger
}

func NewResultService(logger *slog.Logger) ResultService {
	return &resultService{logger: logger}
}

func validatePlaces(places [4]string) ([4]*string, error) {
	var out [4]*string
	seen := make(map[string]int, len(places))
	for i, id := range places {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if prev, dup := seen[id]; dup {
			return out, validationError("member %s holds places %d and %d", id, prev+1, i+1)
		}
		seen[id] = i
		out[i] = &id
	}
	if len(seen) == 0 {
		return out, validationError("at least one place is required")
	}
	return out, nil
}

func (s *resultService) Record(ctx context.Context, q gateway.Querier, sess *models.Session, competitionID string, in ResultInput) (*models.CompetitionResult, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	poule := strings.TrimSpace(in.PouleName)
	if poule == "" {
		return nil, validationError("poule name is required")
	}
	places, err := validatePlaces(in.Places)
	if err != nil {
		return nil, err
	}
	if _, err := repositories.NewCompetitionRepository(q).GetByID(ctx, competitionID); err != nil {
		return nil, handleRepositoryError(err)
	}

	res := &models.CompetitionResult{
		CompetitionID:       competitionID,
		PouleName:           poule,
		FirstPlaceMemberID:  places[0],
		SecondPlaceMemberID: places[1],
		ThirdPlaceMemberID:  places[2],
		FourthPlaceMemberID: places[3],
	}
	if err := repositories.NewResultRepository(q).Create(ctx, res); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Competition result recorded",
		slog.String("competition_id", competitionID), slog.String("poule", poule))
	return res, nil
}

func (s *resultService) List(ctx context.Context, q gateway.Querier, competitionID string) ([]models.CompetitionResult, error) {
	results, err := repositories.NewResultRepository(q).ListByCompetition(ctx, competitionID)
	return results, handleRepositoryError(err)
}
