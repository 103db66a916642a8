package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

type AdminDashboardLoader interface {
	Load(ctx context.Context, q gateway.Querier, sess *models.Session) (models.AdminDashboardState, error)
}

type adminDashboardLoader struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAdminDashboardLoader(logger *slog.Logger, now func() time.Time) AdminDashboardLoader {
	if now == nil {
		now = time.Now
	}
	return &adminDashboardLoader{logger: logger, now: now}
}

// Load re-checks the admin role even though the guard already did; the
// overview lists upcoming competitions.
func (l *adminDashboardLoader) Load(ctx context.Context, q gateway.Querier, sess *models.Session) (models.AdminDashboardState, error) {
	state := models.AdminDashboardState{UpcomingCompetitions: []models.Competition{}}
	if err := requireAdmin(sess); err != nil {
		return state, err
	}

	competitions, err := repositories.NewCompetitionRepository(q).ListUpcoming(ctx, models.DateOf(l.now()))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, ctxErr
		}
		state.Degraded = append(state.Degraded, StepCompetitions)
		metrics.LoaderStepFailed("admin", StepCompetitions)
		l.logger.ErrorContext(ctx, "Admin dashboard load failed",
			slog.String("user_id", sess.UserID()), slog.Any("error", err))
		return state, nil
	}
	state.UpcomingCompetitions = competitions
	return state, nil
}
