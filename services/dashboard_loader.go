package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

// Load step names, reported in DashboardState.Degraded.
const (
	StepAssociation  = "association"
	StepMembers      = "members"
	StepCompetitions = "competitions"
)

var stepOrder = map[string]int{StepAssociation: 0, StepMembers: 1, StepCompetitions: 2}

type DashboardLoader interface {
	// Load builds the dashboard for sess. Step failures are logged and
	// listed in Degraded; the returned error is only set when sess is
	// missing or ctx was cancelled.
	Load(ctx context.Context, q gateway.Querier, sess *models.Session) (models.DashboardState, error)
}

type dashboardLoader struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardLoader returns a loader. now defaults to time.Now; "today" is
// the calendar date of now() in its location.
func NewDashboardLoader(logger *slog.Logger, now func() time.Time) DashboardLoader {
	if now == nil {
		now = time.Now
	}
	return &dashboardLoader{logger: logger, now: now}
}

func (l *dashboardLoader) Load(ctx context.Context, q gateway.Querier, sess *models.Session) (models.DashboardState, error) {
	state := models.DashboardState{
		Loading:      true,
		Members:      []models.Member{},
		Competitions: []models.Competition{},
	}
	userID, err := requireSession(sess)
	if err != nil {
		state.Loading = false
		return state, err
	}
	today := models.DateOf(l.now())

	var mu sync.Mutex
	fail := func(step string, err error) {
		mu.Lock()
		state.Degraded = append(state.Degraded, step)
		mu.Unlock()
		metrics.LoaderStepFailed("dashboard", step)
		l.logger.ErrorContext(ctx, "Dashboard load step failed",
			slog.String("step", step), slog.String("user_id", userID), slog.Any("error", err))
	}

	// Steps never return errors to the group: one failing step must not
	// cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		association, err := repositories.NewAssociationRepository(q).GetByUserID(ctx, userID)
		if err != nil {
			fail(StepAssociation, err)
			return nil
		}
		state.Association = association
		if association == nil {
			return nil
		}
		members, err := repositories.NewMemberRepository(q).ListByAssociation(ctx, association.ID)
		if err != nil {
			fail(StepMembers, err)
			return nil
		}
		state.Members = members
		return nil
	})
	g.Go(func() error {
		competitions, err := repositories.NewCompetitionRepository(q).ListUpcoming(ctx, today)
		if err != nil {
			fail(StepCompetitions, err)
			return nil
		}
		state.Competitions = competitions
		return nil
	})
	_ = g.Wait()

	state.Loading = false
	if err := ctx.Err(); err != nil {
		return state, err
	}
	// load order, so repeated loads compare equal
	sort.SliceStable(state.Degraded, func(i, j int) bool {
		return stepOrder[state.Degraded[i]] < stepOrder[state.Degraded[j]]
	})
	return state, nil
}
