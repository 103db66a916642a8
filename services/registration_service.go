package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

type RegistrationInput struct {
	CompetitionID string  `json:"competition_id"`
	MemberID      string  `json:"member_id"`
	Weight        float64 `json:"weight"`
}

type RegistrationService interface {
	// Register enters one of the caller's members into a competition whose
	// registration is still open.
	Register(ctx context.Context, q gateway.Querier, sess *models.Session, in RegistrationInput) (*models.CompetitionRegistration, error)
	// ListMine lists the registrations of the caller's members.
	ListMine(ctx context.Context, q gateway.Querier, sess *models.Session) ([]models.CompetitionRegistration, error)
}

type registrationService struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistrationService(logger *slog.Logger, now func() time.Time) RegistrationService {
	if now == nil {
		now = time.Now
	}
	return &registrationService{logger: logger, now: now}
}

func (s *registrationService) Register(ctx context.Context, q gateway.Querier, sess *models.Session, in RegistrationInput) (*models.CompetitionRegistration, error) {
	if in.Weight <= 0 {
		return nil, validationError("weight must be positive, got %v", in.Weight)
	}
	if in.CompetitionID == "" || in.MemberID == "" {
		return nil, validationError("competition and member are required")
	}

	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}
	member, err := repositories.NewMemberRepository(q).GetByID(ctx, in.MemberID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if member.AssociationID != a.ID {
		return nil, ErrForbiddenOperation
	}

	competition, err := repositories.NewCompetitionRepository(q).GetByID(ctx, in.CompetitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !competition.RegistrationOpen(models.DateOf(s.now())) {
		return nil, ErrRegistrationClosed
	}

	reg := &models.CompetitionRegistration{CompetitionID: competition.ID, MemberID: member.ID, Weight: in.Weight}
	if err := repositories.NewRegistrationRepository(q).Create(ctx, reg); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Member registered for competition",
		slog.String("member_id", member.ID), slog.String("competition_id", competition.ID))
	return reg, nil
}

func (s *registrationService) ListMine(ctx context.Context, q gateway.Querier, sess *models.Session) ([]models.CompetitionRegistration, error) {
	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}
	members, err := repositories.NewMemberRepository(q).ListByAssociation(ctx, a.ID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	regs, err := repositories.NewRegistrationRepository(q).ListByMembers(ctx, ids)
	return regs, handleRepositoryError(err)
}
