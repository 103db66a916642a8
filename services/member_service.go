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

// MemberInput is the editable part of a member.
type MemberInput struct {
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	DateOfBirth models.Date       `json:"date_of_birth"`
	Type        models.MemberType `json:"type"`
	Grade       string            `json:"grade"`
}

type MemberService interface {
	List(ctx context.Context, q gateway.Querier, sess *models.Session) ([]models.Member, error)
	Create(ctx context.Context, q gateway.Querier, sess *models.Session, in MemberInput) (*models.Member, error)
	Update(ctx context.Context, q gateway.Querier, sess *models.Session, id string, in MemberInput) (*models.Member, error)
	Delete(ctx context.Context, q gateway.Querier, sess *models.Session, id string) error
}

type memberService struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewMemberService(logger *slog.Logger, now func() time.Time) MemberService {
	if now == nil {
		now = time.Now
	}
	return &memberService{logger: logger, now: now}
}

func (s *memberService) validate(in *MemberInput) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Type = models.MemberType(strings.ToLower(strings.TrimSpace(string(in.Type))))

	switch {
	case in.FirstName == "" || in.LastName == "":
		return validationError("first and last name are required")
	case !in.Type.Valid():
		return validationError("member type must be one of adherent, coach, referee; got %q", in.Type)
	case in.DateOfBirth.IsZero():
		return validationError("date of birth is required")
	case in.DateOfBirth.After(models.DateOf(s.now())):
		return validationError("date of birth %s is in the future", in.DateOfBirth)
	}
	return nil
}

func (s *memberService) List(ctx context.Context, q gateway.Querier, sess *models.Session) ([]models.Member, error) {
	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}
	members, err := repositories.NewMemberRepository(q).ListByAssociation(ctx, a.ID)
	return members, handleRepositoryError(err)
}

func (s *memberService) Create(ctx context.Context, q gateway.Querier, sess *models.Session, in MemberInput) (*models.Member, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}

	m := &models.Member{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		DateOfBirth:   in.DateOfBirth,
		Type:          in.Type,
		Grade:         optionalString(in.Grade),
		AssociationID: a.ID,
	}
	if err := repositories.NewMemberRepository(q).Create(ctx, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Member created", slog.String("member_id", m.ID), slog.String("association_id", a.ID))
	return m, nil
}

// owned loads member id and checks it belongs to the caller's association.
func (s *memberService) owned(ctx context.Context, q gateway.Querier, sess *models.Session, id string) (*models.Member, error) {
	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}
	m, err := repositories.NewMemberRepository(q).GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if m.AssociationID != a.ID {
		return nil, ErrForbiddenOperation
	}
	return m, nil
}

func (s *memberService) Update(ctx context.Context, q gateway.Querier, sess *models.Session, id string, in MemberInput) (*models.Member, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	m, err := s.owned(ctx, q, sess, id)
	if err != nil {
		return nil, err
	}

	m.FirstName = in.FirstName
	m.LastName = in.LastName
	m.DateOfBirth = in.DateOfBirth
	m.Type = in.Type
	m.Grade = optionalString(in.Grade)
	if err := repositories.NewMemberRepository(q).Update(ctx, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *memberService) Delete(ctx context.Context, q gateway.Querier, sess *models.Session, id string) error {
	m, err := s.owned(ctx, q, sess, id)
	if err != nil {
		return err
	}
	if err := repositories.NewMemberRepository(q).Delete(ctx, m.ID); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Member deleted", slog.String("member_id", m.ID))
	return nil
}
