package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories/repotest"
)

func strPtr(s string) *string { return &s }

func TestAssociationGetByUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		repo := NewAssociationRepository(repotest.New())
		a, err := repo.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("one", func(t *testing.T) {
		q := repotest.New().Seed(tableAssociations,
			models.Association{ID: "a1", Name: "Judo Club", UserID: "u1"},
			models.Association{ID: "a2", Name: "Other", UserID: "u2"})
		a, err := NewAssociationRepository(q).GetByUserID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "a1", a.ID)
		assert.Equal(t, 2, q.Queries()[0].Limit)
	})

	t.Run("two", func(t *testing.T) {
		q := repotest.New().Seed(tableAssociations,
			models.Association{ID: "a1", UserID: "u1"},
			models.Association{ID: "a2", UserID: "u1"})
		_, err := NewAssociationRepository(q).GetByUserID(ctx, "u1")
		assert.ErrorIs(t, err, ErrAssociationAmbiguous)
	})
}

func TestMemberListByAssociation_EmptyIsNotNil(t *testing.T) {
	repo := NewMemberRepository(repotest.New())

	members, err := repo.ListByAssociation(context.Background(), "a1")

	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestMemberCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	q := repotest.New()
	repo := NewMemberRepository(q)

	m := &models.Member{
		FirstName:     "Ana",
		LastName:      "Lopes",
		DateOfBirth:   models.NewDate(2001, 4, 2),
		Type:          models.MemberCoach,
		AssociationID: "a1",
	}
	require.NoError(t, repo.Create(ctx, m))
	require.NotEmpty(t, m.ID)
	assert.Equal(t, "2001-04-02", m.DateOfBirth.String())

	m.Grade = strPtr("black belt")
	require.NoError(t, repo.Update(ctx, m))
	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, " • Grade: black belt", got.GradeSuffix())

	require.NoError(t, repo.Delete(ctx, m.ID))
	_, err = repo.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	err = repo.Update(ctx, m)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestCompetitionListUpcoming(t *testing.T) {
	q := repotest.New().Seed(tableCompetitions,
		models.Competition{ID: "late", Date: models.NewDate(2026, 12, 1), RegistrationDeadline: models.NewDate(2026, 11, 20)},
		models.Competition{ID: "closed", Date: models.NewDate(2026, 10, 25), RegistrationDeadline: models.NewDate(2026, 10, 18)},
		models.Competition{ID: "today", Date: models.NewDate(2026, 10, 30), RegistrationDeadline: models.NewDate(2026, 10, 19)},
	)

	got, err := NewCompetitionRepository(q).ListUpcoming(context.Background(), models.NewDate(2026, 10, 19))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "today", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestRegistrationCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	q := repotest.New().Unique(tableRegistrations, "competition_id", "member_id")
	repo := NewRegistrationRepository(q)

	require.NoError(t, repo.Create(ctx, &models.CompetitionRegistration{CompetitionID: "c1", MemberID: "m1", Weight: 60}))
	err := repo.Create(ctx, &models.CompetitionRegistration{CompetitionID: "c1", MemberID: "m1", Weight: 61})

	assert.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestRegistrationListByMembers_NoMembersSkipsQuery(t *testing.T) {
	q := repotest.New()

	regs, err := NewRegistrationRepository(q).ListByMembers(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, regs)
	assert.Empty(t, q.Queries())
}

func TestMapWriteError(t *testing.T) {
	apiErr := &gateway.APIError{Status: 400, Code: "23503"}

	err := mapWriteError(apiErr, ErrResultConflict, ErrResultInvalidRef)

	assert.ErrorIs(t, err, ErrResultInvalidRef)
	plain := errors.New("boom")
	assert.Same(t, plain, mapWriteError(plain, ErrResultConflict, nil))
}
