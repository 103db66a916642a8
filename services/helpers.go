package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
)

// repoErrors maps repository sentinels to the service ones handlers know.
var repoErrors = []struct{ from, to error }{
	{repositories.ErrAssociationNotFound, ErrAssociationNotFound},
	{repositories.ErrAssociationConflict, ErrAssociationConflict},
	{repositories.ErrAssociationAmbiguous, ErrAssociationAmbiguous},
	{repositories.ErrMemberNotFound, ErrMemberNotFound},
	{repositories.ErrMemberInvalidRef, ErrAssociationNotFound},
	{repositories.ErrCompetitionNotFound, ErrCompetitionNotFound},
	{repositories.ErrRegistrationConflict, ErrRegistrationConflict},
	{repositories.ErrRegistrationInvalid, ErrNotFound},
	{repositories.ErrResultConflict, ErrResultConflict},
	{repositories.ErrResultInvalidRef, ErrNotFound},
	{gateway.ErrForbidden, ErrForbiddenOperation},
	{gateway.ErrAuthUnavailable, ErrBackendUnavailable},
	{gateway.ErrQueryFailed, ErrBackendUnavailable},
}

// handleRepositoryError wraps err with the matching service sentinel, keeping
// the original in the message for the logs.
func handleRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, m := range repoErrors {
		if errors.Is(err, m.from) {
			return fmt.Errorf("%w: %v", m.to, err)
		}
	}
	return err
}

func requireSession(sess *models.Session) (string, error) {
	if sess == nil || sess.UserID() == "" {
		return "", ErrAuthenticationFailed
	}
	return sess.UserID(), nil
}

func requireAdmin(sess *models.Session) error {
	if _, err := requireSession(sess); err != nil {
		return err
	}
	if !sess.IsAdmin() {
		return ErrForbiddenOperation
	}
	return nil
}

// ownAssociation returns the caller's association or ErrAssociationRequired.
func ownAssociation(ctx context.Context, q gateway.Querier, sess *models.Session) (*models.Association, error) {
	userID, err := requireSession(sess)
	if err != nil {
		return nil, err
	}
	a, err := repositories.NewAssociationRepository(q).GetByUserID(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if a == nil {
		return nil, ErrAssociationRequired
	}
	return a, nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
