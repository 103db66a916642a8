package repositories

import "errors"

var (
	ErrAssociationNotFound  = errors.New("association not found")
	ErrAssociationAmbiguous = errors.New("user owns more than one association")
	ErrAssociationConflict  = errors.New("user already owns an association")
	ErrMemberNotFound       = errors.New("member not found")
	ErrMemberInvalidRef     = errors.New("member references a missing association")
	ErrCompetitionNotFound  = errors.New("competition not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationConflict = errors.New("member is already registered for this competition")
	ErrRegistrationInvalid  = errors.New("registration references a missing member or competition")
	ErrResultConflict       = errors.New("result for this poule already recorded")
	ErrResultInvalidRef     = errors.New("result references a missing member or competition")
)
