package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed")
	ErrRegistrationClosed  = errors.New("competition registration deadline has passed")
	ErrAssociationRequired = errors.New("create your association first")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file is too large")

	// Ошибки конфликтов
	ErrAssociationConflict  = errors.New("you already own an association")
	ErrAssociationAmbiguous = errors.New("more than one association is linked to your account")
	ErrRegistrationConflict = errors.New("member is already registered for this competition")
	ErrResultConflict       = errors.New("result for this poule already recorded")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrAssociationNotFound = errors.New("association not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrCompetitionNotFound = errors.New("competition not found")

	// Инфраструктура
	ErrStorageUnavailable = errors.New("file storage is not configured")
	ErrBackendUnavailable = errors.New("backend is unavailable")
)
