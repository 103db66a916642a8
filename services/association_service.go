package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories"
	"github.com/Dosada05/association-portal/storage"
)

const MaxLogoSize = 2 << 20

type AssociationService interface {
	// Mine returns the caller's association or nil.
	Mine(ctx context.Context, q gateway.Querier, sess *models.Session) (*models.Association, error)
	UpsertMine(ctx context.Context, q gateway.Querier, sess *models.Session, name string) (*models.Association, error)
	UploadLogo(ctx context.Context, q gateway.Querier, sess *models.Session, contentType string, size int64, body io.Reader) (*models.Association, error)
}

type associationService struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewAssociationService(uploader storage.FileUploader, logger *slog.Logger) AssociationService {
	if uploader == nil {
		uploader = storage.Disabled{}
	}
	return &associationService{uploader: uploader, logger: logger}
}

func (s *associationService) Mine(ctx context.Context, q gateway.Querier, sess *models.Session) (*models.Association, error) {
	userID, err := requireSession(sess)
	if err != nil {
		return nil, err
	}
	a, err := repositories.NewAssociationRepository(q).GetByUserID(ctx, userID)
	return a, handleRepositoryError(err)
}

func (s *associationService) UpsertMine(ctx context.Context, q gateway.Querier, sess *models.Session, name string) (*models.Association, error) {
	userID, err := requireSession(sess)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("association name is required")
	}

	repo := repositories.NewAssociationRepository(q)
	a, err := repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if a == nil {
		a = &models.Association{Name: name, UserID: userID}
		if err := repo.Create(ctx, a); err != nil {
			return nil, handleRepositoryError(err)
		}
		s.logger.InfoContext(ctx, "Association created", slog.String("association_id", a.ID), slog.String("user_id", userID))
		return a, nil
	}

	a.Name = name
	if err := repo.Update(ctx, a); err != nil {
		return nil, handleRepositoryError(err)
	}
	return a, nil
}

// UploadLogo stores body as the association's logo and points logo_url at
// it. The previous object is removed afterwards; failing to remove it only
// gets logged.
func (s *associationService) UploadLogo(ctx context.Context, q gateway.Querier, sess *models.Session, contentType string, size int64, body io.Reader) (*models.Association, error) {
	if _, ok := s.uploader.(storage.Disabled); ok {
		return nil, ErrStorageUnavailable
	}
	ext, ok := storage.LogoExtension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}
	if size > MaxLogoSize {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, size, MaxLogoSize)
	}

	a, err := ownAssociation(ctx, q, sess)
	if err != nil {
		return nil, err
	}

	key := storage.LogoKey(a.ID, ext)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, io.LimitReader(body, MaxLogoSize+1))
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			return nil, ErrStorageUnavailable
		}
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}

	var previous string
	if a.LogoURL != nil {
		previous = *a.LogoURL
	}
	a.LogoURL = &uploaded.Location
	if err := repositories.NewAssociationRepository(q).Update(ctx, a); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err)
	}

	if oldKey, ok := storage.KeyFromPublicURL(s.uploader, previous); ok {
		if err := s.uploader.Delete(ctx, oldKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove previous logo", slog.String("key", oldKey), slog.Any("error", err))
		}
	}
	return a, nil
}
