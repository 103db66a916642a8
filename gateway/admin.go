package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/association-portal/models"
)

// AdminService calls the privileged user-management API. It is built from
// the service-role key and must only run in operator tooling, never in the
// web server.
type AdminService struct {
	ep *endpoint
}

func NewAdminService(projectURL, serviceRoleKey string, client *http.Client) (*AdminService, error) {
	if serviceRoleKey == "" {
		return nil, errors.New("gateway: service role key is required")
	}
	ep, err := newEndpoint(projectURL, serviceRoleKey, client)
	if err != nil {
		return nil, err
	}
	return &AdminService{ep: ep}, nil
}

type CreateUserInput struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// CreateUser creates a user directly, bypassing sign-up.
func (a *AdminService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	var user models.User
	err := a.ep.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/admin/users",
		body:   input,
	}, &user)
	if err != nil {
		return nil, classifyAuthError(err)
	}
	return &user, nil
}
