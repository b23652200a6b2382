package session

import "github.com/partshub/storefront/internal/models"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u *userPayload) toUser(token string) models.User {
	role := u.Role
	if role == "" {
		role = models.RoleCustomer
	}
	return models.User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  role,
		Token: token,
	}
}

// loginResponse is the one canonical shape accepted from a login or register
// endpoint. Some deployments name the token field accessToken; both are
// accepted, anything else is rejected as a bad response.
type loginResponse struct {
	User        *userPayload `json:"user"`
	Token       string       `json:"token"`
	AccessToken string       `json:"accessToken"`
	Success     bool         `json:"success"`
}

func (r *loginResponse) bearer() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type verifyResponse struct {
	User *userPayload `json:"user"`
}
