package auth

import (
	"github.com/google/uuid"

	"github.com/acctbay/storefront-backend/internal/users"
	"github.com/acctbay/storefront-backend/pkg/enums"
)

// RequestCodeRequest asks for a login code to be emailed.
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest exchanges an emailed code for a session.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Session is the authenticated caller attached to a request.
type Session struct {
	UserID   uuid.UUID      `json:"user_id"`
	Email    string         `json:"email"`
	Role     enums.UserRole `json:"role"`
	AccessID string         `json:"-"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == enums.UserRoleAdmin
}

// VerifyCodeResponse carries the minted tokens and profile.
type VerifyCodeResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// Transition notifies subscribers of a session change. Session is nil when the
// user signed out.
type Transition struct {
	UserID  uuid.UUID
	Session *Session
}
