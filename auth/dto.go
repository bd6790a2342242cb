// Data transfer objects for the auth endpoints. Validation rules are
// declared as struct tags and enforced through the validation package
// before any business logic runs.
package auth

// SignupRequest is the registration payload.
type SignupRequest struct {
	Name            string `json:"name" validate:"required" example:"Jonas Schmedtmann"`
	Email           string `json:"email" validate:"required,email" example:"jonas@example.com"`
	Password        string `json:"password" validate:"required,min=8,max=72" example:"pass1234!"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password" example:"pass1234!"`
}

// LoginRequest is the login payload. Presence of both fields is checked in
// the handler so the missing-field failure is a 400, distinct from the 401
// for wrong credentials.
type LoginRequest struct {
	Email    string `json:"email" example:"jonas@example.com"`
	Password string `json:"password" example:"pass1234!"`
}

// ForgotPasswordRequest asks for a reset token to be emailed.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"jonas@example.com"`
}

// ResetPasswordRequest carries the new password; the plaintext reset token
// travels in the URL path.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdatePasswordRequest is the self-service password change payload. The
// current password is required even though the caller is authenticated, as
// a defense against hijacked sessions.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}
