package http

import "github.com/njprem/OrgAuth_BackEnd/internal/domain"

// MessageResponse is the envelope every auth endpoint answers with.
type MessageResponse struct {
	Message string `json:"message" example:"Invalid credentials"`
}

// RegisterRequest carries the organisation registration form.
type RegisterRequest struct {
	OrganisationName string `json:"organisationName" validate:"required,max=200" example:"Acme Ltd"`
	OrganisationSize string `json:"organisationSize" validate:"max=50" example:"11-50"`
	OrganisationType string `json:"organisationType" validate:"max=100" example:"Private"`
	Representative   string `json:"representative" validate:"max=200" example:"Jo Doe"`
	Designation      string `json:"designation" validate:"max=200" example:"CTO"`
	CompanyEmail     string `json:"companyEmail" validate:"required,email" example:"admin@acme.test"`
	Password         string `json:"password" validate:"required" example:"Str0ng!Pass"`
	ConfirmPassword  string `json:"confirmPassword" validate:"required" example:"Str0ng!Pass"`
	Mobile           string `json:"mobile" validate:"max=32" example:"+10000000000"`
}

// LoginRequest is shared by the public and internal login routes. Missing
// fields surface as invalid credentials rather than validation errors.
type LoginRequest struct {
	CompanyEmail string `json:"companyEmail" example:"admin@acme.test"`
	Password     string `json:"password" example:"Str0ng!Pass"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

type ForgotPasswordRequest struct {
	CompanyEmail string `json:"companyEmail" validate:"required,email" example:"admin@acme.test"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" example:"1f0c2b8e-8a8f-4f0e-9a51-0b8f4d1b2c3d"`
	Password string `json:"password" example:"N3w!Passw0rd"`
}

// TokenResponse is returned by both login routes.
type TokenResponse struct {
	AccessToken string `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// AccountResponse wraps the sanitised account for /me.
type AccountResponse struct {
	Account *domain.Account `json:"account"`
}
