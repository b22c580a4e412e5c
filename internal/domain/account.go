package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusExpired   AccountStatus = "expired"
)

// Account is an organisation registration keyed by its company email.
type Account struct {
	ID                         uuid.UUID     `db:"id" json:"id"`
	OrganisationName           string        `db:"organisation_name" json:"organisationName"`
	OrganisationSize           string        `db:"organisation_size" json:"organisationSize"`
	OrganisationType           string        `db:"organisation_type" json:"organisationType"`
	Representative             string        `db:"representative" json:"representative"`
	Designation                string        `db:"designation" json:"designation"`
	CompanyEmail               string        `db:"company_email" json:"companyEmail"`
	Mobile                     string        `db:"mobile" json:"mobile"`
	PasswordHash               string        `db:"password_hash" json:"-"`
	IsVerified                 bool          `db:"is_verified" json:"isVerified"`
	VerificationToken          *string       `db:"verification_token" json:"-"`
	VerificationTokenExpiresAt *time.Time    `db:"verification_token_expires_at" json:"-"`
	ResetToken                 *string       `db:"reset_token" json:"-"`
	ResetTokenExpiresAt        *time.Time    `db:"reset_token_expires_at" json:"-"`
	AccountStatus              AccountStatus `db:"account_status" json:"accountStatus"`
	CreatedAt                  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt                  time.Time     `db:"updated_at" json:"updatedAt"`
}

func (a *Account) IsActive() bool {
	return a.AccountStatus == AccountStatusActive
}

// NewAccount carries the fields persisted on registration.
type NewAccount struct {
	OrganisationName           string
	OrganisationSize           string
	OrganisationType           string
	Representative             string
	Designation                string
	CompanyEmail               string
	Mobile                     string
	PasswordHash               string
	VerificationToken          string
	VerificationTokenExpiresAt *time.Time
}
