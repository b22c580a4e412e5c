package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
)

// AccountRepository returns sql.ErrNoRows when no account matches and a
// Postgres unique violation (23505) when the company email is taken.
type AccountRepository interface {
	Create(ctx context.Context, account domain.NewAccount) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// ConsumeVerificationToken marks the owning account verified and clears
	// the token in one step. Only one caller can consume a given token.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*domain.Account, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt *time.Time) error
	// ConsumeResetToken replaces the password hash and clears the token in one step.
	ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (*domain.Account, error)
	Touch(ctx context.Context, id uuid.UUID) error
}
