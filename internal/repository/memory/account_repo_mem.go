// Package memory holds an in-process AccountRepository for local runs and tests.
package memory

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
)

const uniqueViolation = "23505"

type AccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	byEmail  map[string]uuid.UUID
	now      func() time.Time
}

func NewAccountRepo() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uuid.UUID]*domain.Account),
		byEmail:  make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.NewAccount) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.CompanyEmail]; exists {
		return nil, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "organisation_account_company_email_key"}
	}

	now := r.now()
	token := account.VerificationToken
	created := &domain.Account{
		ID:                         uuid.New(),
		OrganisationName:           account.OrganisationName,
		OrganisationSize:           account.OrganisationSize,
		OrganisationType:           account.OrganisationType,
		Representative:             account.Representative,
		Designation:                account.Designation,
		CompanyEmail:               account.CompanyEmail,
		Mobile:                     account.Mobile,
		PasswordHash:               account.PasswordHash,
		IsVerified:                 false,
		VerificationToken:          &token,
		VerificationTokenExpiresAt: copyTime(account.VerificationTokenExpiresAt),
		AccountStatus:              domain.AccountStatusActive,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	r.accounts[created.ID] = created
	r.byEmail[created.CompanyEmail] = created.ID
	return clone(created), nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clone(r.accounts[id]), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clone(account), nil
}

func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if !tokenMatches(account.VerificationToken, account.VerificationTokenExpiresAt, token, now) {
			continue
		}
		account.IsVerified = true
		account.VerificationToken = nil
		account.VerificationTokenExpiresAt = nil
		account.UpdatedAt = r.now()
		return clone(account), nil
	}
	return nil, sql.ErrNoRows
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil
	}
	account.ResetToken = &token
	account.ResetTokenExpiresAt = copyTime(expiresAt)
	account.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if !tokenMatches(account.ResetToken, account.ResetTokenExpiresAt, token, now) {
			continue
		}
		account.PasswordHash = passwordHash
		account.ResetToken = nil
		account.ResetTokenExpiresAt = nil
		account.UpdatedAt = r.now()
		return clone(account), nil
	}
	return nil, sql.ErrNoRows
}

func (r *AccountRepository) Touch(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[id]; ok {
		account.UpdatedAt = r.now()
	}
	return nil
}

// SetStatus changes the account status; there is no HTTP surface for it.
func (r *AccountRepository) SetStatus(id uuid.UUID, status domain.AccountStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[id]; ok {
		account.AccountStatus = status
	}
}

// Len reports how many accounts are stored.
func (r *AccountRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

func tokenMatches(stored *string, expiresAt *time.Time, candidate string, now time.Time) bool {
	if stored == nil || strings.TrimSpace(candidate) == "" || *stored != candidate {
		return false
	}
	return expiresAt == nil || expiresAt.After(now)
}

func clone(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	out := *account
	if account.VerificationToken != nil {
		v := *account.VerificationToken
		out.VerificationToken = &v
	}
	if account.ResetToken != nil {
		v := *account.ResetToken
		out.ResetToken = &v
	}
	out.VerificationTokenExpiresAt = copyTime(account.VerificationTokenExpiresAt)
	out.ResetTokenExpiresAt = copyTime(account.ResetTokenExpiresAt)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
