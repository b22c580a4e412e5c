package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
)

const accountColumns = `id, organisation_name, organisation_size, organisation_type, representative, designation,
        company_email, mobile, password_hash, is_verified, verification_token, verification_token_expires_at,
        reset_token, reset_token_expires_at, account_status, created_at, updated_at`

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.NewAccount) (*domain.Account, error) {
	const query = `
        INSERT INTO organisation_account (
            organisation_name, organisation_size, organisation_type, representative, designation,
            company_email, mobile, password_hash, verification_token, verification_token_expires_at,
            is_verified, account_status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, 'active')
        RETURNING ` + accountColumns

	row := r.db.QueryRowxContext(ctx, query,
		account.OrganisationName,
		account.OrganisationSize,
		account.OrganisationType,
		account.Representative,
		account.Designation,
		account.CompanyEmail,
		account.Mobile,
		account.PasswordHash,
		account.VerificationToken,
		account.VerificationTokenExpiresAt,
	)
	var created domain.Account
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM organisation_account WHERE company_email = $1`
	var account domain.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM organisation_account WHERE id = $1`
	var account domain.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*domain.Account, error) {
	const query = `
        UPDATE organisation_account
        SET is_verified = TRUE,
            verification_token = NULL,
            verification_token_expires_at = NULL,
            updated_at = NOW()
        WHERE verification_token = $1
          AND (verification_token_expires_at IS NULL OR verification_token_expires_at > $2)
        RETURNING ` + accountColumns

	var account domain.Account
	if err := r.db.QueryRowxContext(ctx, query, token, now).StructScan(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt *time.Time) error {
	const query = `
        UPDATE organisation_account
        SET reset_token = $2,
            reset_token_expires_at = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, token, expiresAt)
	return err
}

func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token string, passwordHash string, now time.Time) (*domain.Account, error) {
	const query = `
        UPDATE organisation_account
        SET password_hash = $2,
            reset_token = NULL,
            reset_token_expires_at = NULL,
            updated_at = NOW()
        WHERE reset_token = $1
          AND (reset_token_expires_at IS NULL OR reset_token_expires_at > $3)
        RETURNING ` + accountColumns

	var account domain.Account
	if err := r.db.QueryRowxContext(ctx, query, token, passwordHash, now).StructScan(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Touch(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE organisation_account
        SET updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
