package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const accountColumns = `id, sequence, username, password_hash, user_id, created_at, updated_at, deleted_at`

// AccountRepository implements models.Repository[*models.Account] for local logins.
type AccountRepository struct {
	db *shared.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *shared.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a generated ID and sequence
func (r *AccountRepository) Create(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := r.db.Rebind(`
		INSERT INTO accounts (id, sequence, username, password_hash, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query,
		id,
		sequence,
		account.Username(),
		account.PasswordHash(),
		nullString(account.UserID()),
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.SetID(id)
	account.SetSequence(sequence)
	return nil
}

// Get retrieves an account by ID, excluding soft-deleted accounts
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ? AND deleted_at IS NULL`)
	account, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	return account, err
}

// GetByUsername retrieves an account by username, excluding soft-deleted accounts
func (r *AccountRepository) GetByUsername(username string) (*models.Account, error) {
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE username = ? AND deleted_at IS NULL`)
	account, err := r.scan(r.db.QueryRow(query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, username)
	}
	return account, err
}

// Update writes the password hash and linked user of an account
func (r *AccountRepository) Update(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE accounts
		SET password_hash = ?, user_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`)

	result, err := r.db.Exec(query, account.PasswordHash(), nullString(account.UserID()), now, account.ID())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if err := expectAffected(result, shared.ErrAccountNotFound, account.ID()); err != nil {
		return err
	}

	account.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes an account by ID
func (r *AccountRepository) Delete(id string) error {
	query := r.db.Rebind(`UPDATE accounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return expectAffected(result, shared.ErrAccountNotFound, id)
}

// List retrieves all accounts matching the given criteria
//
// Supported criteria: "user_id".
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) scan(row scanner) (*models.Account, error) {
	var (
		id           string
		sequence     int
		username     string
		passwordHash string
		userID       sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &username, &passwordHash, &userID, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account := models.NewAccount(username, passwordHash)
	account.SetID(id)
	account.SetSequence(sequence)
	account.SetUserID(userID.String)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		account.SetDeletedAt(&deletedAt.Time)
	}

	return account, nil
}
