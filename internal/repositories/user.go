package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const userColumns = `id, sequence, display_name, email, url, access_token, refresh_token, active_playlist_id, created_at, updated_at, deleted_at`

// UserRepository implements [models.Repository] for [models.User] persistence.
//
// Users are keyed by their Spotify id, so Create expects the id to be set.
type UserRepository struct {
	db *shared.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *shared.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with a generated sequence
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)

	query := r.db.Rebind(`
		INSERT INTO users (id, sequence, display_name, email, url, access_token, refresh_token, active_playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query,
		user.ID(),
		sequence,
		user.DisplayName(),
		user.Email(),
		user.URL(),
		user.AccessToken(),
		user.RefreshToken(),
		nullString(user.ActivePlaylistID()),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by Spotify id, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`)
	user, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return user, err
}

// GetByEmail retrieves a user by email, excluding soft-deleted users
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ? AND deleted_at IS NULL`)
	user, err := r.scan(r.db.QueryRow(query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, email)
	}
	return user, err
}

// Update writes the user's profile, tokens and active playlist.
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE users
		SET display_name = ?, email = ?, url = ?, access_token = ?, refresh_token = ?, active_playlist_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`)

	result, err := r.db.Exec(query,
		user.DisplayName(),
		user.Email(),
		user.URL(),
		user.AccessToken(),
		user.RefreshToken(),
		nullString(user.ActivePlaylistID()),
		now,
		user.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if err := expectAffected(result, shared.ErrUserNotFound, user.ID()); err != nil {
		return err
	}

	user.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a user by id
func (r *UserRepository) Delete(id string) error {
	query := r.db.Rebind(`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectAffected(result, shared.ErrUserNotFound, id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// scan reads a row into a [models.User]. [sql.ErrNoRows] is returned unwrapped.
func (r *UserRepository) scan(row scanner) (*models.User, error) {
	var (
		id               string
		sequence         int
		displayName      string
		email            string
		url              string
		accessToken      string
		refreshToken     string
		activePlaylistID sql.NullString
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &displayName, &email, &url, &accessToken, &refreshToken, &activePlaylistID, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user := models.NewUser(id, email, models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken})
	user.SetSequence(sequence)
	user.SetDisplayName(displayName)
	user.SetURL(url)
	user.SetActivePlaylistID(activePlaylistID.String)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}
