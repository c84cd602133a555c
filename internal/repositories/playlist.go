package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const playlistColumns = `id, sequence, title, url, endpoint, owner_id, created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.Playlist].
//
// Playlists are keyed by their Spotify playlist id and reference the owning user.
type PlaylistRepository struct {
	db *shared.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *shared.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with a generated sequence
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	playlist.SetSequence(sequence)

	query := r.db.Rebind(`
		INSERT INTO playlists (id, sequence, title, url, endpoint, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query,
		playlist.ID(),
		sequence,
		playlist.Title(),
		playlist.URL(),
		playlist.Endpoint(),
		playlist.OwnerID(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := r.db.Rebind(`SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`)
	playlist, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return playlist, err
}

// Update modifies the playlist title. The endpoint and owner never change after creation.
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE playlists SET title = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	result, err := r.db.Exec(query, playlist.Title(), now, playlist.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	if err := expectAffected(result, shared.ErrPlaylistNotFound, playlist.ID()); err != nil {
		return err
	}

	playlist.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := r.db.Rebind(`UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return expectAffected(result, shared.ErrPlaylistNotFound, id)
}

// Purge removes the playlist row. Unlike [PlaylistRepository.Delete] the id can be created again.
func (r *PlaylistRepository) Purge(id string) error {
	result, err := r.db.Exec(r.db.Rebind(`DELETE FROM playlists WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to purge playlist: %w", err)
	}

	return expectAffected(result, shared.ErrPlaylistNotFound, id)
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
//
// Supported criteria: "owner_id".
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if ownerID, ok := criteria["owner_id"].(string); ok && ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) scan(row scanner) (*models.Playlist, error) {
	var (
		id        string
		sequence  int
		title     string
		url       string
		endpoint  string
		ownerID   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &title, &url, &endpoint, &ownerID, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.NewPlaylist(id, title, url, endpoint, ownerID)
	playlist.SetSequence(sequence)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}
