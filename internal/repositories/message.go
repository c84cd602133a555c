package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

const messageColumns = `id, sequence, playlist_id, sender, body, track_count, created_at, updated_at, deleted_at`

// MessageRepository implements models.Repository[*models.Message] for chat history.
type MessageRepository struct {
	db *shared.DB
}

// NewMessageRepository creates a new MessageRepository with the given database connection
func NewMessageRepository(db *shared.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message with a generated ID and sequence
func (r *MessageRepository) Create(message *models.Message) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "messages")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := r.db.Rebind(`
		INSERT INTO messages (id, sequence, playlist_id, sender, body, track_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query,
		id,
		sequence,
		message.PlaylistID(),
		message.Sender(),
		message.Body(),
		message.TrackCount(),
		message.CreatedAt(),
		message.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	message.SetID(id)
	message.SetSequence(sequence)
	return nil
}

// Get retrieves a message by ID, excluding soft-deleted messages
func (r *MessageRepository) Get(id string) (*models.Message, error) {
	query := r.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE id = ? AND deleted_at IS NULL`)
	message, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrMessageNotFound, id)
	}
	return message, err
}

// Update is not supported: messages are immutable once posted.
func (r *MessageRepository) Update(message *models.Message) error {
	return fmt.Errorf("%w: messages cannot be edited", shared.ErrNotImplemented)
}

// Delete soft-deletes a message by ID
func (r *MessageRepository) Delete(id string) error {
	query := r.db.Rebind(`UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return expectAffected(result, shared.ErrMessageNotFound, id)
}

// List retrieves messages oldest first.
//
// Supported criteria: "playlist_id", "limit" (the most recent n messages).
func (r *MessageRepository) List(criteria map[string]any) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE deleted_at IS NULL`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY sequence DESC LIMIT ?) AS recent`
		args = append(args, limit)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return messages, nil
}

func (r *MessageRepository) scan(row scanner) (*models.Message, error) {
	var (
		id         string
		sequence   int
		playlistID string
		sender     string
		body       string
		trackCount int
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &playlistID, &sender, &body, &trackCount, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	message := models.NewMessage(playlistID, sender, body, trackCount)
	message.SetID(id)
	message.SetSequence(sequence)
	message.SetCreatedAt(createdAt)
	message.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		message.SetDeletedAt(&deletedAt.Time)
	}

	return message, nil
}
