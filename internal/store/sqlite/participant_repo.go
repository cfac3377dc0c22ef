package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"duochat/internal/domain"
)

type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

var _ domain.ParticipantRepository = (*ParticipantRepo)(nil)

func (r *ParticipantRepo) ListParticipants(ctx context.Context, conversationID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.phone_number, u.email, u.hashed_password, u.is_active, u.created_at
		FROM users u
		JOIN conversation_participants cp ON cp.user_id = u.id
		WHERE cp.conversation_id = ?
		ORDER BY u.username ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.PhoneNumber,
			&u.Email,
			&u.HashedPassword,
			&u.IsActive,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return true, nil
}

// Hide updates only the caller's membership row, so concurrent soft-deletes
// by the two participants can never overwrite each other's watermark.
func (r *ParticipantRepo) Hide(ctx context.Context, conversationID, userID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants
		SET hidden = 1, deleted_at = ?
		WHERE conversation_id = ? AND user_id = ?
	`, at.UTC(), conversationID, userID); err != nil {
		return fmt.Errorf("hide conversation: %w", err)
	}
	return nil
}

// Restore clears the hidden flag. deleted_at is deliberately left alone:
// it is the permanent visibility watermark.
func (r *ParticipantRepo) Restore(ctx context.Context, conversationID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants
		SET hidden = 0
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID); err != nil {
		return fmt.Errorf("restore conversation: %w", err)
	}
	return nil
}

func (r *ParticipantRepo) HiddenUserIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id
		FROM conversation_participants
		WHERE conversation_id = ? AND hidden = 1
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("hidden participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ParticipantRepo) Watermark(ctx context.Context, conversationID, userID int64) (*time.Time, error) {
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT deleted_at
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&deletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	if !deletedAt.Valid {
		return nil, nil
	}
	t := deletedAt.Time
	return &t, nil
}
