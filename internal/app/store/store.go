/*
Package store implements the durable persistence collaborator backed by PostgreSQL.

The coordination core emits persist intents and trusts acknowledgement; this
package owns the SQL. It also serves history retrieval, which is how
subscribers that missed live deliveries eventually catch up.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatflow/internal/app/chat"
	"chatflow/internal/app/db"
	"chatflow/internal/app/user"
)

// MessageStore persists messages, room bookkeeping, friend requests, and profiles.
type MessageStore struct {
	pool *pgxpool.Pool
}

// New constructs a MessageStore over an initialized connection pool.
func New(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// PersistMessage inserts a newly created message and refreshes the room's
// last-message bookkeeping in one round trip each.
func (s *MessageStore) PersistMessage(ctx context.Context, msg *chat.Message) error {
	reactions, err := json.Marshal(msg.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, sender, content, kind, status, edited, edited_at, deleted, reply_to, reactions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.RoomID, msg.Sender, msg.Content, string(msg.Kind), string(msg.Status),
		msg.Edited, msg.EditedAt, msg.Deleted, msg.ReplyTo, reactions, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rooms (id, last_message, last_message_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET last_message = EXCLUDED.last_message,
		    last_message_at = EXCLUDED.last_message_at,
		    updated_at = now()`,
		msg.RoomID, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("update room bookkeeping: %w", err)
	}

	return nil
}

// UpdateMessage overwrites the mutable fields of an existing message with the
// authoritative snapshot: content, edit markers, tombstone flag, reactions,
// and delivery status.
func (s *MessageStore) UpdateMessage(ctx context.Context, msg *chat.Message) error {
	reactions, err := json.Marshal(msg.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE messages
		SET content = $2, status = $3, edited = $4, edited_at = $5, deleted = $6, reactions = $7
		WHERE id = $1`,
		msg.ID, msg.Content, string(msg.Status), msg.Edited, msg.EditedAt, msg.Deleted, reactions,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	return nil
}

// History returns one page of a room's messages in chronological order.
// Page numbering starts at 1; limit is clamped to a sane range.
func (s *MessageStore) History(ctx context.Context, roomID string, page, limit int) ([]chat.Message, bool, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender, content, kind, status, edited, edited_at, deleted, COALESCE(reply_to, ''), reactions, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		roomID, limit, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var (
			msg       chat.Message
			kind      string
			status    string
			reactions []byte
		)

		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Sender, &msg.Content, &kind, &status,
			&msg.Edited, &msg.EditedAt, &msg.Deleted, &msg.ReplyTo, &reactions, &msg.Timestamp); err != nil {
			return nil, false, fmt.Errorf("scan message: %w", err)
		}

		msg.Kind = chat.Kind(kind)
		msg.Status = chat.DeliveryStatus(status)
		if err := json.Unmarshal(reactions, &msg.Reactions); err != nil {
			msg.Reactions = []chat.Reaction{}
		}

		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate history: %w", err)
	}

	hasMore := len(out) == limit

	// Rows arrive newest-first for paging; flip to chronological for display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, hasMore, nil
}

// ChatSummary is one row of an identity's conversation list.
type ChatSummary struct {
	RoomID        string     `json:"roomId"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// Chats returns the rooms the identity has participated in, most recently
// active first, read from the last-message bookkeeping PersistMessage keeps.
func (s *MessageStore) Chats(ctx context.Context, identity string) ([]ChatSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.last_message, r.last_message_at
		FROM rooms r
		WHERE r.id IN (SELECT DISTINCT room_id FROM messages WHERE sender = $1)
		ORDER BY r.last_message_at DESC NULLS LAST`,
		identity,
	)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	out := []ChatSummary{}
	for rows.Next() {
		var c ChatSummary
		if err := rows.Scan(&c.RoomID, &c.LastMessage, &c.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}

	return out, nil
}

// CreateRoom registers a freshly minted room identifier. Reports
// db.ErrRoomIDTaken when the identifier already exists so the caller can mint
// a new one and retry.
func (s *MessageStore) CreateRoom(ctx context.Context, roomID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, updated_at)
		VALUES ($1, now())`,
		roomID,
	)
	if db.IsUniqueViolation(err) {
		return db.ErrRoomIDTaken
	}
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// AddFriendRequest records a pending friend request. Duplicate requests are
// absorbed by the primary key.
func (s *MessageStore) AddFriendRequest(ctx context.Context, requester, target string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO friend_requests (requester, target, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (requester, target) DO NOTHING`,
		requester, target, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// Profile returns the stored profile for an identity. A missing row yields a
// profile carrying only the identity, so callers never branch on existence.
func (s *MessageStore) Profile(ctx context.Context, identity string) (user.Profile, error) {
	p := user.Profile{Identity: identity}
	err := s.pool.QueryRow(ctx, `
		SELECT display_name, avatar_url, status_text
		FROM profiles
		WHERE identity = $1`,
		identity,
	).Scan(&p.DisplayName, &p.AvatarURL, &p.StatusText)

	if errors.Is(err, pgx.ErrNoRows) {
		return user.Profile{Identity: identity}, nil
	}
	if err != nil {
		return user.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// UpsertProfile writes the identity's editable profile fields.
func (s *MessageStore) UpsertProfile(ctx context.Context, p user.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (identity, display_name, avatar_url, status_text, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (identity) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    avatar_url = EXCLUDED.avatar_url,
		    status_text = EXCLUDED.status_text,
		    updated_at = now()`,
		p.Identity, p.DisplayName, p.AvatarURL, p.StatusText,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
