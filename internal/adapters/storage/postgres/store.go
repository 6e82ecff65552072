package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/roomcast/internal/domain"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	exec := GetExecutor(ctx, s.db)
	var r domain.Room
	err := exec.QueryRowContext(ctx, `
        SELECT id, name, type, created_by_id, created_by_username, created_at
        FROM rooms
        WHERE id = $1
    `, string(id)).Scan(&r.ID, &r.Name, &r.Kind, &r.CreatedBy.ID, &r.CreatedBy.Username, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: room by id: %v", domain.ErrStore, err)
	}
	return &r, nil
}

// CreateRoom inserts a room. Room management lives elsewhere; this serves
// seeding and tests.
func (s *Store) CreateRoom(ctx context.Context, r *domain.Room) error {
	exec := GetExecutor(ctx, s.db)
	err := exec.QueryRowContext(ctx, `
        INSERT INTO rooms (id, name, type, created_by_id, created_by_username)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `, string(r.ID), r.Name, string(r.Kind), string(r.CreatedBy.ID), r.CreatedBy.Username).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: create room: %v", domain.ErrStore, err)
	}
	return nil
}

func (s *Store) ListRecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.Message, error) {
	exec := GetExecutor(ctx, s.db)
	rows, err := exec.QueryContext(ctx, `
        SELECT id, room_id, author_id, author_username, content, created_at
        FROM (
            SELECT id, room_id, author_id, author_username, content, created_at
            FROM messages
            WHERE room_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, id ASC
    `, string(room), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrStore, err)
	}
	defer rows.Close()
	msgs := make([]domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.RoomID,
			&m.Author.ID,
			&m.Author.Username,
			&m.Content,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", domain.ErrStore, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrStore, err)
	}
	return msgs, nil
}

// AppendMessage locks the room row so appends to one room are serialized,
// and stamps the message no earlier than the room's latest message.
func (s *Store) AppendMessage(ctx context.Context, room domain.RoomID, author domain.User, content string) (*domain.Message, error) {
	m := &domain.Message{RoomID: room, Author: author, Content: content}
	err := WithTx(ctx, s.db, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)
		var locked domain.RoomID
		if err := exec.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, string(room)).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrRoomNotFound
			}
			return err
		}
		return exec.QueryRowContext(ctx, `
            INSERT INTO messages (room_id, author_id, author_username, content, created_at)
            VALUES ($1, $2, $3, $4, GREATEST(
                clock_timestamp(),
                COALESCE((SELECT max(created_at) FROM messages WHERE room_id = $1), '-infinity')
            ))
            RETURNING id, created_at
        `, string(room), string(author.ID), author.Username, content).Scan(&m.ID, &m.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: append message: %v", domain.ErrStore, err)
	}
	return m, nil
}
