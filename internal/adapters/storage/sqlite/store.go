// Package sqlite is a gorm-backed message store gateway for local
// development and tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
	// sqlite allows one writer; mu also keeps timestamps monotonic per room.
	mu  sync.Mutex
	now func() time.Time
}

// Open opens dsn (":memory:" for a throwaway database) and, when migrate is
// set, creates the tables.
func Open(dsn string, migrate bool) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// every pooled connection would get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	s := &Store{db: db, now: time.Now}
	if migrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&roomRecord{}, &messageRecord{}); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var rec roomRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: room by id: %v", domain.ErrStore, err)
	}
	return toRoom(rec), nil
}

// CreateRoom inserts a room. Room management lives elsewhere; this serves
// seeding and tests.
func (s *Store) CreateRoom(ctx context.Context, r *domain.Room) error {
	if r.Kind == "" {
		r.Kind = domain.RoomKindChat
	}
	rec := roomRecord{
		ID:                string(r.ID),
		Name:              r.Name,
		Type:              string(r.Kind),
		CreatedByID:       string(r.CreatedBy.ID),
		CreatedByUsername: r.CreatedBy.Username,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("%w: create room: %v", domain.ErrStore, err)
	}
	r.CreatedAt = rec.CreatedAt
	return nil
}

func (s *Store) ListRecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.Message, error) {
	var recs []messageRecord
	err := s.db.WithContext(ctx).
		Where("room_id = ?", string(room)).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrStore, err)
	}
	out := make([]domain.Message, len(recs))
	for i, rec := range recs {
		out[len(recs)-1-i] = toMessage(rec)
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, room domain.RoomID, author domain.User, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec messageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&roomRecord{}).Where("id = ?", string(room)).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRoomNotFound
		}

		ts := s.now().UTC()
		var prev messageRecord
		err := tx.Where("room_id = ?", string(room)).Order("created_at DESC").Order("id DESC").Take(&prev).Error
		switch {
		case err == nil:
			if prev.CreatedAt.After(ts) {
				ts = prev.CreatedAt
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		rec = messageRecord{
			RoomID:         string(room),
			AuthorID:       string(author.ID),
			AuthorUsername: author.Username,
			Content:        content,
			CreatedAt:      ts,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: append message: %v", domain.ErrStore, err)
	}
	m := toMessage(rec)
	return &m, nil
}

func toRoom(rec roomRecord) *domain.Room {
	return &domain.Room{
		ID:        domain.RoomID(rec.ID),
		Name:      rec.Name,
		Kind:      domain.RoomKind(rec.Type),
		CreatedBy: domain.User{ID: domain.UserID(rec.CreatedByID), Username: rec.CreatedByUsername},
		CreatedAt: rec.CreatedAt,
	}
}

func toMessage(rec messageRecord) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(rec.ID),
		RoomID:    domain.RoomID(rec.RoomID),
		Author:    domain.User{ID: domain.UserID(rec.AuthorID), Username: rec.AuthorUsername},
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}
}
