package sqlite

import "time"

// roomRecord is the rooms table row.
type roomRecord struct {
	ID                string    `gorm:"primarykey;size:64"`
	Name              string    `gorm:"size:200;not null"`
	Type              string    `gorm:"size:16;not null;default:chat"`
	CreatedByID       string    `gorm:"size:64"`
	CreatedByUsername string    `gorm:"size:64"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (roomRecord) TableName() string {
	return "rooms"
}

// messageRecord is the messages table row.
type messageRecord struct {
	ID             int64     `gorm:"primarykey;autoIncrement"`
	RoomID         string    `gorm:"size:64;not null;index:idx_messages_room_created,priority:1"`
	AuthorID       string    `gorm:"size:64;not null"`
	AuthorUsername string    `gorm:"size:64;not null"`
	Content        string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_room_created,priority:2"`
}

func (messageRecord) TableName() string {
	return "messages"
}
