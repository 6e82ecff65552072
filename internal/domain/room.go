package domain

import "time"

type RoomID string

type RoomKind string

const (
	RoomKindChat  RoomKind = "chat"
	RoomKindVideo RoomKind = "video"
)

// Room is owned by the persistence layer. The coordinator only reads it.
type Room struct {
	ID        RoomID    `json:"id"`
	Name      string    `json:"name"`
	Kind      RoomKind  `json:"type"`
	CreatedBy User      `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
