package app

import (
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

func JoinedFrame(roomID domain.RoomID, u domain.User) core.Frame {
	return core.MustEncode(core.MemberEvent{Type: core.EvMemberJoined, Room: roomID, User: u})
}

func LeftFrame(roomID domain.RoomID, u domain.User) core.Frame {
	return core.MustEncode(core.MemberEvent{Type: core.EvMemberLeft, Room: roomID, User: u})
}

func HistoryFrame(roomID domain.RoomID, history []domain.Message) core.Frame {
	if history == nil {
		history = []domain.Message{}
	}
	return core.MustEncode(core.HistoryEvent{Type: core.EvLoadHistory, Room: roomID, Messages: history})
}

func DeliveredFrame(msg domain.Message) core.Frame {
	return core.MustEncode(core.MessageEvent{Type: core.EvMessageDelivered, Message: msg})
}
