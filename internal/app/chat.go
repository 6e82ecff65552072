package app

import (
	"context"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultMaxMessageLength = 4000

// ChatRelay validates, persists and fans out chat lines.
type ChatRelay struct {
	rooms    *RoomManager
	messages core.MessageStore
	limiter  *RateLimiter
	maxLen   int
}

func NewChatRelay(rooms *RoomManager, messages core.MessageStore, limiter *RateLimiter, maxLen int) *ChatRelay {
	return &ChatRelay{rooms: rooms, messages: messages, limiter: limiter, maxLen: maxLen}
}

// Send stores content as a message by member in roomID and delivers the
// stored form to every current member, the sender included. Nothing is
// delivered when any check or the store fails.
func (c *ChatRelay) Send(ctx context.Context, member core.Member, roomID domain.RoomID, content string) (*domain.Message, core.PublishResult, error) {
	text, err := domain.NormalizeContent(content, c.maxLen)
	if err != nil {
		return nil, core.PublishResult{}, err
	}
	if !c.rooms.IsMember(roomID, member.ID()) {
		return nil, core.PublishResult{}, domain.ErrNotAMember
	}
	if !c.limiter.Allow(member.ID()) {
		return nil, core.PublishResult{}, domain.ErrRateLimited
	}

	msg, err := c.messages.AppendMessage(ctx, roomID, member.User(), text)
	if err != nil {
		log.Error().Err(err).Str("module", "app.chat").Str("room", string(roomID)).Str("conn", string(member.ID())).Msg("append message")
		return nil, core.PublishResult{}, storeErr(err)
	}

	res := c.rooms.Broadcast(roomID, DeliveredFrame(*msg))
	log.Debug().Str("module", "app.chat").Str("room", string(roomID)).Int64("message", int64(msg.ID)).Int("sent_to", res.SendTo).Msg("message delivered")
	return msg, res, nil
}

// Forget releases per-connection state.
func (c *ChatRelay) Forget(id core.ConnectionID) {
	c.limiter.Forget(id)
}
