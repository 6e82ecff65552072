package core

import "github.com/dkeye/roomcast/internal/domain"

// memberSession implements Member by pairing identity + transport.
type memberSession struct {
	id   ConnectionID
	user domain.User
	conn SignalConnection
}

func NewMemberSession(id ConnectionID, user domain.User, conn SignalConnection) Member {
	return &memberSession{id: id, user: user, conn: conn}
}

func (m *memberSession) ID() ConnectionID         { return m.id }
func (m *memberSession) User() domain.User        { return m.user }
func (m *memberSession) Signal() SignalConnection { return m.conn }
