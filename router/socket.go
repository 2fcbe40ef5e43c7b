package router

import (
	"context"
	"sync"
	"time"

	"direct-messenger/config"
	"direct-messenger/hub"
	"direct-messenger/socketio"

	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io/v2/socket"
)

var socketLog = log.NewLog("messenger:router")

func Socket(server *socket.Server, h *hub.Hub) {
	timeout := config.ConfigDuration("SOCKET_HANDLER_TIMEOUT", 10*time.Second)

	server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)

		identity, ok := socketio.IdentityOf(client)
		if !ok {
			client.Disconnect(true)
			return
		}

		// registered before Connect so a drop during the connect path still releases presence
		life := &lifecycle{}
		client.On("disconnect", func(reason ...any) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			life.closed(ctx)
			socketLog.Debug("socket %s disconnected: %v", client.Id(), reason)
		})

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if client.Disconnected() {
			life.closed(ctx)
		}
		session := h.Connect(ctx, socketio.NewConn(client, identity.UserID))
		life.opened(ctx, session)
		cancel()
		socketLog.Debug("socket %s connected as user %d", client.Id(), identity.UserID)

		client.On(hub.EventConversationJoin, func(args ...any) {
			respond(args, timeout, func(ctx context.Context, payload any) hub.AckResult {
				id, err := hub.ParseID(payload)
				if err != nil {
					return hub.FailedAck(err)
				}
				return session.JoinConversation(ctx, id)
			})
		})

		client.On(hub.EventConversationLeave, func(args ...any) {
			payload, _ := splitAck(args)
			if id, err := hub.ParseID(payload); err == nil {
				session.LeaveConversation(id)
			}
		})

		client.On(hub.EventConversationMarkRead, func(args ...any) {
			respond(args, timeout, func(ctx context.Context, payload any) hub.AckResult {
				id, err := hub.ParseID(payload)
				if err != nil {
					return hub.FailedAck(err)
				}
				return session.MarkRead(ctx, id)
			})
		})

		client.On(hub.EventMessageSend, func(args ...any) {
			respond(args, timeout, func(ctx context.Context, payload any) hub.AckResult {
				msg, err := hub.ParseSendPayload(payload)
				if err != nil {
					return hub.FailedAck(err)
				}
				return session.SendMessage(ctx, msg)
			})
		})

		client.On(hub.EventConversationList, func(args ...any) {
			respond(args, timeout, func(ctx context.Context, _ any) hub.AckResult {
				return session.ListConversations(ctx)
			})
		})
	})
}

type closer interface {
	Close(ctx context.Context)
}

// lifecycle pairs a connection's disconnect with its session, whichever comes first.
type lifecycle struct {
	mu      sync.Mutex
	session closer
	gone    bool
}

// opened attaches the session, closing it at once if the socket already went away.
func (l *lifecycle) opened(ctx context.Context, s closer) {
	l.mu.Lock()
	l.session = s
	gone := l.gone
	l.mu.Unlock()

	if gone {
		s.Close(ctx)
	}
}

func (l *lifecycle) closed(ctx context.Context) {
	l.mu.Lock()
	if l.gone {
		l.mu.Unlock()
		return
	}
	l.gone = true
	s := l.session
	l.mu.Unlock()

	if s != nil {
		s.Close(ctx)
	}
}

// splitAck separates the first payload argument from a trailing acknowledgement callback.
func splitAck(args []any) (any, socket.Ack) {
	var ack socket.Ack
	if n := len(args); n > 0 {
		if fn, ok := args[n-1].(socket.Ack); ok {
			ack = fn
			args = args[:n-1]
		}
	}
	if len(args) == 0 {
		return nil, ack
	}
	return args[0], ack
}

// respond runs handle under a deadline and always answers the acknowledgement, if any.
func respond(args []any, timeout time.Duration, handle func(context.Context, any) hub.AckResult) {
	payload, ack := splitAck(args)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res := func() (res hub.AckResult) {
		defer func() {
			if r := recover(); r != nil {
				socketLog.Error("socket handler panic: %v", r)
				res = hub.FailedAck(nil)
			}
		}()
		return handle(ctx, payload)
	}()

	if ack != nil {
		ack([]any{res}, nil)
	}
}
