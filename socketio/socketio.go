package socketio

import (
	"context"
	"errors"
	"strings"
	"time"

	"direct-messenger/config"
	"direct-messenger/model"
	"direct-messenger/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

var socketLog = log.NewLog("messenger:socket")

// authErrorMessage is what a rejected client sees in connect_error.
const authErrorMessage = "Authentication error"

var (
	ErrMissingToken = errors.New("missing token")
	errPendingOtp   = errors.New("second factor pending")
)

// UserLookup confirms that an authenticated id still belongs to a user.
type UserLookup interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
}

// Identity is attached to every socket that passed the handshake.
type Identity struct {
	UserID uint
}

func Init(app *fiber.App, users UserLookup) *socket.Server {
	log.DEBUG = config.ConfigBool("SOCKET_DEBUG", false)

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(config.ConfigDuration("SOCKET_PING_INTERVAL", 25*time.Second))
	options.SetPingTimeout(config.ConfigDuration("SOCKET_PING_TIMEOUT", 20*time.Second))
	options.SetMaxHttpBufferSize(int64(config.ConfigInt("SOCKET_MAX_BUFFER", 1<<20)))
	options.SetConnectTimeout(config.ConfigDuration("SOCKET_CONNECT_TIMEOUT", 10*time.Second))
	options.SetCors(&types.Cors{
		Origin:      config.ConfigDefault("CLIENT_ORIGIN", "*"),
		Credentials: true,
	})

	server := socket.NewServer(nil, nil)
	server.Use(Authenticate(users))

	handler := adaptor.HTTPHandler(server.ServeHandler(options))
	app.Get("/socket.io/", handler)
	app.Post("/socket.io/", handler)

	return server
}

// Authenticate rejects a handshake unless it carries a valid access token for an
// existing user. Nothing is joined before it passes.
func Authenticate(users UserLookup) socket.NamespaceMiddleware {
	return func(client *socket.Socket, next func(*socket.ExtendedError)) {
		identity, err := identify(client.Handshake(), users)
		if err != nil {
			socketLog.Debug("rejected %s: %v", client.Id(), err)
			next(socket.NewExtendedError(authErrorMessage, nil))
			return
		}
		client.SetData(identity)
		next(nil)
	}
}

func identify(h *socket.Handshake, users UserLookup) (*Identity, error) {
	token := HandshakeToken(h)
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := utils.CheckAndExtractTokenMetadata(token, utils.AccessKey)
	if err != nil {
		return nil, err
	}
	if claims.Otp {
		return nil, errPendingOtp
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := users.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	return &Identity{UserID: userID}, nil
}

// HandshakeToken looks for the token in auth.token, then ?token=, then a Bearer header.
func HandshakeToken(h *socket.Handshake) string {
	if h == nil {
		return ""
	}
	if auth, ok := h.Auth.(map[string]any); ok {
		if token, ok := auth["token"].(string); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	if values := h.Query["token"]; len(values) > 0 && strings.TrimSpace(values[0]) != "" {
		return strings.TrimSpace(values[0])
	}
	for _, header := range h.Headers["Authorization"] {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// IdentityOf returns the identity stored by Authenticate.
func IdentityOf(client *socket.Socket) (*Identity, bool) {
	identity, ok := client.Data().(*Identity)
	return identity, ok && identity != nil
}

// Emitter sends hub events through the socket.io rooms.
type Emitter struct {
	server *socket.Server
}

func NewEmitter(server *socket.Server) *Emitter {
	return &Emitter{server: server}
}

func (e *Emitter) Emit(room, event string, payload any) error {
	return e.server.To(socket.Room(room)).Emit(event, payload)
}

// Conn adapts a socket to the hub's connection interface.
type Conn struct {
	client *socket.Socket
	userID uint
}

func NewConn(client *socket.Socket, userID uint) *Conn {
	return &Conn{client: client, userID: userID}
}

func (c *Conn) ID() string {
	return string(c.client.Id())
}

func (c *Conn) UserID() uint {
	return c.userID
}

func (c *Conn) Join(room string) {
	c.client.Join(socket.Room(room))
}

func (c *Conn) Leave(room string) {
	c.client.Leave(socket.Room(room))
}
