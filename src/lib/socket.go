package lib

import (
	"context"
	"log"
	"net/http"
	"time"

	engineiotypes "github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// SocketHub pushes notifications over socket.io. Clients authenticate in
// the handshake with {"token": "<jwt>"} and are joined to their user room.
type SocketHub struct {
	server  *socket.Server
	options *socket.ServerOptions
}

func NewSocketHub(secret []byte) *SocketHub {
	c := socket.DefaultServerOptions()
	c.SetServeClient(false)
	c.SetPingInterval(25 * time.Second)
	c.SetPingTimeout(20 * time.Second)
	c.SetMaxHttpBufferSize(1_000_000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetCors(&engineiotypes.Cors{
		Origin:      "*",
		Credentials: true,
	})

	wss := socket.NewServer(nil, nil)
	wss.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		email, ok := handshakeEmail(secret, client.Handshake().Auth)
		if !ok {
			log.Printf("[socket] rejecting client %s: missing or invalid token\n", string(client.Id()))
			client.Disconnect(true)
			return
		}
		client.Join(socket.Room(UserChannel(email)))
		log.Printf("[socket] client %s joined %s\n", string(client.Id()), UserChannel(email))
	})
	return &SocketHub{server: wss, options: c}
}

func handshakeEmail(secret []byte, auth any) (string, bool) {
	fields, ok := auth.(map[string]any)
	if !ok {
		return "", false
	}
	token, ok := fields["token"].(string)
	if !ok || token == "" {
		return "", false
	}
	claims, err := ParseToken(secret, token)
	if err != nil || claims.Purpose != "" {
		return "", false
	}
	return claims.Email, true
}

func (h *SocketHub) Server() *socket.Server {
	return h.server
}

// Handler serves the socket.io transport.
func (h *SocketHub) Handler() http.Handler {
	return h.server.ServeHandler(h.options)
}

func (h *SocketHub) Push(ctx context.Context, recipient string, event string, payload any) error {
	return h.server.To(socket.Room(UserChannel(recipient))).Emit(event, payload)
}
