package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"royalletters/internal/peer"
	"royalletters/internal/protocol"
)

// HostHeader carries the host peer id in the websocket handshake response.
const HostHeader = "X-Royal-Letters-Host"

var ErrNoHost = errors.New("handshake carried no host id")

// Conn is a guest's connection to a hosted room. It implements
// peer.Transport with the host as the only reachable peer.
type Conn struct {
	conn   *websocket.Conn
	hostID string
	wmu    sync.Mutex
	log    *zap.Logger
}

// Dial opens a websocket to a room's join URL.
func Dial(ctx context.Context, url string, log *zap.Logger) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	hostID := resp.Header.Get(HostHeader)
	if hostID == "" {
		ws.Close()
		return nil, fmt.Errorf("dial %s: %w", url, ErrNoHost)
	}
	ws.SetReadLimit(maxMessageSize)
	return &Conn{
		conn:   ws,
		hostID: hostID,
		log:    log.With(zap.String("host", hostID)),
	}, nil
}

func (c *Conn) HostID() string { return c.hostID }

// Send writes an envelope to the host.
func (c *Conn) Send(peerID string, env protocol.Envelope) error {
	if peerID != c.hostID {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Run delivers host frames to handler until the connection drops or ctx is
// done. The handler always sees HandleDisconnect for the host on return.
func (c *Conn) Run(ctx context.Context, handler peer.Handler) error {
	handler.HandleConnect(c.hostID)
	defer handler.HandleDisconnect(c.hostID)
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read from host: %w", err)
		}
		env, err := protocol.Parse(data)
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		handler.HandleMessage(c.hostID, env)
	}
}

// Close says goodbye to the host and closes the socket.
func (c *Conn) Close() error {
	c.wmu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.wmu.Unlock()
	return c.conn.Close()
}
