package network

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"pedalkeys/internal/protocol"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// StatusClient follows the /ws status feed of a running pedalkeys
type StatusClient struct {
	hostAddr string

	// RetryInterval is the pause between reconnection attempts
	RetryInterval time.Duration

	// OnStatus is called for every status message
	OnStatus func(protocol.StatusPayload)

	// OnHello is called once per connection with the server version
	OnHello func(version string)

	mu          sync.Mutex
	isConnected bool
}

// NewStatusClient creates a client for hostAddr ("127.0.0.1:49556")
func NewStatusClient(hostAddr string) *StatusClient {
	return &StatusClient{
		hostAddr:      hostAddr,
		RetryInterval: 5 * time.Second,
	}
}

// Run connects and reconnects until ctx is cancelled
func (c *StatusClient) Run(ctx context.Context) error {
	for {
		c.connect(ctx)

		// If connect returns, we disconnected. Wait a bit and retry.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.RetryInterval):
			log.Debug("WS Client: Attempting reconnection...")
		}
	}
}

func (c *StatusClient) connect(ctx context.Context) {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	log.Debugf("WS Client: Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Warnf("WS Client: Connection failed: %v", err)
		return
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)
	log.Infof("WS Client: Connected to %s", c.hostAddr)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	c.readPump(conn)
}

func (c *StatusClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("WS Client: Read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Type    protocol.MessageType `json:"type"`
			Payload json.RawMessage      `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debugf("WS Client: Invalid message: %v", err)
			continue
		}
		c.handleMessage(msg.Type, msg.Payload)
	}
}

func (c *StatusClient) handleMessage(typ protocol.MessageType, raw json.RawMessage) {
	switch typ {
	case protocol.TypeHello:
		var payload protocol.HelloPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Debugf("WS Client: Invalid hello: %v", err)
			return
		}
		if c.OnHello != nil {
			c.OnHello(payload.Version)
		}

	case protocol.TypeStatus:
		var payload protocol.StatusPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Debugf("WS Client: Invalid status: %v", err)
			return
		}
		if c.OnStatus != nil {
			c.OnStatus(payload)
		}
	}
}

func (c *StatusClient) setConnected(v bool) {
	c.mu.Lock()
	c.isConnected = v
	c.mu.Unlock()
}

// IsConnected returns true while a connection is open
func (c *StatusClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
