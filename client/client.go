// Package client provides an event-driven client for the chat protocol. It
// notifies callers of connection state changes, received frames, and errors
// via registered handlers, keeps the online user list current, and sends
// periodic heartbeats once logged in.
package client

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/safeset"
)

// ConnectionState represents the current state of the connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Connection attempt in progress
	Connected                           // Successfully connected
	Closed                              // Client has been closed
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// FrameEvent is emitted for each complete frame received from the server.
type FrameEvent struct {
	// Type is the "type" field of the payload, empty if it did not parse.
	Type string
	// Payload is the raw JSON frame body.
	Payload []byte
	// Timestamp is when the frame was received.
	Timestamp time.Time
}

// StateEvent is emitted when the connection state changes.
type StateEvent struct {
	State     ConnectionState
	Address   string
	Timestamp time.Time
	Error     error // Non-nil if the state change was due to an error
}

// FrameHandler is called for each received frame.
// Handlers are invoked from goroutines; implementations must be safe for concurrent use.
type FrameHandler func(event FrameEvent)

// StateHandler is called when the connection state changes.
// Handlers are invoked from goroutines; implementations must be safe for concurrent use.
type StateHandler func(event StateEvent)

// ErrorHandler is called when a read or write error occurs.
// Handlers are invoked from goroutines; implementations must be safe for concurrent use.
type ErrorHandler func(err error)

// Config holds configuration for the chat client.
type Config struct {
	// Address is the "host:port" of the chat server.
	Address string
	// ConnectTimeout is the max duration for establishing the connection.
	ConnectTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// MaxFrameLen bounds inbound frame payloads; 0 selects protocol.MaxFrameLen.
	MaxFrameLen uint32
	// HeartbeatInterval is the delay between heartbeats once logged in;
	// 0 disables heartbeats.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a Config with default values for the given address.
//
// Parameters:
//   - address: The "host:port" of the chat server
//
// Returns:
//   - A Config with defaults: ConnectTimeout 10s, WriteTimeout 10s,
//     MaxFrameLen protocol.MaxFrameLen, HeartbeatInterval 10s.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxFrameLen:       protocol.MaxFrameLen,
		HeartbeatInterval: 10 * time.Second,
	}
}

// Client is an event-driven chat client. Register handlers with OnFrame,
// OnState, and OnError, then call Connect. It is safe for concurrent use.
type Client struct {
	config Config
	log    logger.Logger

	onFrame FrameHandler
	onState StateHandler
	onError ErrorHandler

	mu       sync.RWMutex
	conn     net.Conn
	state    ConnectionState
	username string
	closed   bool

	online *safeset.SafeSet[string]

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a chat client with the given config. The client starts in
// Disconnected state; call Connect to establish the connection.
//
// Parameters:
//   - config: Connection and behavior settings (e.g. from DefaultConfig)
//   - log: Destination logger
//
// Returns:
//   - A new *Client ready to use; call Close when done to release resources.
func New(config Config, log logger.Logger) *Client {
	if config.MaxFrameLen == 0 {
		config.MaxFrameLen = protocol.MaxFrameLen
	}

	return &Client{
		config:   config,
		log:      log.With(logger.Field{Key: "component", Value: "chat_client"}),
		state:    Disconnected,
		online:   safeset.NewSafeSet[string](),
		stopChan: make(chan struct{}),
	}
}

// OnFrame registers the handler for received frames.
// Only one handler is active; repeated calls replace the previous handler.
func (c *Client) OnFrame(handler FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = handler
}

// OnState registers the handler for connection state changes.
// Only one handler is active; repeated calls replace the previous handler.
func (c *Client) OnState(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnError registers the handler for read and write errors.
// Only one handler is active; repeated calls replace the previous handler.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect establishes the TCP connection and starts the read and heartbeat
// loops. The client does not reconnect; after a connection loss a new Client
// is needed.
//
// Returns:
//   - nil on success; otherwise an error (closed client, already connected,
//     or the dial error).
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop()

	if c.config.HeartbeatInterval > 0 {
		c.wg.Add(1)
		go c.heartbeatLoop()
	}

	return nil
}

// Send marshals v and writes it to the server as one length-prefixed frame.
// Writes are serialized; concurrent callers never interleave frames.
//
// Parameters:
//   - v: The command payload to marshal
//
// Returns:
//   - nil on success; an error if not connected, marshalling failed, or the
//     write failed.
func (c *Client) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	frame := protocol.EncodeFrame(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}

	if _, err := c.conn.Write(frame); err != nil {
		c.emitErrorLocked(err)
		return err
	}

	return nil
}

// Register asks the server to create a new credential pair.
func (c *Client) Register(username, password string) error {
	return c.Send(protocol.Command{Type: protocol.TypeRegister, Username: username, Password: password})
}

// Login authenticates against the server. On a successful login_result the
// caller should record the username with SetUsername.
func (c *Client) Login(username, password string) error {
	return c.Send(protocol.Command{Type: protocol.TypeLogin, Username: username, Password: password})
}

// SendMessage broadcasts text to everyone online.
func (c *Client) SendMessage(text string) error {
	return c.Send(protocol.Command{Type: protocol.TypeMessage, Text: text})
}

// SendPrivate sends text to one named user.
func (c *Client) SendPrivate(to, text string) error {
	return c.Send(protocol.Command{Type: protocol.TypePrivate, To: to, Text: text})
}

// Heartbeat sends one keepalive probe.
func (c *Client) Heartbeat() error {
	return c.Send(protocol.Command{Type: protocol.TypeHeartbeat})
}

// History requests a replay of up to n stored messages.
func (c *Client) History(n int) error {
	return c.Send(protocol.Command{Type: protocol.TypeHistory, N: n})
}

// ListUsers requests the current online user list.
func (c *Client) ListUsers() error {
	return c.Send(protocol.Command{Type: protocol.TypeListUsers})
}

// Logout tells the server to close this session.
func (c *Client) Logout() error {
	return c.Send(protocol.Command{Type: protocol.TypeLogout})
}

// Username returns the name recorded with SetUsername, or empty.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// SetUsername records the logged-in name. Heartbeats start only once a name
// is recorded.
func (c *Client) SetUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

// OnlineUsers returns the most recently announced online user list, sorted.
func (c *Client) OnlineUsers() []string {
	return safeset.SortedStrings(c.online)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close shuts down the client, closes the connection, and stops all
// goroutines. Idempotent.
//
// Returns:
//   - nil
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	close(c.stopChan)
	c.wg.Wait()

	c.setState(Closed, nil)

	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	header := make([]byte, protocol.HeaderLen)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			c.readFailed(err)
			return
		}

		length := binary.BigEndian.Uint32(header)
		if length == 0 {
			continue
		}
		if length > c.config.MaxFrameLen {
			c.readFailed(fmt.Errorf("frame of %d bytes exceeds limit %d", length, c.config.MaxFrameLen))
			return
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(conn, payload); err != nil {
			c.readFailed(err)
			return
		}

		frameType := c.track(payload)
		c.emitFrame(frameType, payload)
	}
}

// track inspects a frame before it is handed to the frame handler and keeps
// the online user list current. It returns the frame's type field.
func (c *Client) track(payload []byte) string {
	var head struct {
		Type  string   `json:"type"`
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}

	if head.Type == protocol.TypeUserList {
		c.online.ReplaceAll(head.Users)
	}

	return head.Type
}

func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			if c.Username() == "" {
				continue
			}
			if err := c.Heartbeat(); err != nil {
				return
			}
		}
	}
}

// readFailed records a read loop exit. Errors after Close are expected and
// not reported.
func (c *Client) readFailed(err error) {
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.state = Disconnected
	}
	c.mu.Unlock()

	if closed {
		return
	}

	c.log.Warn("connection lost", logger.Field{Key: "error", Value: err})
	c.emitState(Disconnected, err)
	c.emitError(err)
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.emitState(state, err)
}

func (c *Client) emitState(state ConnectionState, err error) {
	c.mu.RLock()
	handler := c.onState
	c.mu.RUnlock()

	if handler != nil {
		go handler(StateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

func (c *Client) emitFrame(frameType string, payload []byte) {
	c.mu.RLock()
	handler := c.onFrame
	c.mu.RUnlock()

	if handler != nil {
		go handler(FrameEvent{
			Type:      frameType,
			Payload:   payload,
			Timestamp: time.Now(),
		})
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		go handler(err)
	}
}

func (c *Client) emitErrorLocked(err error) {
	handler := c.onError
	if handler != nil {
		go handler(err)
	}
}
