// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds WebSocket client configuration.
type Config struct {
	// URL is the backend base URL (http/https, rewritten to ws/wss).
	URL string

	// ConnectTimeout bounds the dial and upgrade.
	// Default: 15 seconds
	ConnectTimeout time.Duration

	// SendTimeout bounds the wait for a create acknowledgement.
	// Default: 30 seconds
	SendTimeout time.Duration

	// ReconnectInterval is the base delay between reconnect attempts.
	// Attempt n waits n times this interval.
	// Default: 1 second
	ReconnectInterval time.Duration

	// MaxReconnectAttempts caps automatic reconnection after a
	// server-initiated drop.
	// Default: 5
	MaxReconnectAttempts int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		URL:                  "http://localhost:8080",
		ConnectTimeout:       15 * time.Second,
		SendTimeout:          30 * time.Second,
		ReconnectInterval:    1 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

// fill populates zero values with defaults.
func (c *Config) fill() {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = d.ReconnectInterval
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
}

// Authenticator reports the caller's session state. The realtime channel
// refuses to open without a signed-in session.
type Authenticator interface {
	// IsAuthenticated reports whether a session is active.
	IsAuthenticated() bool

	// Token returns the bearer token for the session, or "".
	Token() string
}

// =============================================================================
// CLIENT TYPE
// =============================================================================

// settlement is the exactly-once outcome of a pending create request.
type settlement struct {
	messageID string
	err       error
}

// Client is the realtime WebSocket client.
type Client struct {
	config *Config
	auth   Authenticator

	mu               sync.Mutex
	conn             *websocket.Conn
	connected        bool
	intentionalClose bool
	cancelRead       context.CancelFunc

	// Pending create requests, keyed by correlation id. An entry is
	// removed exactly once, by whichever of ack, error event, timeout
	// or connection loss wins.
	pendingMu sync.Mutex
	pending   map[string]chan settlement

	// Subscriptions. Handlers run synchronously on the read goroutine,
	// in registration order, so event ordering is preserved end to end.
	handlersMu   sync.RWMutex
	onProgress   []func(ProgressEvent)
	onChunk      []func(ChunkEvent)
	onCompleted  []func(CompletedEvent)
	onError      []func(ErrorEvent)
	onThought    []func(ChainOfThoughtEvent)
	onConnect    []func()
	onDisconnect []func(reason string)
}

// NewClient creates a realtime client. The authenticator may be nil, in
// which case the channel is always open to connect.
func NewClient(config *Config, auth Authenticator) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	config.fill()

	return &Client{
		config:  config,
		auth:    auth,
		pending: make(map[string]chan settlement),
	}
}

// NewCorrelationID returns a fresh client-generated message id. The
// backend adopts it as the turn's message id.
func NewCorrelationID() string {
	return "msg_" + uuid.NewString()
}

// =============================================================================
// CONNECTION LIFECYCLE
// =============================================================================

// Connect opens the WebSocket connection. It is a no-op when already
// connected and fails fast when the caller is not authenticated.
func (c *Client) Connect(ctx context.Context) error {
	if c.auth != nil && !c.auth.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.intentionalClose = false
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL(), nil)
	if err != nil {
		if dialCtx.Err() != nil {
			return ErrConnectTimeout
		}
		return &ClientError{
			Type:    ErrTypeHandshake,
			Message: "websocket dial failed",
			Cause:   err,
		}
	}
	conn.SetReadLimit(4 << 20)

	// The read loop outlives the dial context; it is cancelled by
	// Disconnect.
	readCtx, cancelRead := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.cancelRead = cancelRead
	c.mu.Unlock()

	c.emitConnect()
	go c.readLoop(readCtx, conn)

	return nil
}

// Disconnect closes the connection deliberately. No reconnection is
// attempted after a client-initiated close.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.intentionalClose = true
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	conn := c.conn
	c.conn = nil
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	c.settleAll(ErrConnectionLost)

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	if wasConnected {
		c.emitDisconnect("client disconnect")
	}
	return nil
}

// Connected reports whether the connection is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// wsURL rewrites the configured base URL to the websocket endpoint.
func (c *Client) wsURL() string {
	u := strings.Replace(c.config.URL, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.TrimSuffix(u, "/") + "/ws"
	if c.auth != nil {
		if token := c.auth.Token(); token != "" {
			u += "?token=" + token
		}
	}
	return u
}

// =============================================================================
// SENDING
// =============================================================================

// SendCreate submits a message-create request and blocks until the
// backend acknowledges it, rejects it, or the send timeout elapses. It
// returns the server-adopted message id for the turn.
//
// Callers that need the turn's id before any progress events arrive
// should set req.CorrelationID (via NewCorrelationID) themselves.
func (c *Client) SendCreate(ctx context.Context, req CreateMessageRequest) (string, error) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return "", ErrNotConnected
	}

	if req.CorrelationID == "" {
		req.CorrelationID = NewCorrelationID()
	}

	ch := make(chan settlement, 1)
	c.pendingMu.Lock()
	c.pending[req.CorrelationID] = ch
	c.pendingMu.Unlock()

	if err := c.write(ctx, conn, EventMessageCreate, req); err != nil {
		c.take(req.CorrelationID)
		return "", &ClientError{
			Type:    ErrTypeConnectionLost,
			Message: "write failed",
			Cause:   err,
		}
	}

	timer := time.NewTimer(c.config.SendTimeout)
	defer timer.Stop()

	select {
	case s := <-ch:
		return s.messageID, s.err
	case <-timer.C:
		if !c.take(req.CorrelationID) {
			// Settled between the timer firing and the deregister:
			// the real outcome wins.
			s := <-ch
			return s.messageID, s.err
		}
		return "", ErrSendTimeout
	case <-ctx.Done():
		if !c.take(req.CorrelationID) {
			s := <-ch
			return s.messageID, s.err
		}
		return "", ctx.Err()
	}
}

// write marshals one envelope and sends it.
func (c *Client) write(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, frame)
}

// =============================================================================
// PENDING-REQUEST TABLE
// =============================================================================

// take removes a pending entry, reporting whether this caller won
// ownership of its settlement.
func (c *Client) take(correlationID string) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if _, ok := c.pending[correlationID]; !ok {
		return false
	}
	delete(c.pending, correlationID)
	return true
}

// settle resolves one pending request. Safe to call for ids that were
// already settled; late duplicates are ignored.
func (c *Client) settle(correlationID string, s settlement) {
	c.pendingMu.Lock()
	ch, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- s
	}
}

// settleAll fails every pending request, used on connection loss.
func (c *Client) settleAll(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan settlement)
	c.pendingMu.Unlock()

	for _, ch := range pending {
		ch <- settlement{err: err}
	}
}

// =============================================================================
// READ LOOP
// =============================================================================

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			intentional := c.intentionalClose
			c.conn = nil
			c.connected = false
			c.mu.Unlock()

			if intentional {
				return
			}

			c.settleAll(ErrConnectionLost)
			c.emitDisconnect(err.Error())
			go c.reconnectLoop()
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("transport: dropping malformed frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

// dispatch routes one envelope: first settle any pending request it
// answers, then fan out to subscribers in registration order. Handlers
// run on the read goroutine so delivery order matches arrival order.
func (c *Client) dispatch(env Envelope) {
	switch env.Event {
	case EventMessageReceived:
		var ev AckEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		id := ev.MessageID
		if id == "" {
			id = ev.CorrelationID
		}
		c.settle(ev.CorrelationID, settlement{messageID: id})

	case EventMessageError:
		var ev ErrorEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		if ev.CorrelationID != "" {
			c.settle(ev.CorrelationID, settlement{err: &ClientError{
				Type:    ErrTypeRejected,
				Message: ev.Reason(),
			}})
		}
		c.handlersMu.RLock()
		handlers := c.onError
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}

	case EventMessageProgress:
		var ev ProgressEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		c.handlersMu.RLock()
		handlers := c.onProgress
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}

	case EventMessageChunk:
		var ev ChunkEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		c.handlersMu.RLock()
		handlers := c.onChunk
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}

	case EventMessageCompleted:
		var ev CompletedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		c.handlersMu.RLock()
		handlers := c.onCompleted
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}

	case EventChainOfThought:
		var ev ChainOfThoughtEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Printf("transport: bad %s payload: %v", env.Event, err)
			return
		}
		c.handlersMu.RLock()
		handlers := c.onThought
		c.handlersMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}

	default:
		log.Printf("transport: ignoring unknown event %q", env.Event)
	}
}

// =============================================================================
// RECONNECTION
// =============================================================================

// reconnectLoop retries after a server-initiated drop with linearly
// increasing backoff: attempt n waits n * ReconnectInterval.
func (c *Client) reconnectLoop() {
	for attempt := 1; attempt <= c.config.MaxReconnectAttempts; attempt++ {
		time.Sleep(time.Duration(attempt) * c.config.ReconnectInterval)

		c.mu.Lock()
		abandoned := c.intentionalClose
		c.mu.Unlock()
		if abandoned {
			return
		}

		log.Printf("transport: reconnect attempt %d/%d", attempt, c.config.MaxReconnectAttempts)
		if err := c.Connect(context.Background()); err == nil {
			return
		}
	}
	log.Printf("transport: giving up after %d reconnect attempts", c.config.MaxReconnectAttempts)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// OnProgress registers a handler for progress updates.
func (c *Client) OnProgress(h func(ProgressEvent)) {
	c.handlersMu.Lock()
	c.onProgress = append(c.onProgress, h)
	c.handlersMu.Unlock()
}

// OnChunk registers a handler for streamed content updates.
func (c *Client) OnChunk(h func(ChunkEvent)) {
	c.handlersMu.Lock()
	c.onChunk = append(c.onChunk, h)
	c.handlersMu.Unlock()
}

// OnCompleted registers a handler for completed turns.
func (c *Client) OnCompleted(h func(CompletedEvent)) {
	c.handlersMu.Lock()
	c.onCompleted = append(c.onCompleted, h)
	c.handlersMu.Unlock()
}

// OnError registers a handler for turn errors.
func (c *Client) OnError(h func(ErrorEvent)) {
	c.handlersMu.Lock()
	c.onError = append(c.onError, h)
	c.handlersMu.Unlock()
}

// OnChainOfThought registers a handler for reasoning-trace updates.
func (c *Client) OnChainOfThought(h func(ChainOfThoughtEvent)) {
	c.handlersMu.Lock()
	c.onThought = append(c.onThought, h)
	c.handlersMu.Unlock()
}

// OnConnect registers a handler for the connected meta-event, fired on
// both initial connects and successful reconnects.
func (c *Client) OnConnect(h func()) {
	c.handlersMu.Lock()
	c.onConnect = append(c.onConnect, h)
	c.handlersMu.Unlock()
}

// OnDisconnect registers a handler for the disconnected meta-event.
func (c *Client) OnDisconnect(h func(reason string)) {
	c.handlersMu.Lock()
	c.onDisconnect = append(c.onDisconnect, h)
	c.handlersMu.Unlock()
}

func (c *Client) emitConnect() {
	c.handlersMu.RLock()
	handlers := append([]func(){}, c.onConnect...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h()
	}
}

func (c *Client) emitDisconnect(reason string) {
	c.handlersMu.RLock()
	handlers := append([]func(string){}, c.onDisconnect...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(reason)
	}
}
