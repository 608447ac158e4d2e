package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dexpulse/tradefeed/internal/auth"
	"github.com/dexpulse/tradefeed/internal/connection"
	"github.com/dexpulse/tradefeed/internal/model"
	"github.com/dexpulse/tradefeed/internal/wire"
)

// Client is the real-time trade event client. Construct with New and share by
// reference; all methods are safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger

	events     *listenerSet[model.BlockchainEvent]
	errEvents  *listenerSet[error]
	connEvents *listenerSet[bool]

	calls *correlator

	// connMu serializes Connect/Disconnect sequences; mu guards state.
	connMu sync.Mutex

	mu                sync.Mutex
	state             State
	sock              connection.Socket
	gen               int // connection generation; stale loops self-terminate
	connDone          chan struct{}
	closed            bool
	explicitDown      bool
	reconnectTimer    *time.Timer
	reconnectAttempts int
	lastConnectedAt   time.Time

	// AuthSession: at most one attempt in flight, shared by all callers.
	authed      bool
	authPending *authAttempt
	authOutcome chan error
	creds       *auth.Credentials

	// Subscription registry and its "currently pushed" shadow.
	subs   map[string]struct{}
	pushed map[string]struct{}

	pongCh chan struct{}
}

type authAttempt struct {
	done chan struct{}
	err  error
}

// New creates a Client. It does not connect; call Connect or Authenticate.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Client{
		cfg:        cfg,
		logger:     logger,
		events:     newListenerSet[model.BlockchainEvent](),
		errEvents:  newListenerSet[error](),
		connEvents: newListenerSet[bool](),
		calls:      newCorrelator(),
		state:      StateDisconnected,
		subs:       make(map[string]struct{}),
		pushed:     make(map[string]struct{}),
		pongCh:     make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------
// Connection lifecycle
// -----------------------------------------------------------------------------

// Connect opens the channel. No-op if already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connect(ctx)
}

// connect performs one connection attempt. Caller holds connMu.
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.explicitDown = false
	c.mu.Unlock()

	sock := connection.NewSocket(connection.Config{
		URL:          c.cfg.URL,
		WriteTimeout: c.cfg.WriteTimeout,
		BufferSize:   c.cfg.BufferSize,
	}, c.logger)

	if err := sock.Connect(ctx); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	done := make(chan struct{})
	c.connDone = done
	c.sock = sock
	c.state = StateConnected
	c.lastConnectedAt = time.Now()
	c.reconnectAttempts = 0
	c.mu.Unlock()

	go c.dispatchLoop(sock, gen, done)
	go c.heartbeatLoop(sock, gen, done)

	c.logger.Info("connected", "url", c.cfg.URL)
	c.connEvents.notify(true)
	return nil
}

// Disconnect cancels pending reconnects, stops the heartbeat and closes the
// channel. The subscription registry is preserved so a later Connect can
// replay it; the "currently pushed" shadow is cleared.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.teardown(true)
}

// Close disconnects and makes the client unusable.
func (c *Client) Close() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.teardown(true)
}

// teardown tears the current connection down. Caller holds connMu.
func (c *Client) teardown(explicit bool) {
	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.explicitDown = explicit
	wasConnected := c.state == StateConnected
	sock := c.sock
	c.sock = nil
	c.gen++
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.state = StateDisconnected
	c.authed = false
	c.pushed = make(map[string]struct{})
	c.reconnectAttempts = 0
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	c.calls.rejectAll(ErrConnectionClosed)

	if wasConnected {
		c.connEvents.notify(false)
	}
}

// IsConnected reports whether the channel is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// IsAuthenticated reports whether the server session is authenticated.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns current statistics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:             c.state,
		Authenticated:     c.authed,
		SubscribedPools:   len(c.subs),
		PendingCalls:      c.calls.pendingCount(),
		ReconnectAttempts: c.reconnectAttempts,
		LastConnectedAt:   c.lastConnectedAt,
	}
}

// handleSocketDown reacts to an unexpected close of generation gen.
func (c *Client) handleSocketDown(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	sock := c.sock
	c.sock = nil
	c.state = StateDisconnected
	c.authed = false
	c.pushed = make(map[string]struct{})
	// Reconnecting mid-handshake would orphan the pending auth attempt.
	suppress := c.authPending != nil
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	c.calls.rejectAll(ErrConnectionClosed)

	if cause != nil {
		c.errEvents.notify(fmt.Errorf("connection lost: %w", cause))
	}
	c.connEvents.notify(false)

	if suppress {
		c.logger.Debug("reconnect suppressed, authentication in flight")
		return
	}
	c.scheduleReconnect()
}

// scheduleReconnect arms the next backoff retry, or raises a terminal error
// once the attempt cap is exhausted.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.explicitDown {
		c.mu.Unlock()
		return
	}
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	if attempt > c.cfg.MaxReconnectAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Error("reconnect attempts exhausted", "attempts", c.cfg.MaxReconnectAttempts)
		c.errEvents.notify(fmt.Errorf("%w (%d attempts)", ErrReconnectFailed, c.cfg.MaxReconnectAttempts))
		return
	}

	delay := backoffDelay(c.cfg.ReconnectBaseDelay, attempt)
	c.state = StateReconnecting
	c.reconnectTimer = time.AfterFunc(delay, c.retryConnect)
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

// backoffDelay returns the delay before reconnect attempt n (1-based),
// doubling per attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func (c *Client) retryConnect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	c.connMu.Lock()
	err := c.connect(ctx)
	c.connMu.Unlock()

	if err != nil {
		c.logger.Warn("reconnection failed", "error", err)
		c.scheduleReconnect()
		return
	}

	// Silent re-authentication replays the subscription registry.
	c.mu.Lock()
	hasCreds := c.creds != nil
	c.mu.Unlock()
	if hasCreds {
		go c.silentReauth()
	}
}

// -----------------------------------------------------------------------------
// Heartbeat
// -----------------------------------------------------------------------------

func (c *Client) heartbeatLoop(sock connection.Socket, gen int, done chan struct{}) {
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()
	probe := time.NewTicker(c.cfg.AuthProbeInterval)
	defer probe.Stop()

	for {
		select {
		case <-done:
			return

		case <-ping.C:
			// Drain a stale ack so the wait below pairs with this ping.
			select {
			case <-c.pongCh:
			default:
			}

			data, _ := json.Marshal(wire.Ping{Type: wire.TypePing})
			if err := sock.Send(data); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				continue
			}

			select {
			case <-c.pongCh:
			case <-done:
				return
			case <-time.After(c.cfg.PongTimeout):
				c.logger.Warn("no heartbeat ack, forcing reconnect",
					"timeout", c.cfg.PongTimeout,
				)
				c.handleSocketDown(gen, ErrHeartbeatTimeout)
				return
			}

		case <-probe.C:
			go c.probeAuth()
		}
	}
}

// probeAuth re-validates that the server still considers the session
// authenticated. Authentication can silently expire server-side; the probe
// surfaces that as an unauthenticated signal which triggers silent re-auth.
func (c *Client) probeAuth() {
	if !c.IsAuthenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	if _, err := c.GetLatestEvents(ctx, 1); err != nil && auth.IsUnauthenticatedText(err.Error()) {
		c.logger.Info("auth probe negative, session expired server-side")
		c.handleUnauthenticated()
	}
}

// -----------------------------------------------------------------------------
// Authentication
// -----------------------------------------------------------------------------

// Authenticate performs the challenge/response handshake. Concurrent callers
// coalesce onto the same in-flight attempt; exactly one challenge signature
// is requested.
func (c *Client) Authenticate(ctx context.Context, address string, signer auth.Signer) error {
	c.mu.Lock()
	if pending := c.authPending; pending != nil {
		c.mu.Unlock()
		select {
		case <-pending.done:
			return pending.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &authAttempt{done: make(chan struct{})}
	c.authPending = attempt
	c.mu.Unlock()

	err := c.runAuth(ctx, address, signer)

	c.mu.Lock()
	attempt.err = err
	c.authPending = nil
	if err == nil || auth.Retryable(err) {
		// Remembered for silent retry after reconnect or server-side expiry.
		// A user rejection is never retried, so nothing is remembered then.
		c.creds = &auth.Credentials{Address: address, Signer: signer}
	}
	c.mu.Unlock()
	close(attempt.done)

	if err == nil {
		c.replaySubscriptions()
	}
	return err
}

func (c *Client) runAuth(ctx context.Context, address string, signer auth.Signer) error {
	if signer == nil {
		return &auth.Error{Reason: auth.ErrNoSigner}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		return &auth.Error{Reason: auth.ErrSendFailed, Detail: err.Error()}
	}

	challenge := auth.Challenge(address, time.Now())

	// May suspend awaiting user approval in an external wallet; bounded only
	// by the attempt's overall timeout.
	signature, err := signer.SignMessage(ctx, challenge)
	if err != nil {
		if ctx.Err() != nil {
			return &auth.Error{Reason: auth.ErrTimeout}
		}
		if errors.Is(err, auth.ErrNoSigner) {
			return &auth.Error{Reason: auth.ErrNoSigner, Detail: err.Error()}
		}
		// Wallet-reported failures count as rejections: never auto-retried.
		return &auth.Error{Reason: auth.ErrUserRejected, Detail: err.Error()}
	}

	outcome := make(chan error, 1)
	c.mu.Lock()
	c.authOutcome = outcome
	sock := c.sock
	c.mu.Unlock()

	if sock == nil {
		c.clearAuthOutcome(outcome)
		return &auth.Error{Reason: auth.ErrSendFailed, Detail: "not connected"}
	}

	data, _ := json.Marshal(wire.AuthRequest{
		Type:      wire.TypeAuth,
		Address:   address,
		Signature: signature,
		Message:   challenge,
	})
	if err := sock.Send(data); err != nil {
		c.clearAuthOutcome(outcome)
		return &auth.Error{Reason: auth.ErrSendFailed, Detail: err.Error()}
	}

	select {
	case err := <-outcome:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		c.clearAuthOutcome(outcome)
		return &auth.Error{Reason: auth.ErrTimeout}
	}

	c.mu.Lock()
	c.authed = true
	c.mu.Unlock()

	c.logger.Info("authenticated", "address", address)
	return nil
}

// finishAuth resolves the in-flight handshake from an inbound auth response.
func (c *Client) finishAuth(success bool, detail string) {
	c.mu.Lock()
	outcome := c.authOutcome
	c.authOutcome = nil
	c.mu.Unlock()

	if outcome == nil {
		return // unsolicited
	}
	if success {
		outcome <- nil
		return
	}
	outcome <- &auth.Error{Reason: auth.ErrServerRejected, Detail: detail}
}

func (c *Client) clearAuthOutcome(outcome chan error) {
	c.mu.Lock()
	if c.authOutcome == outcome {
		c.authOutcome = nil
	}
	c.mu.Unlock()
}

// handleUnauthenticated reacts to server-side auth loss: local state is
// cleared and a silent retry with remembered credentials begins. The
// application sees only a transient authenticated-state flicker unless the
// retry itself fails.
func (c *Client) handleUnauthenticated() {
	c.mu.Lock()
	c.authed = false
	hasCreds := c.creds != nil
	c.mu.Unlock()

	if hasCreds {
		go c.silentReauth()
	}
}

func (c *Client) silentReauth() {
	c.mu.Lock()
	creds := c.creds
	c.mu.Unlock()
	if creds == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AuthTimeout)
	defer cancel()

	if err := c.Authenticate(ctx, creds.Address, creds.Signer); err != nil {
		c.errEvents.notify(fmt.Errorf("silent re-authentication failed: %w", err))
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe adds pools to the registry. Intent is never lost: if the session
// is not yet authenticated the request is deferred and flushed the moment
// authentication succeeds.
func (c *Client) Subscribe(pools ...string) error {
	c.mu.Lock()
	for _, p := range pools {
		c.subs[p] = struct{}{}
	}
	sock := c.sock
	ready := c.state == StateConnected && c.authed && sock != nil
	c.mu.Unlock()

	if !ready {
		return nil
	}
	return c.sendSubscribe(sock, pools)
}

// Unsubscribe removes pools from the registry and best-effort notifies the
// backend regardless of authentication state.
func (c *Client) Unsubscribe(pools ...string) error {
	c.mu.Lock()
	for _, p := range pools {
		delete(c.subs, p)
		delete(c.pushed, p)
	}
	sock := c.sock
	connected := c.state == StateConnected && sock != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}

	data, _ := json.Marshal(wire.UnsubscribeRequest{
		Type:  wire.TypeUnsubscribe,
		Pools: pools,
	})
	return sock.Send(data)
}

// Subscriptions returns the registered pool set, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.subs)
}

// replaySubscriptions sends the full current registry. Runs after every
// successful authentication; the backend treats repeats as idempotent.
func (c *Client) replaySubscriptions() {
	c.mu.Lock()
	pools := sortedKeys(c.subs)
	sock := c.sock
	c.mu.Unlock()

	if sock == nil || len(pools) == 0 {
		return
	}
	if err := c.sendSubscribe(sock, pools); err != nil {
		c.logger.Warn("subscription replay failed", "error", err)
	}
}

func (c *Client) sendSubscribe(sock connection.Socket, pools []string) error {
	data, _ := json.Marshal(wire.SubscribeRequest{
		Type:  wire.TypeSubscribe,
		Pools: pools,
	})
	if err := sock.Send(data); err != nil {
		return err
	}

	c.mu.Lock()
	for _, p := range pools {
		c.pushed[p] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// Correlated queries
// -----------------------------------------------------------------------------

// GetHistory fetches past events for pools within a time window. Requires an
// authenticated session; rejects immediately without sending otherwise.
func (c *Client) GetHistory(ctx context.Context, pools []string, start, end time.Time, limit int) ([]model.BlockchainEvent, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	payload, err := c.call(ctx, wire.TypeHistory, func(id string) any {
		req := wire.HistoryRequest{
			Type:  wire.TypeGetHistory,
			ID:    id,
			Pools: pools,
			Limit: limit,
		}
		if !start.IsZero() {
			req.StartTime = start.UnixMilli()
		}
		if !end.IsZero() {
			req.EndTime = end.UnixMilli()
		}
		return req
	})
	if err != nil {
		return nil, err
	}
	return payload.([]model.BlockchainEvent), nil
}

// GetLatestEvents fetches the most recent events across subscribed pools.
func (c *Client) GetLatestEvents(ctx context.Context, limit int) ([]model.BlockchainEvent, error) {
	payload, err := c.call(ctx, wire.TypeLatest, func(id string) any {
		return wire.LatestRequest{Type: wire.TypeGetLatest, ID: id, Limit: limit}
	})
	if err != nil {
		return nil, err
	}
	return payload.([]model.BlockchainEvent), nil
}

// GetGlobalTrades fetches recent trades across all pools.
func (c *Client) GetGlobalTrades(ctx context.Context, limit int) ([]model.GlobalTrade, error) {
	payload, err := c.call(ctx, wire.TypeGlobalTrades, func(id string) any {
		return wire.GlobalTradesRequest{Type: wire.TypeGetGlobalTrades, ID: id, Limit: limit}
	})
	if err != nil {
		return nil, err
	}
	return payload.([]model.GlobalTrade), nil
}

func (c *Client) call(ctx context.Context, family string, build func(id string) any) (any, error) {
	c.mu.Lock()
	sock := c.sock
	connected := c.state == StateConnected && sock != nil
	c.mu.Unlock()

	if !connected {
		return nil, ErrNotConnected
	}

	pc := c.calls.register(family, c.cfg.CallTimeout)

	data, _ := json.Marshal(build(pc.id))
	if err := sock.Send(data); err != nil {
		c.calls.remove(pc)
		return nil, fmt.Errorf("send %s query: %w", family, err)
	}

	select {
	case res := <-pc.ch:
		return res.payload, res.err
	case <-ctx.Done():
		c.calls.remove(pc)
		return nil, ctx.Err()
	}
}

// -----------------------------------------------------------------------------
// Listener registration
// -----------------------------------------------------------------------------

// OnEvent registers a push event listener; returns its unregister func.
func (c *Client) OnEvent(fn func(model.BlockchainEvent)) func() {
	return c.events.add(fn)
}

// OnError registers an error listener; returns its unregister func.
func (c *Client) OnError(fn func(error)) func() {
	return c.errEvents.add(fn)
}

// OnConnectionChange registers a connection-state listener; returns its
// unregister func.
func (c *Client) OnConnectionChange(fn func(bool)) func() {
	return c.connEvents.add(fn)
}

// -----------------------------------------------------------------------------
// Inbound dispatch
// -----------------------------------------------------------------------------

func (c *Client) dispatchLoop(sock connection.Socket, gen int, done chan struct{}) {
	for {
		select {
		case <-done:
			return

		case err := <-sock.Errors():
			c.handleSocketDown(gen, err)
			return

		case msg, ok := <-sock.Messages():
			if !ok {
				c.handleSocketDown(gen, nil)
				return
			}
			c.dispatch(sock, msg.Data)
		}
	}
}

// dispatch handles one inbound message. Messages are processed one at a time
// in arrival order, so listener callbacks and state mutations triggered by
// one message complete before the next is handled.
func (c *Client) dispatch(sock connection.Socket, data []byte) {
	env, err := wire.ExtractType(data)
	if err != nil {
		c.logger.Warn("unparseable message", "error", err)
		return
	}

	switch env.Type {
	case wire.TypeEvent:
		var m wire.EventMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed event", "error", err)
			return
		}
		c.events.notify(m.Data)

	case wire.TypePing:
		pong, _ := json.Marshal(wire.Ping{Type: wire.TypePong})
		sock.Send(pong)

	case wire.TypePong:
		select {
		case c.pongCh <- struct{}{}:
		default:
		}

	case wire.TypeAuth:
		var m wire.AuthResponse
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed auth response", "error", err)
			return
		}
		c.finishAuth(m.Success, m.Message)

	case wire.TypeAuthenticated: // legacy success shape
		c.finishAuth(true, "")

	case wire.TypeUnauthenticated:
		c.logger.Info("server invalidated authentication")
		c.handleUnauthenticated()

	case wire.TypeHistory:
		var m wire.HistoryResponse
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed history response", "error", err)
			return
		}
		c.calls.resolve(m.ID, wire.TypeHistory, m.Events)

	case wire.TypeLatest:
		var m wire.LatestResponse
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed latest response", "error", err)
			return
		}
		c.calls.resolve(m.ID, wire.TypeLatest, m.Events)

	case wire.TypeGlobalTrades:
		var m wire.GlobalTradesResponse
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed global trades response", "error", err)
			return
		}
		c.calls.resolve(m.ID, wire.TypeGlobalTrades, m.Trades)

	case wire.TypeSubscribed:
		c.logger.Debug("subscription acknowledged")

	case wire.TypeConnection:
		var m wire.ConnectionMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		c.logger.Info("server greeting", "client_id", m.ClientID, "message", m.Message)

	case wire.TypeError:
		var m wire.ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed error message", "error", err)
			return
		}
		if auth.IsUnauthenticatedText(m.Error) {
			// Compatibility shim for backends without the structured signal.
			c.handleUnauthenticated()
		}
		serverErr := fmt.Errorf("server error: %s", m.Error)
		if c.calls.resolveError(m.ID, serverErr) {
			return
		}
		c.errEvents.notify(serverErr)

	default:
		c.logger.Debug("skipping message type", "type", env.Type)
	}
}
