// Package wsclient keeps a Go process attached to the realtime gateway: it dials, reconnects
// after drops, sends keep-alive pings and routes inbound frames to handlers by type.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/gorilla/websocket"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultPingInterval   = 30 * time.Second

	// AllMessages registers a handler for every inbound frame.
	AllMessages = "all"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Message is one inbound frame.
type Message struct {
	Type string
	Raw  json.RawMessage
}

// Decode unmarshals the whole frame into v.
func (m Message) Decode(v any) error { return json.Unmarshal(m.Raw, v) }

type Handler func(Message)

type handlerEntry struct{ fn Handler }

type Manager struct {
	url            string
	dialer         Dialer
	reconnectDelay time.Duration
	pingInterval   time.Duration
	onState        func(State)
	wake           <-chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	err       error
	conn      Conn
	connDone  chan struct{}
	gen       uint64
	reconnect *time.Timer
	closed    bool
	handlers  map[string][]*handlerEntry

	writeMu sync.Mutex
	// callbacks counts handlers and state callbacks in flight; Close skips its wait while
	// one runs so a callback can close the manager it was called from.
	callbacks atomic.Int32
}

type Option func(*Manager)

func WithDialer(d Dialer) Option { return func(m *Manager) { m.dialer = d } }

func WithReconnectDelay(d time.Duration) Option { return func(m *Manager) { m.reconnectDelay = d } }

func WithPingInterval(d time.Duration) Option { return func(m *Manager) { m.pingInterval = d } }

// WithStateCallback is called after every state change, outside the manager lock.
func WithStateCallback(fn func(State)) Option { return func(m *Manager) { m.onState = fn } }

// WithWakeSignal calls Wake for every value received on ch until the manager is closed.
func WithWakeSignal(ch <-chan struct{}) Option { return func(m *Manager) { m.wake = ch } }

// New builds a manager in the Disconnected state. Nothing is dialed until Connect.
func New(url string, opts ...Option) *Manager {
	m := &Manager{
		url:            url,
		dialer:         GorillaDialer(nil),
		reconnectDelay: DefaultReconnectDelay,
		pingInterval:   DefaultPingInterval,
		handlers:       map[string][]*handlerEntry{},
	}
	for _, o := range opts {
		o(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	if m.wake != nil {
		m.wg.Add(1)
		go m.listenWake()
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the last connection error, cleared on a successful connect.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Connect starts a dial unless one is in flight or the connection is already up.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed || m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.state = Connecting
	m.wg.Add(1)
	m.mu.Unlock()

	m.notify(Connecting)
	go m.dial(gen)
}

// Wake reconnects right away when the connection is down, skipping any pending backoff.
func (m *Manager) Wake() {
	m.mu.Lock()
	if m.closed || m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.mu.Unlock()
	m.Connect()
}

// SendMessage writes payload as JSON when connected. Otherwise it kicks off a connect
// and returns false; the payload is not queued.
func (m *Manager) SendMessage(payload any) bool {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		m.Connect()
		return false
	}
	conn, gen := m.conn, m.gen
	m.mu.Unlock()

	b, err := json.Marshal(payload)
	if err != nil {
		obs.Component("wsclient").WithError(err).Warn("marshal outbound")
		return false
	}
	if err := m.write(conn, b); err != nil {
		m.handleClose(gen, err)
		return false
	}
	return true
}

// AddMessageHandler registers h for frames of type t (or AllMessages). Handlers run in
// registration order, type-specific ones before AllMessages. The returned func removes h.
func (m *Manager) AddMessageHandler(t string, h Handler) (remove func()) {
	e := &handlerEntry{fn: h}
	m.mu.Lock()
	m.handlers[t] = append(m.handlers[t], e)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			list := m.handlers[t]
			for i, x := range list {
				if x == e {
					m.handlers[t] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(m.handlers[t]) == 0 {
				delete(m.handlers, t)
			}
		})
	}
}

// Close tears everything down: pending reconnect, keep-alive, wake listener and the socket.
// It returns once every goroutine the manager started has exited. Called from a message
// handler or state callback it returns right after the teardown, and the calling goroutine
// exits as soon as the callback returns.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTimerLocked()
	conn := m.conn
	m.conn = nil
	m.endConnLocked()
	prev := m.state
	m.state = Disconnected
	m.gen++
	m.mu.Unlock()

	m.cancel()
	var err error
	if conn != nil {
		m.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		err = conn.Close()
	}
	if m.callbacks.Load() == 0 {
		m.wg.Wait()
	}
	if prev != Disconnected {
		m.notify(Disconnected)
	}
	return err
}

func (m *Manager) dial(gen uint64) {
	defer m.wg.Done()
	conn, err := m.dialer.Dial(m.ctx, m.url)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.err = fmt.Errorf("dial %s: %w", m.url, err)
		m.state = Disconnected
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		obs.Component("wsclient").WithError(err).Warn("connect failed")
		m.notify(Disconnected)
		return
	}
	m.conn = conn
	m.err = nil
	m.state = Connected
	done := make(chan struct{})
	m.connDone = done
	m.wg.Add(2)
	m.mu.Unlock()

	obs.Component("wsclient").WithField("url", m.url).Info("connected")
	m.notify(Connected)
	go m.readLoop(gen, conn)
	go m.keepAlive(gen, conn, done)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	defer m.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.dispatch(raw)
	}
}

func (m *Manager) keepAlive(gen uint64, conn Conn, done <-chan struct{}) {
	defer m.wg.Done()
	if m.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(m.pingInterval)
	defer t.Stop()

	ping, _ := json.Marshal(map[string]string{"type": "ping"})
	for {
		select {
		case <-done:
			return
		case <-m.ctx.Done():
			return
		case <-t.C:
			if err := m.write(conn, ping); err != nil {
				m.handleClose(gen, err)
				return
			}
		}
	}
}

// handleClose moves a live connection to Disconnected and schedules one reconnect.
// Further calls for the same connection are ignored.
func (m *Manager) handleClose(gen uint64, cause error) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.state != Connected {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.endConnLocked()
	m.state = Disconnected
	m.gen++
	if cause != nil && !websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		m.err = cause
	}
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	obs.Component("wsclient").WithError(cause).Info("disconnected, reconnect scheduled")
	m.notify(Disconnected)
}

func (m *Manager) dispatch(raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		obs.Component("wsclient").WithError(err).Warn("dropping malformed frame")
		return
	}

	m.mu.Lock()
	run := make([]Handler, 0, len(m.handlers[head.Type])+len(m.handlers[AllMessages]))
	for _, e := range m.handlers[head.Type] {
		run = append(run, e.fn)
	}
	if head.Type != AllMessages {
		for _, e := range m.handlers[AllMessages] {
			run = append(run, e.fn)
		}
	}
	m.mu.Unlock()

	msg := Message{Type: head.Type, Raw: append(json.RawMessage(nil), raw...)}
	m.callbacks.Add(1)
	defer m.callbacks.Add(-1)
	for _, h := range run {
		callHandler(h, msg)
	}
}

func callHandler(h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			obs.Component("wsclient").WithField("type", msg.Type).Errorf("handler panic: %v", r)
		}
	}()
	h(msg)
}

func (m *Manager) write(conn Conn, b []byte) error {
	if conn == nil {
		return errors.New("not connected")
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (m *Manager) scheduleReconnectLocked() {
	m.stopTimerLocked()
	m.reconnect = time.AfterFunc(m.reconnectDelay, m.Connect)
}

func (m *Manager) stopTimerLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) endConnLocked() {
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
}

func (m *Manager) listenWake() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case _, ok := <-m.wake:
			if !ok {
				return
			}
			m.Wake()
		}
	}
}

func (m *Manager) notify(s State) {
	if m.onState != nil {
		m.callbacks.Add(1)
		defer m.callbacks.Add(-1)
		m.onState(s)
	}
}
