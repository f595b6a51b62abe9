package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	block  chan struct{}
	reads  chan []byte
}

func newFakeConn() *fakeConn { return &fakeConn{reads: make(chan []byte)} }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-f.reads
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, b, nil
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	if mt == websocket.TextMessage {
		f.frames = append(f.frames, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type wireFrame struct {
	Type      events.Type     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp int64           `json:"timestamp"`
	ClientID  string          `json:"clientId"`
}

func (f *fakeConn) received(t *testing.T) []wireFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wireFrame, 0, len(f.frames))
	for _, b := range f.frames {
		var w wireFrame
		require.NoError(t, json.Unmarshal(b, &w))
		out = append(out, w)
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fakeCatalog struct {
	products []orders.Product
	orders   map[int64][]orders.Order
	err      error
}

func (c *fakeCatalog) ListProducts(context.Context) ([]orders.Product, error) {
	return c.products, c.err
}

func (c *fakeCatalog) ListOrdersByAccount(_ context.Context, id int64) ([]orders.Order, error) {
	return c.orders[id], c.err
}

type fakeInbox struct{}

func (fakeInbox) Inbox(_ context.Context, id int64) ([]messages.Message, error) {
	return []messages.Message{{ID: 1, ToAccountID: id, Content: "hi"}}, nil
}

func (fakeInbox) Conversation(_ context.Context, a, b int64) ([]messages.Message, error) {
	return []messages.Message{{ID: 2, FromAccountID: b, ToAccountID: a, Content: "yo"}}, nil
}

func newTestGateway(catalog *fakeCatalog) *Gateway {
	obs.Discard()
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	return NewGateway(NewRegistry(8, 0), catalog, fakeInbox{})
}

const settle = 50 * time.Millisecond

func TestPublish_EachOpenConnectionExactlyOnce(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)

	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, c := range conns {
		g.Registry.Add(c, Identity{})
	}

	sent := g.Publish(events.OrderCreated, map[string]int{"id": 7})

	req.Equal(3, sent)
	for _, c := range conns {
		req.Eventually(func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
		req.Never(func() bool { return c.count() > 1 }, settle, 5*time.Millisecond)
		got := c.received(t)
		req.Equal(events.OrderCreated, got[0].Type)
		req.JSONEq(`{"id":7}`, string(got[0].Data))
	}
}

func TestPublish_SkipsDisconnectedConnection(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)

	alive, gone := newFakeConn(), newFakeConn()
	g.Registry.Add(alive, Identity{})
	goneClient := g.Registry.Add(gone, Identity{})

	// When one connection goes away before the broadcast
	g.OnDisconnect(goneClient.ID)
	sent := g.Publish(events.ProductCreated, map[string]string{"name": "Ticket"})

	// Then only the open connection receives it
	req.Equal(1, sent)
	req.Equal(1, g.Registry.Len())
	req.False(goneClient.Open())
	req.False(goneClient.Send([]byte("late")))
	req.Eventually(func() bool { return alive.count() == 1 }, time.Second, 5*time.Millisecond)
	req.Eventually(gone.isClosed, time.Second, 5*time.Millisecond)
	req.Zero(gone.count())

	// a second disconnect is a no-op
	g.OnDisconnect(goneClient.ID)
	req.Equal(1, g.Registry.Len())
}

func TestPublish_BackedUpConnectionDoesNotStopFanout(t *testing.T) {
	req := require.New(t)
	obs.Discard()
	g := NewGateway(NewRegistry(1, 0), &fakeCatalog{}, fakeInbox{})

	stuck := newFakeConn()
	stuck.block = make(chan struct{})
	t.Cleanup(func() { close(stuck.block) })
	healthy := newFakeConn()

	stuckClient := g.Registry.Add(stuck, Identity{})
	g.Registry.Add(healthy, Identity{})

	accepted := 0
	for i := 0; i < 5; i++ {
		if stuckClient.Send([]byte(`{"type":"orders"}`)) {
			accepted++
		}
	}
	req.GreaterOrEqual(accepted, 1)
	req.LessOrEqual(accepted, 2)

	sent := g.Publish(events.OrderUpdated, map[string]int{"id": 1})

	req.Equal(1, sent)
	req.Eventually(func() bool { return healthy.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestConsume_ForwardsBroadcastTypesOnly(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)
	conn := newFakeConn()
	g.Registry.Add(conn, Identity{})

	req.NoError(g.Consume(context.Background(), events.Event{Type: events.PointsTransferred, Data: 1}))
	req.NoError(g.Consume(context.Background(), events.Event{Type: events.MessageCreated, Data: 2}))

	req.Eventually(func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	req.Never(func() bool { return conn.count() > 1 }, settle, 5*time.Millisecond)
	req.Equal(events.MessageCreated, conn.received(t)[0].Type)
}

func TestHandleInbound_RepliesOnlyToRequester(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(&fakeCatalog{products: []orders.Product{{ID: 1, Name: "Ticket", Price: 150}}})

	asker, bystander := newFakeConn(), newFakeConn()
	c := g.Registry.Add(asker, Identity{})
	g.Registry.Add(bystander, Identity{})

	g.HandleInbound(context.Background(), c.ID, []byte(`{"type":"getProducts"}`))
	g.HandleInbound(context.Background(), c.ID, []byte(`{"type":"ping"}`))

	req.Eventually(func() bool { return asker.count() == 2 }, time.Second, 5*time.Millisecond)
	got := asker.received(t)
	req.Equal(events.Products, got[0].Type)
	req.JSONEq(`[{"id":1,"name":"Ticket","price":150}]`, jsonPick(t, got[0].Data, "id", "name", "price"))
	req.Equal(events.Pong, got[1].Type)
	req.Positive(got[1].Timestamp)

	req.Never(func() bool { return bystander.count() > 0 }, settle, 5*time.Millisecond)
}

func TestHandleInbound_UnknownAndMalformed(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)
	conn := newFakeConn()
	c := g.Registry.Add(conn, Identity{})

	g.HandleInbound(context.Background(), c.ID, []byte(`{not json`))
	req.Never(func() bool { return conn.count() > 0 }, settle, 5*time.Millisecond)

	g.HandleInbound(context.Background(), c.ID, []byte(`{"type":"dance"}`))
	req.Eventually(func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	got := conn.received(t)[0]
	req.Equal(events.Error, got.Type)
	req.Equal("Unknown message type", got.Message)

	// frames for an unknown connection are ignored
	g.HandleInbound(context.Background(), "nope", []byte(`{"type":"ping"}`))
}

func TestHandleInbound_HandlerFailure(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(&fakeCatalog{err: errors.New("db down")})
	conn := newFakeConn()
	c := g.Registry.Add(conn, Identity{})

	g.HandleInbound(context.Background(), c.ID, []byte(`{"type":"getProducts"}`))

	req.Eventually(func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	got := conn.received(t)[0]
	req.Equal(events.Error, got.Type)
	req.Equal("Failed to process message", got.Message)
}

func TestHandleInbound_AccountScopedRequests(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(&fakeCatalog{orders: map[int64][]orders.Order{42: {{ID: 9, AccountID: 42}}}})

	anon, user := newFakeConn(), newFakeConn()
	anonClient := g.Registry.Add(anon, Identity{})
	userClient := g.Registry.Add(user, Identity{AccountID: 42})

	g.HandleInbound(context.Background(), anonClient.ID, []byte(`{"type":"getOrders"}`))
	req.Eventually(func() bool { return anon.count() == 1 }, time.Second, 5*time.Millisecond)
	req.Equal("Authentication required", anon.received(t)[0].Message)

	ctx := context.Background()
	g.HandleInbound(ctx, userClient.ID, []byte(`{"type":"getOrders"}`))
	g.HandleInbound(ctx, userClient.ID, []byte(`{"type":"getMessages"}`))
	g.HandleInbound(ctx, userClient.ID, []byte(`{"type":"getConversation","otherUserId":5}`))

	req.Eventually(func() bool { return user.count() == 3 }, time.Second, 5*time.Millisecond)
	got := user.received(t)
	req.Equal(events.Orders, got[0].Type)
	req.Contains(string(got[0].Data), `"id":9`)
	req.Equal(events.Messages, got[1].Type)
	req.Equal(events.Conversation, got[2].Type)
	req.Contains(string(got[2].Data), `"fromUserId":5`)
}

func TestHandleInbound_MessageSentBroadcasts(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)
	a, b := newFakeConn(), newFakeConn()
	ca := g.Registry.Add(a, Identity{AccountID: 1})
	g.Registry.Add(b, Identity{})

	// Given frames without a payload followed by one with content
	for _, raw := range []string{
		`{"type":"messageSent"}`,
		`{"type":"messageSent","data":null}`,
		`{"type":"messageSent","data":{"content":"hey"}}`,
	} {
		g.HandleInbound(context.Background(), ca.ID, []byte(raw))
	}

	// Then only the frame with content reaches each connection
	for _, c := range []*fakeConn{a, b} {
		req.Eventually(func() bool { return c.count() >= 1 }, time.Second, 5*time.Millisecond)
		req.Never(func() bool { return c.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
		got := c.received(t)[0]
		req.Equal(events.NewMessage, got.Type)
		req.JSONEq(`{"content":"hey"}`, string(got.Data))
	}
}

func TestServeHTTP_GreetingPingAndDisconnect(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(nil)
	g.Identify = func(*http.Request) Identity { return Identity{AccountID: 3} }

	srv := httptest.NewServer(g)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)

	var hello wireFrame
	req.NoError(conn.ReadJSON(&hello))
	req.Equal(events.Connection, hello.Type)
	req.NotEmpty(hello.ClientID)

	c, ok := g.Registry.Get(hello.ClientID)
	req.True(ok)
	req.Equal(int64(3), c.Identity.AccountID)

	req.NoError(conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong wireFrame
	req.NoError(conn.ReadJSON(&pong))
	req.Equal(events.Pong, pong.Type)

	g.Publish(events.ProductCreated, map[string]int{"id": 1})
	var pushed wireFrame
	req.NoError(conn.ReadJSON(&pushed))
	req.Equal(events.ProductCreated, pushed.Type)

	req.NoError(conn.Close())
	req.Eventually(func() bool { return g.Registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

// jsonPick keeps only the named keys of each object in a JSON array.
func jsonPick(t *testing.T, raw json.RawMessage, keys ...string) string {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal(raw, &items))
	for i, it := range items {
		kept := map[string]any{}
		for _, k := range keys {
			kept[k] = it[k]
		}
		items[i] = kept
	}
	b, err := json.Marshal(items)
	require.NoError(t, err)
	return string(b)
}
