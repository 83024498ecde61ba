package signal

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/verikit/verikit/internal/logging"
)

// WSChannel adapts a WebSocket connection into a Channel. It is the bridge
// between a live embed page and the host-side controller: the page posts the
// remote flow's lifecycle signals as JSON text frames.
//
// The read loop runs on a single goroutine, so delivery order matches frame
// arrival order. Frames that are not JSON objects with a "type" field are
// dropped.
type WSChannel struct {
	conn *websocket.Conn
	log  *logging.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Message)
	order    []int

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSChannel wraps an established connection and starts the read loop. The
// channel owns the read side of the connection; callers may still write.
func NewWSChannel(conn *websocket.Conn, log *logging.Logger) *WSChannel {
	if log == nil {
		log = logging.NewNop()
	}
	c := &WSChannel{
		conn:     conn,
		log:      log,
		handlers: map[int]func(Message){},
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WSChannel) Subscribe(handler func(Message)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

// Close shuts the connection down and ends the read loop.
func (c *WSChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the read loop has exited.
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

func (c *WSChannel) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		m, ok := Decode(data)
		if !ok {
			c.log.Debug("dropping untyped payload", zap.Int("bytes", len(data)))
			continue
		}
		c.deliver(m)
	}
}

func (c *WSChannel) deliver(m Message) {
	c.mu.Lock()
	handlers := make([]func(Message), 0, len(c.handlers))
	for _, id := range c.order {
		if h, ok := c.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(m)
	}
}
