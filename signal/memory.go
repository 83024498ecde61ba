package signal

import "sync"

// MemoryChannel is an in-process Channel. Publish delivers synchronously on
// the caller's goroutine, which preserves arrival order and makes tests
// deterministic.
type MemoryChannel struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Message)
	order    []int
}

// NewMemoryChannel creates an empty channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{handlers: map[int]func(Message){}}
}

func (c *MemoryChannel) Subscribe(handler func(Message)) (cancel func()) {
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

// Publish delivers a message to all subscribers in subscription order.
func (c *MemoryChannel) Publish(m Message) {
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

// PublishRaw decodes an untyped payload and publishes it. Payloads without a
// type discriminator are dropped, mirroring what a real channel does.
func (c *MemoryChannel) PublishRaw(data []byte) bool {
	m, ok := Decode(data)
	if !ok {
		return false
	}
	c.Publish(m)
	return true
}
