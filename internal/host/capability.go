package host

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const importTimeout = 10 * time.Second

// Capability is a host-provided object. Its identity is kept so callers can
// read its properties and invoke its methods directly.
type Capability struct {
	Name   string
	props  map[string]json.RawMessage
	client *Client
}

// Prop returns a raw property value.
func (c *Capability) Prop(key string) (json.RawMessage, bool) {
	v, ok := c.props[key]
	return v, ok
}

// Call invokes a capability method.
func (c *Capability) Call(ctx context.Context, method string, args interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s.%s args: %w", c.Name, method, err)
		}
		raw = b
	}
	return c.client.Call(ctx, CmdCapabilityCall, CapabilityCallArgs{
		Capability: c.Name,
		Method:     method,
		Args:       raw,
	})
}

// Import acquires the named capability and hands it to fn exactly once. If
// the capability is already held fn runs immediately on the caller's
// goroutine; otherwise fn runs once the host is ready and has granted it.
func (c *Client) Import(name string, fn func(*Capability)) {
	c.mu.Lock()
	if cp, ok := c.caps[name]; ok {
		c.mu.Unlock()
		fn(cp)
		return
	}
	c.pending[name] = append(c.pending[name], fn)
	start := c.ready && !c.acquiring[name]
	if start {
		c.acquiring[name] = true
	}
	c.mu.Unlock()

	if start {
		go c.acquire(context.Background(), name)
	}
}

func (c *Client) acquire(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	var reply ImportReply
	err := c.CallInto(ctx, CmdImportCapability, ImportArgs{Name: name}, &reply)

	c.mu.Lock()
	delete(c.acquiring, name)
	if err != nil {
		c.mu.Unlock()
		// Callbacks stay queued; the next Import or Connect retries.
		c.log.Error("Failed to import capability", err, "capability", name)
		return
	}
	cp := &Capability{Name: name, props: reply.Props, client: c}
	c.caps[name] = cp
	callbacks := c.pending[name]
	delete(c.pending, name)
	c.mu.Unlock()

	c.log.Debug("Capability imported", "capability", name, "callbacks", len(callbacks))
	for _, fn := range callbacks {
		fn(cp)
	}
}
