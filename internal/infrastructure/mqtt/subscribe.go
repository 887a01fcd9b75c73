package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// SetHandler receives a write published on <prefix>/set/<path>. The path
// has already been mapped back to a node URI; payload is the raw encoded
// value. A returned error is logged at debug level and otherwise dropped,
// since MQTT has no way to answer the publisher.
type SetHandler func(uri string, payload []byte) error

// SubscribeSets routes every message under <prefix>/set/ to handler. There
// is one set handler per client and a second call replaces the first. The
// subscription is renewed on every reconnect until UnsubscribeSets.
func (c *Client) SubscribeSets(handler SetHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.setMu.Lock()
	c.sets = handler
	c.setMu.Unlock()

	if err := await(c.client.Subscribe(c.topics.AllSets(), c.qos(), c.onSetMessage), ErrSubscribeFailed); err != nil {
		c.setMu.Lock()
		c.sets = nil
		c.setMu.Unlock()
		return err
	}
	return nil
}

// UnsubscribeSets stops delivering writes. Messages already in flight
// are discarded.
func (c *Client) UnsubscribeSets() error {
	c.setMu.Lock()
	c.sets = nil
	c.setMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Unsubscribe(c.topics.AllSets()), ErrSubscribeFailed)
}

func (c *Client) setHandler() SetHandler {
	c.setMu.RLock()
	defer c.setMu.RUnlock()
	return c.sets
}

// resubscribeSets renews the set subscription after a reconnect. Clean
// sessions drop subscriptions on the broker side.
func (c *Client) resubscribeSets() {
	if c.setHandler() == nil {
		return
	}
	// A failure here surfaces again on the next reconnect cycle.
	c.client.Subscribe(c.topics.AllSets(), c.qos(), c.onSetMessage)
}

func (c *Client) onSetMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.dispatchSet(msg.Topic(), msg.Payload())
}

// dispatchSet hands one set message to the current handler. Topics that
// do not map to a URI are ignored and a panicking handler is logged.
func (c *Client) dispatchSet(topic string, payload []byte) {
	handler := c.setHandler()
	if handler == nil {
		return
	}
	uri, ok := c.topics.URIFromSet(topic)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("set handler panic recovered", "uri", uri, "panic", r)
			}
		}
	}()

	if err := handler(uri, payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Debug("write from broker rejected", "uri", uri, "error", err)
		}
	}
}
