package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

// maxPayloadSize bounds one encoded value, in line with common broker limits.
const maxPayloadSize = 1 << 20

// PublishState publishes the encoded value of the parameter at uri on its
// state topic. The message is retained so a late subscriber starts from
// the current value.
func (c *Client) PublishState(uri string, payload []byte) error {
	return c.publishLeaf(uri, payload, true)
}

// PublishEvent publishes an occurrence of the event at uri on its state
// topic. Occurrences are not retained.
func (c *Client) PublishEvent(uri string, payload []byte) error {
	return c.publishLeaf(uri, payload, false)
}

func (c *Client) publishLeaf(uri string, payload []byte, retained bool) error {
	canonical, err := tree.Canonical(uri)
	if err != nil {
		return err
	}
	if canonical == "" {
		return fmt.Errorf("%w: the root has no state topic", tree.ErrInvalidURI)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrPayloadTooLarge, canonical, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(c.topics.State(canonical), c.qos(), retained, payload)
	if err := await(token, ErrPublishFailed); err != nil {
		return fmt.Errorf("%s: %w", canonical, err)
	}
	return nil
}

// await waits for the broker to acknowledge token and wraps any failure
// in sentinel.
func await(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(defaultAckTimeout) {
		return fmt.Errorf("%w: no acknowledgement within %v", sentinel, defaultAckTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
