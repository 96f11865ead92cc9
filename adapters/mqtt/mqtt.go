// Package mqtt publishes item state snapshots to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/artpar/accrue/ports"
)

// Options configures the broker connection.
type Options struct {
	Broker         string // host:port or a full tcp:// / ssl:// URL
	ClientID       string
	TopicPrefix    string
	Username       string
	Password       string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration // bound on waiting for one publish
}

// Publisher implements ports.StatePublisher over MQTT.
type Publisher struct {
	client paho.Client
	opts   Options
}

// New connects to the broker and returns a publisher.
func New(opts Options) (*Publisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}
	opts = withDefaults(opts)

	broker := opts.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	co := paho.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(opts.ConnectTimeout)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}

	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out after %s", broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", broker, err)
	}
	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client paho.Client, opts Options) *Publisher {
	return &Publisher{client: client, opts: withDefaults(opts)}
}

func withDefaults(opts Options) Options {
	if opts.ClientID == "" {
		opts.ClientID = "accrue"
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = "accrue"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return opts
}

// Topic returns the state topic of an item.
func (p *Publisher) Topic(itemID string) string {
	return strings.TrimSuffix(p.opts.TopicPrefix, "/") + "/items/" + itemID + "/state"
}

// PublishItemState sends s as JSON to the item's state topic. It waits at
// most PublishTimeout for the broker, however long ctx allows.
func (p *Publisher) PublishItemState(ctx context.Context, s ports.ItemState) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding item state: %w", err)
	}

	timer := time.NewTimer(p.opts.PublishTimeout)
	defer timer.Stop()

	token := p.client.Publish(p.Topic(s.ItemID), p.opts.QoS, p.opts.Retain, payload)
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("publishing item state: timed out after %s", p.opts.PublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing item state: %w", err)
	}
	return nil
}

// Close disconnects from the MQTT broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Noop discards every state message.
type Noop struct{}

func (Noop) PublishItemState(context.Context, ports.ItemState) error { return nil }
func (Noop) Close()                                                  {}

var (
	_ ports.StatePublisher = (*Publisher)(nil)
	_ ports.StatePublisher = Noop{}
)
