package embeddedmqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"
)

// Config configures the embedded MQTT broker.
type Config struct {
	Listen         string
	AllowAnonymous bool
	Username       string
	Password       string
}

// Module runs an embedded MQTT broker for remotes that speak MQTT.
type Module struct {
	log    *zap.Logger
	server *mqtt.Server
	config Config
}

// NewModule creates a new embedded broker module.
func NewModule(log *zap.Logger, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = "127.0.0.1:1883"
	}
	server, err := newServer(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{log: log, server: server, config: cfg}, nil
}

// Run serves the broker until ctx is done.
func (m *Module) Run(ctx context.Context) error {
	listener := listeners.NewTCP(listeners.Config{ID: "tcp-embedded", Address: m.config.Listen})
	if err := m.server.AddListener(listener); err != nil {
		return err
	}
	if err := m.server.Serve(); err != nil {
		return fmt.Errorf("serve embedded mqtt: %w", err)
	}
	m.log.Info("embedded mqtt listening", zap.String("listen", m.config.Listen))

	<-ctx.Done()
	return m.server.Close()
}

// Inline returns a client that talks to the broker in-process.
func (m *Module) Inline() *InlineClient {
	return &InlineClient{server: m.server, ids: map[string]int{}}
}

func newServer(log *zap.Logger, cfg Config) (*mqtt.Server, error) {
	server := mqtt.New(&mqtt.Options{InlineClient: true, Logger: newSlogLogger(log)})

	switch {
	case cfg.AllowAnonymous:
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, err
		}
	case cfg.Username != "":
		ledger := &auth.Ledger{
			Auth: auth.AuthRules{{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true}},
			ACL:  auth.ACLRules{{Username: auth.RString(cfg.Username), Filters: auth.Filters{auth.RString("#"): auth.ReadWrite}}},
		}
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger}); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("embedded mqtt requires allow_anonymous or username")
	}
	return server, nil
}

// InlineClient publishes and subscribes without a network connection.
type InlineClient struct {
	server *mqtt.Server

	mu     sync.Mutex
	ids    map[string]int
	nextID int
}

func (c *InlineClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return c.server.Publish(topic, payload, retained, qos)
}

func (c *InlineClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.ids[topic] = id
	c.mu.Unlock()
	return c.server.Subscribe(topic, id, func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	})
}

func (c *InlineClient) Unsubscribe(topic string) error {
	c.mu.Lock()
	id, ok := c.ids[topic]
	delete(c.ids, topic)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.server.Unsubscribe(topic, id)
}

// BrokerURL returns the broker URL for a listen address.
func BrokerURL(listen string) string {
	return "mqtt://" + listen
}
