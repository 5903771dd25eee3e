package mqttbridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/control"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// Client is the MQTT surface the bridge needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
}

// StatusFunc snapshots the session for the retained status topic.
type StatusFunc func() hw.Status

// Config configures the bridge.
type Config struct {
	TopicBase string
	Buffer    int
}

// Bridge mirrors the control protocol over MQTT: broadcasts go to the events
// topic, the command topic feeds the hub, and the status topic holds the last
// session document.
type Bridge struct {
	log    *zap.Logger
	client Client
	hub    *control.Hub
	status StatusFunc
	base   string

	out  chan string
	done chan struct{}
	once sync.Once
}

// New creates a bridge; Run attaches it to the hub.
func New(log *zap.Logger, cfg Config, client Client, hub *control.Hub, status StatusFunc) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = hw.DefaultTopicBase
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	return &Bridge{
		log:    log,
		client: client,
		hub:    hub,
		status: status,
		base:   strings.TrimRight(cfg.TopicBase, "/"),
		out:    make(chan string, cfg.Buffer),
		done:   make(chan struct{}),
	}
}

func (b *Bridge) ID() string { return "mqtt" }

// Send queues a broadcast. A full queue drops the message but keeps the bridge.
func (b *Bridge) Send(text string) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.out <- text:
	default:
		b.log.Warn("mqtt queue full, dropping message", zap.String("message", text))
	}
	return true
}

func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// Run subscribes to commands and publishes broadcasts until ctx is done or the
// hub drops the bridge.
func (b *Bridge) Run(ctx context.Context) error {
	cmdTopic := hw.CommandTopic(b.base)
	if err := b.client.Subscribe(cmdTopic, 1, b.onCommand); err != nil {
		return err
	}
	defer func() { _ = b.client.Unsubscribe(cmdTopic) }()

	b.publishStatus()
	b.hub.Add(b)
	defer b.hub.Remove(b.ID())
	b.log.Info("mqtt bridge running", zap.String("topic_base", b.base))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			b.drain()
			return nil
		case text := <-b.out:
			b.publish(text)
		}
	}
}

func (b *Bridge) onCommand(_ string, payload []byte) {
	_ = b.hub.Dispatch(b.ID(), string(payload))
}

func (b *Bridge) drain() {
	for {
		select {
		case text := <-b.out:
			b.publish(text)
		default:
			return
		}
	}
}

func (b *Bridge) publish(text string) {
	if err := b.client.Publish(hw.EventTopic(b.base), 0, false, []byte(text)); err != nil {
		b.log.Warn("mqtt publish failed", zap.Error(err))
		return
	}
	// Time updates are too frequent for a full snapshot.
	if !strings.HasPrefix(text, hw.MsgTime+" ") {
		b.publishStatus()
	}
}

func (b *Bridge) publishStatus() {
	if b.status == nil {
		return
	}
	payload, err := json.Marshal(b.status())
	if err != nil {
		b.log.Warn("encode status failed", zap.Error(err))
		return
	}
	if err := b.client.Publish(hw.StatusTopic(b.base), 1, true, payload); err != nil {
		b.log.Warn("mqtt status publish failed", zap.Error(err))
	}
}
