package bridge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

var _ Transport = (*MQTTTransport)(nil)

// MQTTConfig configures an MQTTTransport. Every packet destined for
// neighbour N is published to "{TopicRoot}/{N}"; this client subscribes
// to "{TopicRoot}/{SelfID}" to receive packets addressed to it.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	TopicRoot string
	SelfID    netid.NodeId
	UseTLS    bool
	Logger    *slog.Logger
}

// MQTTTransport bridges wire.Packet values over an MQTT broker.
type MQTTTransport struct {
	cfg           MQTTConfig
	client        paho.Client
	log           *slog.Logger
	mu            sync.RWMutex
	connected     bool
	packetHandler PacketHandler
	stateHandler  StateHandler
}

// NewMQTT creates an MQTT bridge transport with the given configuration.
func NewMQTT(cfg MQTTConfig) *MQTTTransport {
	if cfg.TopicRoot == "" {
		cfg.TopicRoot = "overlay-client"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MQTTTransport{
		cfg: cfg,
		log: cfg.Logger.WithGroup("bridge.mqtt"),
	}
}

// Start connects to the broker and subscribes to this node's topic.
func (t *MQTTTransport) Start(ctx context.Context) error {
	if t.cfg.BrokerURL == "" {
		return errors.New("bridge: mqtt broker url is required")
	}

	clientID := t.cfg.ClientID
	if clientID == "" {
		clientID = "overlay-client-" + randomString(16)
	}

	opts := paho.NewClientOptions().
		AddBroker(t.cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(t.onConnected).
		SetConnectionLostHandler(t.onConnectionLost).
		SetReconnectingHandler(t.onReconnecting)

	if t.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	t.client = paho.NewClient(opts)

	token := t.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return errors.New("bridge: mqtt connection timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("bridge: mqtt connect: %w", token.Error())
	}
	return nil
}

// Stop disconnects from the broker.
func (t *MQTTTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		t.client.Disconnect(1000)
		t.connected = false
	}
	return nil
}

// IsConnected reports whether the broker connection is currently live.
func (t *MQTTTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected && t.client != nil && t.client.IsConnected()
}

// SetPacketHandler implements Transport.
func (t *MQTTTransport) SetPacketHandler(fn PacketHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetHandler = fn
}

// SetStateHandler implements Transport.
func (t *MQTTTransport) SetStateHandler(fn StateHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateHandler = fn
}

// SendPacket encodes pkt to CBOR, base64-wraps it, and publishes it to
// the neighbour's topic.
func (t *MQTTTransport) SendPacket(to netid.NodeId, pkt wire.Packet) error {
	if !t.IsConnected() {
		return errors.New("bridge: mqtt not connected")
	}
	data, err := wire.Encode(pkt)
	if err != nil {
		return fmt.Errorf("bridge: encode packet: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(data)
	topic := t.topicFor(to)

	token := t.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("bridge: mqtt publish timeout")
	}
	return token.Error()
}

func (t *MQTTTransport) topicFor(id netid.NodeId) string {
	return t.cfg.TopicRoot + "/" + strconv.Itoa(int(id))
}

func (t *MQTTTransport) subscribe() {
	topic := t.topicFor(t.cfg.SelfID)
	t.client.Subscribe(topic, 0, t.handleMessage)
	t.log.Debug("subscribed", "topic", topic)
}

func (t *MQTTTransport) handleMessage(_ paho.Client, message paho.Message) {
	t.mu.RLock()
	handler := t.packetHandler
	t.mu.RUnlock()
	if handler == nil {
		return
	}

	raw, err := base64.StdEncoding.DecodeString(string(message.Payload()))
	if err != nil {
		t.log.Debug("failed to decode base64 payload", "error", err)
		return
	}
	pkt, err := wire.Decode(raw)
	if err != nil {
		t.log.Debug("failed to decode bridged packet", "error", err)
		return
	}

	from := t.cfg.SelfID
	if len(pkt.Routing.Hops) > 0 {
		from = pkt.Routing.Hops[0]
	}
	handler(pkt, from)
}

func (t *MQTTTransport) onConnected(_ paho.Client) {
	t.mu.Lock()
	t.connected = true
	handler := t.stateHandler
	t.mu.Unlock()

	t.subscribe()
	t.log.Info("connected", "broker", t.cfg.BrokerURL)
	if handler != nil {
		handler(EventConnected)
	}
}

func (t *MQTTTransport) onConnectionLost(_ paho.Client, err error) {
	t.mu.Lock()
	t.connected = false
	handler := t.stateHandler
	t.mu.Unlock()

	t.log.Error("connection lost", "error", err)
	if handler != nil {
		handler(EventDisconnected)
	}
}

func (t *MQTTTransport) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	t.mu.RLock()
	handler := t.stateHandler
	t.mu.RUnlock()

	t.log.Info("reconnecting")
	if handler != nil {
		handler(EventReconnecting)
	}
}

func randomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
