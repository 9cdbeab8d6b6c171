package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultBufferSize is the number of lifecycle events kept while disconnected.
const DefaultBufferSize = 500

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// client is the subset of paho.Client the publisher needs.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker.
// Publishing never waits on the network: messages go out asynchronously
// while connected and wait in an outbox while not.
type RealPublisher struct {
	mu     sync.Mutex
	client client
	buf    *outbox
	now    func() time.Time
	logger *zap.SugaredLogger
}

// NewRealPublisher creates a publisher for the given broker. The connection is
// established in the background and retried until Close.
func NewRealPublisher(opts Options, logger *zap.SugaredLogger) *RealPublisher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		buf:    newOutbox(opts.BufferSize),
		now:    time.Now,
		logger: logger,
	}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warnf("mqtt: connection lost: %v", err)
		})

	c := paho.NewClient(clientOpts)
	p.client = c
	// With ConnectRetry the token completes only once connected; don't wait.
	c.Connect()
	return p
}

// PublishInputs sends an input snapshot. QoS 0, not retained.
func (p *RealPublisher) PublishInputs(namespace string, inputs any) error {
	payload, err := FormatInputsPayload(namespace, p.now(), inputs)
	if err != nil {
		return err
	}
	p.publish(bufferedMsg{topic: InputsTopic(namespace), payload: payload, coalesce: true})
	return nil
}

// PublishSystem sends a system lifecycle event.
// QoS 1 (at-least-once): lifecycle events should survive a flaky link.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		if p.buf.push(msg) {
			p.logger.Warnf("mqtt: event buffer full (%d events), dropping oldest", p.buf.events.capacity)
		}
		return
	}
	p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
}

// onConnect replays everything buffered while the broker was unreachable.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	for _, msg := range pending {
		p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
	p.mu.Unlock()

	p.logger.Infof("mqtt: connected, replayed %d buffered messages", len(pending))
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
// Telemetry counts once per topic.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
