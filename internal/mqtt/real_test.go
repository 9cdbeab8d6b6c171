package mqtt

import (
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	open         bool
	sent         []sentMsg
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func newTestPublisher(c *fakeClient, capacity int) *RealPublisher {
	return &RealPublisher{
		client: c,
		buf:    newOutbox(capacity),
		now:    func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
		logger: zap.NewNop().Sugar(),
	}
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newTestPublisher(c, 4)

	if err := p.PublishInputs("Launcher", sampleInputs{MotorConnected: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 messages sent, got %d", len(c.sent))
	}
	if c.sent[0].topic != "robot/telemetry/Launcher" || c.sent[0].qos != 0 || c.sent[0].retained {
		t.Errorf("inputs message: got %+v", c.sent[0])
	}
	if c.sent[1].topic != TopicSystem || c.sent[1].qos != 1 || !c.sent[1].retained {
		t.Errorf("system message: got %+v", c.sent[1])
	}
	if p.Buffered() != 0 {
		t.Errorf("nothing should be buffered, got %d", p.Buffered())
	}
}

func TestRealPublisherBuffersAndReplays(t *testing.T) {
	c := &fakeClient{open: false}
	p := newTestPublisher(c, 2)

	p.PublishInputs("Feeder", sampleInputs{Velocity: 1})
	p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	p.PublishInputs("Feeder", sampleInputs{Velocity: 2})
	p.PublishInputs("Launcher", sampleInputs{Velocity: 90})
	p.PublishInputs("Feeder", sampleInputs{Velocity: 3})

	if len(c.sent) != 0 {
		t.Fatalf("nothing should be sent while disconnected, got %d", len(c.sent))
	}
	// One event plus the newest snapshot of each topic.
	if p.Buffered() != 3 {
		t.Fatalf("buffered: got %d, want 3", p.Buffered())
	}

	c.open = true
	p.onConnect()

	if len(c.sent) != 3 {
		t.Fatalf("expected 3 replayed messages, got %d", len(c.sent))
	}
	if c.sent[0].topic != TopicSystem || !c.sent[0].retained {
		t.Errorf("lifecycle event should replay first: %+v", c.sent[0])
	}
	want := `{"telemetry":{"timestamp":"2026-01-01T00:00:00Z","namespace":"Feeder","inputs":{"motor_connected":false,"velocity_rps":3}}}`
	if string(c.sent[1].payload) != want {
		t.Errorf("feeder snapshot:\ngot:  %s\nwant: %s", c.sent[1].payload, want)
	}
	if c.sent[2].topic != "robot/telemetry/Launcher" {
		t.Errorf("launcher snapshot topic: got %q", c.sent[2].topic)
	}
	if p.Buffered() != 0 {
		t.Errorf("buffer should be empty after replay, got %d", p.Buffered())
	}
}

func TestRealPublisherOutageKeepsLifecycleEvents(t *testing.T) {
	c := &fakeClient{open: false}
	p := newTestPublisher(c, 4)

	p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	// A minute of 50 Hz telemetry from both subsystems.
	for i := 0; i < 3000; i++ {
		p.PublishInputs("Feeder", sampleInputs{Velocity: float64(i)})
		p.PublishInputs("Launcher", sampleInputs{Velocity: float64(i)})
	}

	c.open = true
	p.onConnect()

	if len(c.sent) != 3 {
		t.Fatalf("replayed: got %d, want 3", len(c.sent))
	}
	if c.sent[0].topic != TopicSystem {
		t.Errorf("STARTUP lost during outage: first replay is %q", c.sent[0].topic)
	}
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{open: true}
	p := newTestPublisher(c, 1)

	if !p.IsConnected() {
		t.Error("expected IsConnected=true")
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !c.disconnected {
		t.Error("expected Disconnect to be called")
	}
}
