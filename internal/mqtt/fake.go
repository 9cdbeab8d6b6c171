package mqtt

// InputsMessage is one recorded PublishInputs call.
type InputsMessage struct {
	Namespace string
	Inputs    any
}

// FakePublisher records published telemetry for test assertions.
// It also satisfies ConnectionStatus so the connectivity alert can be driven
// from tests.
type FakePublisher struct {
	// Inputs contains every snapshot that was published, in order.
	Inputs []InputsMessage

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishInputs.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishInputs records the snapshot.
func (f *FakePublisher) PublishInputs(namespace string, inputs any) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Inputs = append(f.Inputs, InputsMessage{Namespace: namespace, Inputs: inputs})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// LatestInputs returns the most recent snapshot published for namespace.
func (f *FakePublisher) LatestInputs(namespace string) (any, bool) {
	for i := len(f.Inputs) - 1; i >= 0; i-- {
		if f.Inputs[i].Namespace == namespace {
			return f.Inputs[i].Inputs, true
		}
	}
	return nil, false
}

// CountInputs returns how many snapshots were published for namespace.
func (f *FakePublisher) CountInputs(namespace string) int {
	n := 0
	for _, msg := range f.Inputs {
		if msg.Namespace == namespace {
			n++
		}
	}
	return n
}

// SystemEventNames returns the Event field of every recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	out := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		out[i] = e.Event
	}
	return out
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Inputs = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
