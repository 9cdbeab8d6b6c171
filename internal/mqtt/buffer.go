package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	coalesce bool // newer messages on the same topic replace this one
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push appends msg, overwriting the oldest message when full.
// Returns true the first time a message is dropped since the last drain.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.count == r.capacity {
		first := !r.overflow
		r.overflow = true
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return first
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
	return false
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}

// outbox holds messages while the broker is unreachable. Lifecycle events
// queue in order in a ringBuffer. Telemetry is sampled state published every
// cycle, so only the newest snapshot per topic is kept and a long outage
// cannot push lifecycle events out.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	events *ringBuffer
	latest map[string]bufferedMsg
	topics []string // first-seen order of latest
}

func newOutbox(eventCapacity int) *outbox {
	return &outbox{
		events: newRingBuffer(eventCapacity),
		latest: make(map[string]bufferedMsg),
	}
}

// push stores msg. Returns true the first time a lifecycle event is dropped
// since the last drain.
func (o *outbox) push(msg bufferedMsg) bool {
	if !msg.coalesce {
		return o.events.push(msg)
	}
	if _, ok := o.latest[msg.topic]; !ok {
		o.topics = append(o.topics, msg.topic)
	}
	o.latest[msg.topic] = msg
	return false
}

// drainAll returns lifecycle events oldest first, then the newest snapshot
// of each telemetry topic.
func (o *outbox) drainAll() []bufferedMsg {
	out := o.events.drainAll()
	for _, topic := range o.topics {
		out = append(out, o.latest[topic])
	}
	o.latest = make(map[string]bufferedMsg)
	o.topics = nil
	return out
}

func (o *outbox) len() int {
	return o.events.len() + len(o.topics)
}
