package mqtt

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds the most recent messages published while disconnected.
// When full, a push evicts the oldest message. Not safe for concurrent use.
type ringBuffer struct {
	slots   []bufferedMsg
	oldest  int
	size    int
	dropped int // evicted since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, max(capacity, 1))}
}

// push appends msg and reports whether the oldest message was evicted.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.size < len(r.slots) {
		r.slots[(r.oldest+r.size)%len(r.slots)] = msg
		r.size++
		return false
	}
	r.slots[r.oldest] = msg
	r.oldest = (r.oldest + 1) % len(r.slots)
	r.dropped++
	return true
}

// drain empties the buffer. It returns the messages oldest first and how
// many were evicted to make room for them.
func (r *ringBuffer) drain() ([]bufferedMsg, int) {
	dropped := r.dropped
	if r.size == 0 {
		r.dropped = 0
		return nil, dropped
	}

	out := make([]bufferedMsg, 0, r.size)
	end := r.oldest + r.size
	if end <= len(r.slots) {
		out = append(out, r.slots[r.oldest:end]...)
	} else {
		out = append(out, r.slots[r.oldest:]...)
		out = append(out, r.slots[:end-len(r.slots)]...)
	}

	clear(r.slots)
	r.oldest, r.size, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.size
}
