package mqtt

import "github.com/rs/zerolog/log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds messages published while disconnected, dropping the
// oldest when full. Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf     []bufferedMsg
	oldest  int
	count   int
	dropped int // messages lost since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	n := len(r.buf)
	if r.count < n {
		r.buf[(r.oldest+r.count)%n] = msg
		r.count++
		return
	}
	if r.dropped == 0 {
		log.Warn().Int("capacity", n).Msg("mqtt: offline buffer full, dropping oldest")
	}
	r.buf[r.oldest] = msg
	r.oldest = (r.oldest + 1) % n
	r.dropped++
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	n := len(r.buf)
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.buf[(r.oldest+i)%n]
	}
	r.oldest, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
