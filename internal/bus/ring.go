package bus

// ring is a fixed-capacity FIFO that overwrites its oldest entry when full.
type ring struct {
	buf  []Message
	head int // index of the oldest entry
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Message, capacity)}
}

// push appends msg and reports whether the oldest entry was evicted to make room.
func (r *ring) push(msg Message) bool {
	if r.size == len(r.buf) {
		r.buf[r.head] = msg
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.size)%len(r.buf)] = msg
	r.size++
	return false
}

func (r *ring) pop() (Message, bool) {
	if r.size == 0 {
		return Message{}, false
	}
	msg := r.buf[r.head]
	r.buf[r.head] = Message{}
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return msg, true
}

func (r *ring) len() int {
	return r.size
}
