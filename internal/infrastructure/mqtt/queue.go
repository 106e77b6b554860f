package mqtt

import (
	"sync"
	"time"
)

// QueueDepth is the capacity of the inbound message queue.
const QueueDepth = 10

// Message is an inbound broker message. Topic is relative to the node's
// base topic; Payload is truncated to MaxPayloadLen.
type Message struct {
	Topic   string
	Payload []byte
}

// inboundQueue is a fixed-depth FIFO that drops its oldest entry when full,
// so the network path never blocks on a slow consumer.
type inboundQueue struct {
	mu sync.Mutex
	ch chan Message
}

func newInboundQueue(depth int) *inboundQueue {
	return &inboundQueue{ch: make(chan Message, depth)}
}

// push enqueues a message, evicting the oldest entry if the queue is full.
// It reports whether an entry was evicted.
func (q *inboundQueue) push(msg Message) bool {
	// The lock keeps evict-then-enqueue atomic against concurrent pushers.
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	select {
	case q.ch <- msg:
	default:
		select {
		case <-q.ch:
			dropped = true
		default:
		}
		q.ch <- msg
	}
	return dropped
}

// pop dequeues the oldest message, waiting up to timeout. A non-positive
// timeout polls without waiting.
func (q *inboundQueue) pop(timeout time.Duration) (Message, bool) {
	if timeout <= 0 {
		select {
		case msg := <-q.ch:
			return msg, true
		default:
			return Message{}, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return msg, true
	case <-timer.C:
		return Message{}, false
	}
}

func (q *inboundQueue) len() int {
	return len(q.ch)
}
