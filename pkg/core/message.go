/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: message.go
Description: Captured protocol messages. A message is immutable once created apart from
its reduction factors, which trim the payload seen by the aligner without changing the
bytes a grammar has to cover.
*/

package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one captured protocol message
type Message struct {
	id          string
	payload     []byte
	protocol    string
	source      string
	destination string
	timestamp   time.Time

	leftReduction  int
	rightReduction int
}

// MessageOption configures a message at creation
type MessageOption func(*Message)

// WithID sets an explicit message identifier
func WithID(id string) MessageOption {
	return func(m *Message) { m.id = id }
}

// WithProvenance records where the message was observed
func WithProvenance(protocol, source, destination string) MessageOption {
	return func(m *Message) {
		m.protocol = protocol
		m.source = source
		m.destination = destination
	}
}

// WithTimestamp sets the capture time
func WithTimestamp(ts time.Time) MessageOption {
	return func(m *Message) { m.timestamp = ts }
}

// NewMessage creates a message holding a private copy of payload.
// Without WithID a random UUID is assigned.
func NewMessage(payload []byte, opts ...MessageOption) *Message {
	m := &Message{payload: make([]byte, len(payload))}
	copy(m.payload, payload)
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = uuid.New().String()
	}
	return m
}

// ID returns the unique message identifier
func (m *Message) ID() string { return m.id }

// Payload returns the raw bytes. Callers must not modify the slice.
func (m *Message) Payload() []byte { return m.payload }

// Len returns the payload length
func (m *Message) Len() int { return len(m.payload) }

// Protocol returns the transport tag, if any
func (m *Message) Protocol() string { return m.protocol }

// Source returns the sender endpoint, if any
func (m *Message) Source() string { return m.source }

// Destination returns the receiver endpoint, if any
func (m *Message) Destination() string { return m.destination }

// Timestamp returns the capture time
func (m *Message) Timestamp() time.Time { return m.timestamp }

// LeftReduction returns the percentage trimmed from the start of the payload
func (m *Message) LeftReduction() int { return m.leftReduction }

// RightReduction returns the percentage trimmed from the end of the payload
func (m *Message) RightReduction() int { return m.rightReduction }

// SetReduction sets both reduction factors.
// Factors are percentages in 0..100 and at most one of them may be non-zero.
func (m *Message) SetReduction(left, right int) error {
	if left < 0 || left > 100 || right < 0 || right > 100 {
		return fmt.Errorf("%w: left=%d right=%d must be within 0..100", ErrInvalidReduction, left, right)
	}
	if left != 0 && right != 0 {
		return fmt.Errorf("%w: left=%d right=%d are both non-zero", ErrInvalidReduction, left, right)
	}
	m.leftReduction = left
	m.rightReduction = right
	return nil
}

// ReductionCuts returns the number of bytes trimmed on each side
func (m *Message) ReductionCuts() (left, right int) {
	n := len(m.payload)
	return n * m.leftReduction / 100, n * m.rightReduction / 100
}

// Reduced returns the payload with the reduction cuts applied
func (m *Message) Reduced() []byte {
	left, right := m.ReductionCuts()
	return m.payload[left : len(m.payload)-right]
}

// String returns a short description for logs
func (m *Message) String() string {
	return fmt.Sprintf("Message(%s, %d bytes)", m.id, len(m.payload))
}
