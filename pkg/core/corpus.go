/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Message corpus for the inference engine. Stores captured messages by id in
arrival order and provides thread-safe lookup for ingestion, persistence, and the query
surface.
*/

package core

import (
	"fmt"
	"sync"
)

// Corpus manages the collection of captured messages
// Insertion order is preserved because clustering results depend on it
type Corpus struct {
	messages map[string]*Message // Map of message ID to message
	order    []string            // IDs in insertion order
	mu       sync.RWMutex        // Read-write mutex for thread safety

	bytes int
}

// NewCorpus creates an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{
		messages: make(map[string]*Message),
	}
}

// Add adds a message to the corpus
// Returns ErrDuplicateMessage if the id is already present
func (c *Corpus) Add(m *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.messages[m.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, m.ID())
	}

	c.messages[m.ID()] = m
	c.order = append(c.order, m.ID())
	c.bytes += m.Len()
	return nil
}

// AddAll adds messages in order, stopping at the first error
func (c *Corpus) AddAll(msgs []*Message) error {
	for _, m := range msgs {
		if err := c.Add(m); err != nil {
			return err
		}
	}
	return nil
}

// Resolve looks up several ids, failing on the first unknown one
func (c *Corpus) Resolve(ids []string) ([]*Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		m, ok := c.messages[id]
		if !ok {
			return nil, fmt.Errorf("unknown message id %s", id)
		}
		out = append(out, m)
	}
	return out, nil
}

// Messages returns all messages in insertion order
func (c *Corpus) Messages() []*Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Message, len(c.order))
	for i, id := range c.order {
		out[i] = c.messages[id]
	}
	return out
}

// Size returns the number of messages
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Bytes returns the total payload size
func (c *Corpus) Bytes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.bytes
}
