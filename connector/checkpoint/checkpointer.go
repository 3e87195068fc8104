/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// Package checkpoint persists sync resumption state between runs.
package checkpoint

import (
	"errors"
	"sync"

	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
)

const (
	// Attribute names of the DynamoDB checkpoint table.
	EndpointKeyKey = "EndpointKey"
	SkipKey        = "Skip"
	UpdatedAtKey   = "UpdatedAt"
)

// ErrCheckpointNotFound is returned by FetchCheckpoint when no state has
// been saved for the endpoint yet. Callers start from the zero state.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Checkpointer stores the per-endpoint resumption state
type Checkpointer interface {
	// Init initialises the Checkpointer
	Init() error

	// FetchCheckpoint retrieves the saved state for the given endpoint
	FetchCheckpoint(endpointKey string) (interfaces.State, error)

	// SaveCheckpoint persists the state for the given endpoint
	SaveCheckpoint(endpointKey string, state interfaces.State) error

	// RemoveCheckpoint deletes the saved state, forcing a full resync
	RemoveCheckpoint(endpointKey string) error
}

// InMemoryCheckpointer keeps checkpoints in process memory. Useful for
// tests and one-shot runs that do not need to resume.
type InMemoryCheckpointer struct {
	mu     sync.Mutex
	states map[string]interfaces.State
}

func NewInMemoryCheckpointer() *InMemoryCheckpointer {
	return &InMemoryCheckpointer{}
}

func (c *InMemoryCheckpointer) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states == nil {
		c.states = map[string]interfaces.State{}
	}
	return nil
}

func (c *InMemoryCheckpointer) FetchCheckpoint(endpointKey string) (interfaces.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[endpointKey]
	if !ok {
		return interfaces.State{}, ErrCheckpointNotFound
	}
	return state, nil
}

func (c *InMemoryCheckpointer) SaveCheckpoint(endpointKey string, state interfaces.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states == nil {
		c.states = map[string]interfaces.State{}
	}
	c.states[endpointKey] = state
	return nil
}

func (c *InMemoryCheckpointer) RemoveCheckpoint(endpointKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, endpointKey)
	return nil
}
