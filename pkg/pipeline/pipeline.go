// Copyright 2024 The waxwing Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// ErrNotWired will be returned when forwarding over a sink that was never bound.
var ErrNotWired = errors.New("pipeline: stage not wired")

// HandlerFunc processes a stanza flowing downstream, away from the transports.
type HandlerFunc func(ctx context.Context, stanza stravaganza.Stanza) error

// SinkFunc emits a stanza flowing upstream, toward the transports.
type SinkFunc func(ctx context.Context, stanza stravaganza.Stanza) error

// Stage represents one element of the stanza processing pipeline.
//
// Stanzas received from a neighbouring stage enter through Handle;
// replies and outbound traffic leave through Send. Match must be cheap
// and side effect free, since it may run once per stanza per stage.
type Stage interface {
	// Match tells whether stanza should be processed by this stage.
	Match(stanza stravaganza.Stanza) bool

	// Handle processes an inbound stanza, returning whether it was claimed.
	Handle(ctx context.Context, stanza stravaganza.Stanza) (handled bool, err error)

	// Send emits an outbound stanza toward the transports.
	Send(ctx context.Context, stanza stravaganza.Stanza) error

	// BindDownstream sets the inbound handler of the next pipeline stage.
	BindDownstream(next HandlerFunc)

	// BindUpstream sets the outbound sink of the previous pipeline stage.
	BindUpstream(sink SinkFunc)
}

// Sinks holds a stage's neighbour wiring. It's meant to be embedded
// into Stage implementations.
//
// Binding happens once, before any stanza flows; no locking is applied.
type Sinks struct {
	downstream HandlerFunc
	upstream   SinkFunc
}

// BindDownstream sets the downstream neighbour handler.
func (s *Sinks) BindDownstream(next HandlerFunc) { s.downstream = next }

// BindUpstream sets the upstream neighbour sink.
func (s *Sinks) BindUpstream(sink SinkFunc) { s.upstream = sink }

// ForwardDownstream passes stanza to the downstream neighbour.
func (s *Sinks) ForwardDownstream(ctx context.Context, stanza stravaganza.Stanza) error {
	if s.downstream == nil {
		return ErrNotWired
	}
	return s.downstream(ctx, stanza)
}

// ForwardUpstream passes stanza to the upstream neighbour.
func (s *Sinks) ForwardUpstream(ctx context.Context, stanza stravaganza.Stanza) error {
	if s.upstream == nil {
		return ErrNotWired
	}
	return s.upstream(ctx, stanza)
}

// Chain wires stages into a bidirectional pipeline: every stanza a stage
// forwards downstream is handled by its successor, and every stanza a
// stage emits upstream is sent through its predecessor.
//
// Chain is invoked once at startup; a nil stage is a wiring bug and panics.
func Chain(stages ...Stage) {
	for i := 0; i < len(stages)-1; i++ {
		prev, next := stages[i], stages[i+1]
		if prev == nil || next == nil {
			panic("pipeline: chaining over a nil stage")
		}
		prev.BindDownstream(func(ctx context.Context, stanza stravaganza.Stanza) error {
			_, err := next.Handle(ctx, stanza)
			return err
		})
		next.BindUpstream(prev.Send)
	}
}
