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
	"testing"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/stretchr/testify/require"
)

type testStage struct {
	Sinks
	name     string
	sent     []stravaganza.Stanza
	handled  []stravaganza.Stanza
	passDown bool
	replyUp  bool
}

func (s *testStage) Match(_ stravaganza.Stanza) bool { return true }

func (s *testStage) Handle(ctx context.Context, stanza stravaganza.Stanza) (bool, error) {
	s.handled = append(s.handled, stanza)
	if s.passDown {
		return true, s.ForwardDownstream(ctx, stanza)
	}
	if s.replyUp {
		return true, s.ForwardUpstream(ctx, stanza)
	}
	return true, nil
}

func (s *testStage) Send(ctx context.Context, stanza stravaganza.Stanza) error {
	s.sent = append(s.sent, stanza)
	return nil
}

func testMessage(t *testing.T) stravaganza.Stanza {
	t.Helper()
	msg, err := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.From, "romeo@localhost/orchard").
		WithAttribute(stravaganza.To, "julia@localhost").
		WithAttribute(stravaganza.ID, "m1").
		WithChild(
			stravaganza.NewBuilder("body").
				WithText("hi").
				Build(),
		).
		BuildMessage()
	require.NoError(t, err)
	return msg
}

func TestChain_DownstreamFlow(t *testing.T) {
	// given
	a := &testStage{name: "a", passDown: true}
	b := &testStage{name: "b"}
	Chain(a, b)

	// when
	_, err := a.Handle(context.Background(), testMessage(t))

	// then
	require.NoError(t, err)
	require.Len(t, a.handled, 1)
	require.Len(t, b.handled, 1)
}

func TestChain_UpstreamFlow(t *testing.T) {
	// given
	a := &testStage{name: "a"}
	b := &testStage{name: "b", replyUp: true}
	Chain(a, b)

	// when
	_, err := b.Handle(context.Background(), testMessage(t))

	// then
	require.NoError(t, err)
	require.Len(t, a.sent, 1) // b replies flow through a's sender
}

func TestChain_ThreeStages(t *testing.T) {
	// given
	a := &testStage{name: "a", passDown: true}
	b := &testStage{name: "b", passDown: true}
	c := &testStage{name: "c", replyUp: true}
	Chain(a, b, c)

	// when
	_, err := a.Handle(context.Background(), testMessage(t))

	// then
	require.NoError(t, err)
	require.Len(t, c.handled, 1)
	require.Len(t, b.sent, 1)
	require.Empty(t, a.sent) // b does not relay upstream traffic in this setup
}

func TestSinks_NotWired(t *testing.T) {
	// given
	s := &testStage{name: "detached", passDown: true}

	// when
	_, err := s.Handle(context.Background(), testMessage(t))

	// then
	require.ErrorIs(t, err, ErrNotWired)
}
