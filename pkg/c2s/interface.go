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

package c2s

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/waxwing-im/waxwing/pkg/router/stream"
	"github.com/waxwing-im/waxwing/pkg/transport"
)

type session interface {
	StreamID() string
	SetFromJID(ssJID *jid.JID)

	Send(ctx context.Context, element stravaganza.Element) error
	Receive() (stravaganza.Element, error)

	OpenStream(ctx context.Context) error
	Close(ctx context.Context) error

	Reset(tr transport.Transport) error
}

type localRouter interface {
	Route(stanza stravaganza.Stanza, username, resource string) error

	Register(stm stream.C2S) error
	Bind(id stream.C2SID) (stream.C2S, error)
	Unregister(stm stream.C2S) error

	Stream(username, resource string) stream.C2S
	ConnectedResources(username string) []stream.C2S

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
