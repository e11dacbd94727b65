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

package xmpputil

import (
	"testing"

	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/stretchr/testify/require"
)

func TestMakeResultIQ(t *testing.T) {
	// given
	iq, err := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, "iq1234").
		WithAttribute(stravaganza.From, "romeo@localhost/orchard").
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, "http://jabber.org/protocol/pubsub").
				Build(),
		).
		BuildIQ()
	require.NoError(t, err)

	// when
	resIQ := MakeResultIQ(iq, nil)

	// then
	require.Equal(t, stravaganza.ResultType, resIQ.Type())
	require.Equal(t, "iq1234", resIQ.ID())
	require.Equal(t, "pubsub.localhost", resIQ.FromJID().String())
	require.Equal(t, "romeo@localhost/orchard", resIQ.ToJID().String())
}

func TestMakePresence(t *testing.T) {
	// given
	from, _ := jid.NewWithString("coven@conference.localhost/r", true)
	to, _ := jid.NewWithString("romeo@localhost/orchard", true)

	// when
	p := MakePresence(from, to, stravaganza.AvailableType, []stravaganza.Element{
		stravaganza.NewBuilder("x").
			WithAttribute(stravaganza.Namespace, "http://jabber.org/protocol/muc#user").
			Build(),
	})

	// then
	require.NotNil(t, p)
	require.Equal(t, from.String(), p.FromJID().String())
	require.Equal(t, to.String(), p.ToJID().String())
	require.Len(t, p.AllChildren(), 1)
}

func TestMakeErrorStanza(t *testing.T) {
	// given
	msg, err := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.ID, "m1").
		WithAttribute(stravaganza.From, "romeo@localhost/orchard").
		WithAttribute(stravaganza.To, "coven@conference.localhost").
		WithChild(stravaganza.NewBuilder("body").WithText("??").Build()).
		BuildMessage()
	require.NoError(t, err)

	// when
	errStanza := MakeErrorStanza(msg, stanzaerror.ItemNotFound)

	// then
	require.Equal(t, stravaganza.ErrorType, errStanza.Attribute(stravaganza.Type))
	require.Equal(t, "m1", errStanza.Attribute(stravaganza.ID))
	require.Equal(t, "coven@conference.localhost", errStanza.Attribute(stravaganza.From))
	require.Equal(t, "romeo@localhost/orchard", errStanza.Attribute(stravaganza.To))

	errEl := errStanza.Child("error")
	require.NotNil(t, errEl)
	require.NotNil(t, errEl.Child("item-not-found"))
}
