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
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const delayTimeFormat = "2006-01-02T15:04:05.000Z"

// MakeResultIQ synthesizes a result stanza for iq, swapping from/to and
// copying the request id.
func MakeResultIQ(iq *stravaganza.IQ, queryChild stravaganza.Element) *stravaganza.IQ {
	b := iq.ResultBuilder()
	if queryChild != nil {
		b.WithChild(queryChild)
	}
	resIQ, _ := b.BuildIQ()
	return resIQ
}

// MakePresence builds a presence stanza of type typ carrying the passed children.
func MakePresence(fromJID, toJID *jid.JID, typ string, children []stravaganza.Element) *stravaganza.Presence {
	pr, _ := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithAttribute(stravaganza.Type, typ).
		WithChildren(children...).
		BuildPresence()
	return pr
}

// MakeErrorStanza synthesizes an error reply for stanza: from/to swapped,
// id copied, type set to 'error' and the proper error condition attached.
func MakeErrorStanza(stanza stravaganza.Stanza, errReason stanzaerror.Reason) stravaganza.Stanza {
	errStanza, _ := stanzaerror.E(errReason, stanza).
		Stanza(false)
	return errStanza
}

// MakeErrorStanzaWithApplicationElement behaves like MakeErrorStanza
// attaching an extra application defined condition element.
func MakeErrorStanzaWithApplicationElement(stanza stravaganza.Stanza, applicationElement stravaganza.Element, errReason stanzaerror.Reason) stravaganza.Stanza {
	se := stanzaerror.E(errReason, stanza)
	se.ApplicationElement = applicationElement

	errStanza, _ := se.Stanza(false)
	return errStanza
}

// MakeDelayStanza returns a copy of stanza with an urn:xmpp:delay child
// stamped at the passed time.
func MakeDelayStanza(stanza stravaganza.Stanza, stamp time.Time, from string) *stravaganza.Message {
	sb := stravaganza.NewBuilderFromElement(stanza)
	sb.WithChild(
		stravaganza.NewBuilder("delay").
			WithAttribute(stravaganza.Namespace, "urn:xmpp:delay").
			WithAttribute(stravaganza.From, from).
			WithAttribute("stamp", stamp.UTC().Format(delayTimeFormat)).
			Build(),
	)
	dMsg, _ := sb.BuildMessage()
	return dMsg
}
