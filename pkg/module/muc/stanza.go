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

package muc

import (
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
)

const selfPresenceStatusCode = "110"

// occupantItemElement builds the muc#user item element describing member.
func occupantItemElement(member *mucmodel.Member, includeUserJID bool) stravaganza.Element {
	ib := stravaganza.NewBuilder("item").
		WithAttribute("affiliation", string(member.Affiliation)).
		WithAttribute("role", string(member.Role)).
		WithAttribute("nick", member.Nickname)
	if includeUserJID {
		ib.WithAttribute("jid", member.UserJID)
	}
	return ib.Build()
}

// occupantPresence builds an occupant presence notification carrying the
// member item; a self notification additionally carries status code 110.
func occupantPresence(from, to string, member *mucmodel.Member, typ string, self bool) *stravaganza.Presence {
	xb := stravaganza.NewBuilder("x").
		WithAttribute(stravaganza.Namespace, mucUserNamespace).
		WithChild(occupantItemElement(member, self))
	if self {
		xb.WithChild(
			stravaganza.NewBuilder("status").
				WithAttribute("code", selfPresenceStatusCode).
				Build(),
		)
	}
	pb := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, to).
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithChild(xb.Build())
	if len(typ) > 0 {
		pb.WithAttribute(stravaganza.Type, typ)
	}
	pr, _ := pb.BuildPresence()
	return pr
}

// invitationMessage builds the mediated invitation relayed to the invitee.
func invitationMessage(roomJID, inviteeJID, inviterJID, reason string) *stravaganza.Message {
	ib := stravaganza.NewBuilder("invite").
		WithAttribute(stravaganza.From, inviterJID)
	if len(reason) > 0 {
		ib.WithChild(
			stravaganza.NewBuilder("reason").WithText(reason).Build(),
		)
	}
	msg, _ := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.From, roomJID).
		WithAttribute(stravaganza.To, inviteeJID).
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithChild(
			stravaganza.NewBuilder("x").
				WithAttribute(stravaganza.Namespace, mucUserNamespace).
				WithChild(ib.Build()).
				Build(),
		).
		BuildMessage()
	return msg
}

// declineMessage builds the decline notification relayed to the inviter.
func declineMessage(roomJID, inviterJID, inviteeJID, reason string) *stravaganza.Message {
	db := stravaganza.NewBuilder("decline").
		WithAttribute(stravaganza.From, inviteeJID)
	if len(reason) > 0 {
		db.WithChild(
			stravaganza.NewBuilder("reason").WithText(reason).Build(),
		)
	}
	msg, _ := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.From, roomJID).
		WithAttribute(stravaganza.To, inviterJID).
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithChild(
			stravaganza.NewBuilder("x").
				WithAttribute(stravaganza.Namespace, mucUserNamespace).
				WithChild(db.Build()).
				Build(),
		).
		BuildMessage()
	return msg
}

// memberRole returns the session role derived from a member affiliation.
func memberRole(aff mucmodel.Affiliation) mucmodel.Role {
	switch aff {
	case mucmodel.OwnerAffiliation, mucmodel.AdminAffiliation:
		return mucmodel.ModeratorRole
	default:
		return mucmodel.ParticipantRole
	}
}
