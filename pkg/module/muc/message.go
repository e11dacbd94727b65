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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

func (m *Muc) handleMessage(ctx context.Context, message *stravaganza.Message) error {
	if x := message.ChildNamespace("x", mucUserNamespace); x != nil {
		switch {
		case x.Child("invite") != nil:
			return m.inviteUser(ctx, message, x.Child("invite"))
		case x.Child("decline") != nil:
			return m.declineInvite(ctx, message, x.Child("decline"))
		}
		return errBadPayload
	}
	if message.Attribute(stravaganza.Type) == stravaganza.GroupChatType {
		return m.sendToRoom(ctx, message)
	}
	return errBadPayload
}

func (m *Muc) sendToRoom(ctx context.Context, message *stravaganza.Message) error {
	var (
		roomName = message.ToJID().Node()
		roomJID  = message.ToJID().ToBareJID().String()
		userJID  = message.FromJID().ToBareJID().String()
	)
	var nick string
	var members []*mucmodel.Member

	err := m.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		room, err := tx.FetchRoom(ctx, roomName)
		if err != nil {
			return err
		}
		if room == nil {
			return errRoomNotFound
		}
		member, err := tx.FetchRoomMember(ctx, roomName, userJID)
		if err != nil {
			return err
		}
		if member == nil || !member.IsJoined() {
			return errNotAMember
		}
		nick = member.Nickname

		stamped, err := stravaganza.NewBuilderFromElement(message).
			WithAttribute(stravaganza.From, roomJID+"/"+nick).
			WithAttribute(stravaganza.To, roomJID).
			WithAttribute(stravaganza.ID, uuid.New().String()).
			BuildMessage()
		if err != nil {
			return err
		}
		if err := tx.InsertRoomMessage(ctx, roomName, xmpputil.MakeDelayStanza(stamped, time.Now(), roomJID)); err != nil {
			return err
		}
		members, err = tx.FetchRoomMembers(ctx, roomName)
		return err
	})
	if err != nil {
		return err
	}
	// the sender gets its own reflected copy back
	for _, member := range members {
		if !member.IsJoined() {
			continue
		}
		reflected, err := stravaganza.NewBuilderFromElement(message).
			WithAttribute(stravaganza.From, roomJID+"/"+nick).
			WithAttribute(stravaganza.To, member.UserJID).
			WithAttribute(stravaganza.ID, uuid.New().String()).
			BuildMessage()
		if err != nil {
			return err
		}
		if err := m.sender.Send(ctx, reflected); err != nil {
			return err
		}
	}
	return nil
}

func (m *Muc) inviteUser(ctx context.Context, message *stravaganza.Message, invite stravaganza.Element) error {
	var (
		roomName   = message.ToJID().Node()
		roomJID    = message.ToJID().ToBareJID().String()
		inviterJID = message.FromJID().ToBareJID().String()
		inviteeJID = invite.Attribute(stravaganza.To)
	)
	if len(inviteeJID) == 0 {
		return errBadPayload
	}
	var reason string
	if rs := invite.Child("reason"); rs != nil {
		reason = rs.Text()
	}
	err := m.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		room, err := tx.FetchRoom(ctx, roomName)
		if err != nil {
			return err
		}
		if room == nil {
			return errRoomNotFound
		}
		member, err := tx.FetchRoomMember(ctx, roomName, inviterJID)
		if err != nil {
			return err
		}
		if member == nil || !member.IsJoined() {
			return errNotAMember
		}
		return tx.UpsertRoomInvite(ctx, &mucmodel.Invite{
			RoomName:   roomName,
			InviterJID: inviterJID,
			InviteeJID: inviteeJID,
			Reason:     reason,
		})
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, invitationMessage(roomJID, inviteeJID, inviterJID, reason))
}

func (m *Muc) declineInvite(ctx context.Context, message *stravaganza.Message, decline stravaganza.Element) error {
	var (
		roomName   = message.ToJID().Node()
		roomJID    = message.ToJID().ToBareJID().String()
		inviteeJID = message.FromJID().ToBareJID().String()
	)
	var reason string
	if rs := decline.Child("reason"); rs != nil {
		reason = rs.Text()
	}
	var inviterJID string

	err := m.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		invite, err := tx.FetchRoomInvite(ctx, roomName, inviteeJID)
		if err != nil {
			return err
		}
		if invite == nil {
			return errInviteNotFound
		}
		inviterJID = invite.InviterJID
		return tx.DeleteRoomInvite(ctx, roomName, inviteeJID)
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, declineMessage(roomJID, inviterJID, inviteeJID, reason))
}
