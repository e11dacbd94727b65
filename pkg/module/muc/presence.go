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

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

func (m *Muc) handlePresence(ctx context.Context, presence *stravaganza.Presence) error {
	if len(presence.ToJID().Resource()) == 0 {
		return errMalformedNick
	}
	if presence.Attribute(stravaganza.Type) == stravaganza.UnavailableType {
		return m.leaveRoom(ctx, presence)
	}
	return m.joinRoom(ctx, presence)
}

func (m *Muc) joinRoom(ctx context.Context, presence *stravaganza.Presence) error {
	var (
		roomName = presence.ToJID().Node()
		nick     = presence.ToJID().Resource()
		userJID  = presence.FromJID().ToBareJID().String()
	)
	var occupant *mucmodel.Member
	var members []*mucmodel.Member
	var history []*stravaganza.Message

	err := m.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		room, err := tx.FetchRoom(ctx, roomName)
		if err != nil {
			return err
		}
		switch {
		case room != nil:
			member, err := tx.FetchRoomMember(ctx, roomName, userJID)
			if err != nil {
				return err
			}
			switch {
			case member == nil:
				occupant = &mucmodel.Member{
					RoomName:    roomName,
					UserJID:     userJID,
					Nickname:    nick,
					Affiliation: mucmodel.MemberAffiliation,
					Role:        mucmodel.ParticipantRole,
				}
			case member.Affiliation == mucmodel.OutcastAffiliation:
				return errOutcast

			default:
				member.Nickname = nick
				member.Role = memberRole(member.Affiliation)
				occupant = member
			}

		case m.cfg.RoomAutoCreate:
			room = &mucmodel.Room{
				Name:   roomName,
				Config: map[string]string{},
			}
			if err := tx.UpsertRoom(ctx, room); err != nil {
				return err
			}
			occupant = &mucmodel.Member{
				RoomName:    roomName,
				UserJID:     userJID,
				Nickname:    nick,
				Affiliation: mucmodel.OwnerAffiliation,
				Role:        mucmodel.ModeratorRole,
			}

		default:
			return errRoomNotFound
		}
		if err := tx.UpsertRoomMember(ctx, occupant); err != nil {
			return err
		}
		members, err = tx.FetchRoomMembers(ctx, roomName)
		if err != nil {
			return err
		}
		history, err = tx.FetchRoomMessages(ctx, roomName)
		return err
	})
	if err != nil {
		return err
	}
	occupantJID := presence.ToJID().String()

	// self presence first, then existing occupants are told about the
	// joiner and the joiner about each of them
	if err := m.sender.Send(ctx, occupantPresence(occupantJID, userJID, occupant, "", true)); err != nil {
		return err
	}
	roomDomain := presence.ToJID().Domain()
	for _, member := range members {
		if member.UserJID == userJID || !member.IsJoined() {
			continue
		}
		if err := m.sender.Send(ctx, occupantPresence(occupantJID, member.UserJID, occupant, "", false)); err != nil {
			return err
		}
		memberOccupantJID := roomName + "@" + roomDomain + "/" + member.Nickname
		if err := m.sender.Send(ctx, occupantPresence(memberOccupantJID, userJID, member, "", false)); err != nil {
			return err
		}
	}
	joinerJID := presence.FromJID().String()
	for _, msg := range history {
		replayed, err := stravaganza.NewBuilderFromElement(msg).
			WithAttribute(stravaganza.To, joinerJID).
			BuildMessage()
		if err != nil {
			return err
		}
		if err := m.sender.Send(ctx, replayed); err != nil {
			return err
		}
	}
	return nil
}

func (m *Muc) leaveRoom(ctx context.Context, presence *stravaganza.Presence) error {
	var (
		roomName = presence.ToJID().Node()
		userJID  = presence.FromJID().ToBareJID().String()
	)
	var occupant *mucmodel.Member
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
		// affiliation survives the leave; only the session role is dropped
		member.Role = mucmodel.NoneRole
		if err := tx.UpsertRoomMember(ctx, member); err != nil {
			return err
		}
		occupant = member
		members, err = tx.FetchRoomMembers(ctx, roomName)
		return err
	})
	if err != nil {
		return err
	}
	occupantJID := roomName + "@" + presence.ToJID().Domain() + "/" + occupant.Nickname

	if err := m.sender.Send(ctx, occupantPresence(occupantJID, userJID, occupant, stravaganza.UnavailableType, true)); err != nil {
		return err
	}
	for _, member := range members {
		if member.UserJID == userJID || !member.IsJoined() {
			continue
		}
		if err := m.sender.Send(ctx, occupantPresence(occupantJID, member.UserJID, occupant, stravaganza.UnavailableType, false)); err != nil {
			return err
		}
	}
	return nil
}
