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

package memoryrepository

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
)

func (r *Repository) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertRoom(ctx, room)
}

func (r *Repository) FetchRoom(ctx context.Context, roomName string) (*mucmodel.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoom(ctx, roomName)
}

func (r *Repository) RoomExists(ctx context.Context, roomName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.roomExists(ctx, roomName)
}

func (r *Repository) DeleteRoom(ctx context.Context, roomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteRoom(ctx, roomName)
}

func (r *Repository) UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertRoomMember(ctx, member)
}

func (r *Repository) FetchRoomMember(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoomMember(ctx, roomName, userJID)
}

func (r *Repository) FetchRoomMembers(ctx context.Context, roomName string) ([]*mucmodel.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoomMembers(ctx, roomName)
}

func (r *Repository) FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoomMembersByAffiliation(ctx, roomName, aff)
}

func (r *Repository) DeleteRoomMembers(ctx context.Context, roomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteRoomMembers(ctx, roomName)
}

func (r *Repository) InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.insertRoomMessage(ctx, roomName, message)
}

func (r *Repository) FetchRoomMessages(ctx context.Context, roomName string) ([]*stravaganza.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoomMessages(ctx, roomName)
}

func (r *Repository) DeleteRoomMessages(ctx context.Context, roomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteRoomMessages(ctx, roomName)
}

func (r *Repository) UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertRoomInvite(ctx, invite)
}

func (r *Repository) FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchRoomInvite(ctx, roomName, inviteeJID)
}

func (r *Repository) DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteRoomInvite(ctx, roomName, inviteeJID)
}

func (t *memTx) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	return t.d.upsertRoom(ctx, room)
}

func (t *memTx) FetchRoom(ctx context.Context, roomName string) (*mucmodel.Room, error) {
	return t.d.fetchRoom(ctx, roomName)
}

func (t *memTx) RoomExists(ctx context.Context, roomName string) (bool, error) {
	return t.d.roomExists(ctx, roomName)
}

func (t *memTx) DeleteRoom(ctx context.Context, roomName string) error {
	return t.d.deleteRoom(ctx, roomName)
}

func (t *memTx) UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error {
	return t.d.upsertRoomMember(ctx, member)
}

func (t *memTx) FetchRoomMember(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error) {
	return t.d.fetchRoomMember(ctx, roomName, userJID)
}

func (t *memTx) FetchRoomMembers(ctx context.Context, roomName string) ([]*mucmodel.Member, error) {
	return t.d.fetchRoomMembers(ctx, roomName)
}

func (t *memTx) FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error) {
	return t.d.fetchRoomMembersByAffiliation(ctx, roomName, aff)
}

func (t *memTx) DeleteRoomMembers(ctx context.Context, roomName string) error {
	return t.d.deleteRoomMembers(ctx, roomName)
}

func (t *memTx) InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error {
	return t.d.insertRoomMessage(ctx, roomName, message)
}

func (t *memTx) FetchRoomMessages(ctx context.Context, roomName string) ([]*stravaganza.Message, error) {
	return t.d.fetchRoomMessages(ctx, roomName)
}

func (t *memTx) DeleteRoomMessages(ctx context.Context, roomName string) error {
	return t.d.deleteRoomMessages(ctx, roomName)
}

func (t *memTx) UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error {
	return t.d.upsertRoomInvite(ctx, invite)
}

func (t *memTx) FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error) {
	return t.d.fetchRoomInvite(ctx, roomName, inviteeJID)
}

func (t *memTx) DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error {
	return t.d.deleteRoomInvite(ctx, roomName, inviteeJID)
}

func (d *memData) upsertRoom(_ context.Context, room *mucmodel.Room) error {
	d.rooms[room.Name] = cloneRoom(room)
	return nil
}

func (d *memData) fetchRoom(_ context.Context, roomName string) (*mucmodel.Room, error) {
	room := d.rooms[roomName]
	if room == nil {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (d *memData) roomExists(_ context.Context, roomName string) (bool, error) {
	_, ok := d.rooms[roomName]
	return ok, nil
}

func (d *memData) deleteRoom(_ context.Context, roomName string) error {
	delete(d.rooms, roomName)
	delete(d.members, roomName)
	delete(d.messages, roomName)
	delete(d.invites, roomName)
	return nil
}

func (d *memData) upsertRoomMember(_ context.Context, member *mucmodel.Member) error {
	mm := d.members[member.RoomName]
	if mm == nil {
		mm = make(map[string]*mucmodel.Member)
		d.members[member.RoomName] = mm
	}
	m := *member
	mm[member.UserJID] = &m
	return nil
}

func (d *memData) fetchRoomMember(_ context.Context, roomName, userJID string) (*mucmodel.Member, error) {
	m := d.members[roomName][userJID]
	if m == nil {
		return nil, nil
	}
	ret := *m
	return &ret, nil
}

func (d *memData) fetchRoomMembers(_ context.Context, roomName string) ([]*mucmodel.Member, error) {
	mm := d.members[roomName]
	ret := make([]*mucmodel.Member, 0, len(mm))
	for _, m := range mm {
		member := *m
		ret = append(ret, &member)
	}
	return ret, nil
}

func (d *memData) fetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error) {
	all, _ := d.fetchRoomMembers(ctx, roomName)
	var ret []*mucmodel.Member
	for _, m := range all {
		if m.Affiliation != aff {
			continue
		}
		ret = append(ret, m)
	}
	return ret, nil
}

func (d *memData) deleteRoomMembers(_ context.Context, roomName string) error {
	delete(d.members, roomName)
	return nil
}

func (d *memData) insertRoomMessage(_ context.Context, roomName string, message *stravaganza.Message) error {
	d.messages[roomName] = append(d.messages[roomName], message)
	return nil
}

func (d *memData) fetchRoomMessages(_ context.Context, roomName string) ([]*stravaganza.Message, error) {
	msgs := d.messages[roomName]
	ret := make([]*stravaganza.Message, len(msgs))
	copy(ret, msgs)
	return ret, nil
}

func (d *memData) deleteRoomMessages(_ context.Context, roomName string) error {
	delete(d.messages, roomName)
	return nil
}

func (d *memData) upsertRoomInvite(_ context.Context, invite *mucmodel.Invite) error {
	im := d.invites[invite.RoomName]
	if im == nil {
		im = make(map[string]*mucmodel.Invite)
		d.invites[invite.RoomName] = im
	}
	inv := *invite
	im[invite.InviteeJID] = &inv
	return nil
}

func (d *memData) fetchRoomInvite(_ context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error) {
	inv := d.invites[roomName][inviteeJID]
	if inv == nil {
		return nil, nil
	}
	ret := *inv
	return &ret, nil
}

func (d *memData) deleteRoomInvite(_ context.Context, roomName, inviteeJID string) error {
	delete(d.invites[roomName], inviteeJID)
	return nil
}
