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

package measuredrepository

import (
	"context"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

type measuredRoomRep struct {
	rep  repository.Room
	inTx bool
}

func (m *measuredRoomRep) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	t0 := time.Now()
	err := m.rep.UpsertRoom(ctx, room)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) FetchRoom(ctx context.Context, roomName string) (room *mucmodel.Room, err error) {
	t0 := time.Now()
	room, err = m.rep.FetchRoom(ctx, roomName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) RoomExists(ctx context.Context, roomName string) (ok bool, err error) {
	t0 := time.Now()
	ok, err = m.rep.RoomExists(ctx, roomName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) DeleteRoom(ctx context.Context, roomName string) error {
	t0 := time.Now()
	err := m.rep.DeleteRoom(ctx, roomName)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error {
	t0 := time.Now()
	err := m.rep.UpsertRoomMember(ctx, member)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) FetchRoomMember(ctx context.Context, roomName, userJID string) (member *mucmodel.Member, err error) {
	t0 := time.Now()
	member, err = m.rep.FetchRoomMember(ctx, roomName, userJID)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) FetchRoomMembers(ctx context.Context, roomName string) (members []*mucmodel.Member, err error) {
	t0 := time.Now()
	members, err = m.rep.FetchRoomMembers(ctx, roomName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) (members []*mucmodel.Member, err error) {
	t0 := time.Now()
	members, err = m.rep.FetchRoomMembersByAffiliation(ctx, roomName, aff)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) DeleteRoomMembers(ctx context.Context, roomName string) error {
	t0 := time.Now()
	err := m.rep.DeleteRoomMembers(ctx, roomName)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error {
	t0 := time.Now()
	err := m.rep.InsertRoomMessage(ctx, roomName, message)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) FetchRoomMessages(ctx context.Context, roomName string) (messages []*stravaganza.Message, err error) {
	t0 := time.Now()
	messages, err = m.rep.FetchRoomMessages(ctx, roomName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) DeleteRoomMessages(ctx context.Context, roomName string) error {
	t0 := time.Now()
	err := m.rep.DeleteRoomMessages(ctx, roomName)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error {
	t0 := time.Now()
	err := m.rep.UpsertRoomInvite(ctx, invite)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredRoomRep) FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (invite *mucmodel.Invite, err error) {
	t0 := time.Now()
	invite, err = m.rep.FetchRoomInvite(ctx, roomName, inviteeJID)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredRoomRep) DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error {
	t0 := time.Now()
	err := m.rep.DeleteRoomInvite(ctx, roomName, inviteeJID)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}
