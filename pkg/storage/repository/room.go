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

package repository

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
)

// Room defines MUC room repository operations.
type Room interface {
	// UpsertRoom inserts a room entity into storage, or updates it if previously inserted.
	UpsertRoom(ctx context.Context, room *mucmodel.Room) error

	// FetchRoom retrieves a room entity from storage.
	FetchRoom(ctx context.Context, roomName string) (*mucmodel.Room, error)

	// RoomExists tells whether a room exists within storage.
	RoomExists(ctx context.Context, roomName string) (bool, error)

	// DeleteRoom deletes a room entity from storage,
	// cascading to members, messages, invites and configuration.
	DeleteRoom(ctx context.Context, roomName string) error

	// UpsertRoomMember inserts a room membership into storage, or updates it if previously inserted.
	UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error

	// FetchRoomMember retrieves a room membership from storage.
	FetchRoomMember(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error)

	// FetchRoomMembers retrieves all memberships associated to a room.
	FetchRoomMembers(ctx context.Context, roomName string) ([]*mucmodel.Member, error)

	// FetchRoomMembersByAffiliation retrieves all memberships of a room holding an affiliation.
	FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error)

	// DeleteRoomMembers deletes all memberships associated to a room.
	DeleteRoomMembers(ctx context.Context, roomName string) error

	// InsertRoomMessage appends a message stanza to a room history.
	InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error

	// FetchRoomMessages retrieves a room history in insertion order.
	FetchRoomMessages(ctx context.Context, roomName string) ([]*stravaganza.Message, error)

	// DeleteRoomMessages deletes all history messages associated to a room.
	DeleteRoomMessages(ctx context.Context, roomName string) error

	// UpsertRoomInvite inserts a mediated invitation record into storage.
	UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error

	// FetchRoomInvite retrieves a mediated invitation record from storage.
	FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error)

	// DeleteRoomInvite deletes a mediated invitation record from storage.
	DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error
}
