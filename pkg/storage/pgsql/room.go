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

package pgsqlrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2"
	xmppparser "github.com/waxwing-im/waxwing/pkg/parser"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
)

const (
	roomsTableName        = "rooms"
	roomMembersTableName  = "room_members"
	roomMessagesTableName = "room_messages"
	roomInvitesTableName  = "room_invites"
)

type pgSQLRoomRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *pgSQLRoomRep) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	cfgBytes, err := json.Marshal(room.Config)
	if err != nil {
		return err
	}
	_, err = sq.Insert(roomsTableName).
		Columns("name", "subject", "description", "config").
		Values(room.Name, room.Subject, room.Description, cfgBytes).
		Suffix("ON CONFLICT (name) DO UPDATE SET subject = $2, description = $3, config = $4").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) FetchRoom(ctx context.Context, roomName string) (*mucmodel.Room, error) {
	q := sq.Select("name", "subject", "description", "config").
		From(roomsTableName).
		Where(sq.Eq{"name": roomName})

	var room mucmodel.Room
	var cfgBytes []byte

	err := q.RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&room.Name, &room.Subject, &room.Description, &cfgBytes)
	switch err {
	case nil:
		if len(cfgBytes) > 0 {
			if err := json.Unmarshal(cfgBytes, &room.Config); err != nil {
				return nil, err
			}
		}
		return &room, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLRoomRep) RoomExists(ctx context.Context, roomName string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(roomsTableName).
		Where(sq.Eq{"name": roomName})

	var count int
	err := q.RunWith(r.conn).QueryRowContext(ctx).Scan(&count)
	switch err {
	case nil:
		return count > 0, nil
	default:
		return false, err
	}
}

func (r *pgSQLRoomRep) DeleteRoom(ctx context.Context, roomName string) error {
	if err := r.DeleteRoomMembers(ctx, roomName); err != nil {
		return err
	}
	if err := r.DeleteRoomMessages(ctx, roomName); err != nil {
		return err
	}
	if _, err := sq.Delete(roomInvitesTableName).
		Where(sq.Eq{"room_name": roomName}).
		RunWith(r.conn).
		ExecContext(ctx); err != nil {
		return err
	}
	_, err := sq.Delete(roomsTableName).
		Where(sq.Eq{"name": roomName}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error {
	_, err := sq.Insert(roomMembersTableName).
		Columns("room_name", "user_jid", "nickname", "affiliation", "role").
		Values(member.RoomName, member.UserJID, member.Nickname, string(member.Affiliation), string(member.Role)).
		Suffix("ON CONFLICT (room_name, user_jid) DO UPDATE SET nickname = $3, affiliation = $4, role = $5").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) FetchRoomMember(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error) {
	q := sq.Select("room_name", "user_jid", "nickname", "affiliation", "role").
		From(roomMembersTableName).
		Where(sq.And{sq.Eq{"room_name": roomName}, sq.Eq{"user_jid": userJID}})

	member, err := scanRoomMember(q.RunWith(r.conn).QueryRowContext(ctx))
	switch err {
	case nil:
		return member, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLRoomRep) FetchRoomMembers(ctx context.Context, roomName string) ([]*mucmodel.Member, error) {
	q := sq.Select("room_name", "user_jid", "nickname", "affiliation", "role").
		From(roomMembersTableName).
		Where(sq.Eq{"room_name": roomName}).
		OrderBy("user_jid")

	rows, err := q.RunWith(r.conn).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	return scanRoomMembers(rows)
}

func (r *pgSQLRoomRep) FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error) {
	q := sq.Select("room_name", "user_jid", "nickname", "affiliation", "role").
		From(roomMembersTableName).
		Where(sq.And{sq.Eq{"room_name": roomName}, sq.Eq{"affiliation": string(aff)}}).
		OrderBy("user_jid")

	rows, err := q.RunWith(r.conn).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	return scanRoomMembers(rows)
}

func (r *pgSQLRoomRep) DeleteRoomMembers(ctx context.Context, roomName string) error {
	_, err := sq.Delete(roomMembersTableName).
		Where(sq.Eq{"room_name": roomName}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error {
	_, err := sq.Insert(roomMessagesTableName).
		Columns("room_name", "message").
		Values(roomName, message.String()).
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) FetchRoomMessages(ctx context.Context, roomName string) ([]*stravaganza.Message, error) {
	q := sq.Select("message").
		From(roomMessagesTableName).
		Where(sq.Eq{"room_name": roomName}).
		OrderBy("id")

	rows, err := q.RunWith(r.conn).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	var retVal []*stravaganza.Message
	for rows.Next() {
		var rawXML string
		if err := rows.Scan(&rawXML); err != nil {
			return nil, err
		}
		msg, err := parseRoomMessage(rawXML)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, msg)
	}
	return retVal, rows.Err()
}

func (r *pgSQLRoomRep) DeleteRoomMessages(ctx context.Context, roomName string) error {
	_, err := sq.Delete(roomMessagesTableName).
		Where(sq.Eq{"room_name": roomName}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error {
	_, err := sq.Insert(roomInvitesTableName).
		Columns("room_name", "inviter_jid", "invitee_jid", "reason").
		Values(invite.RoomName, invite.InviterJID, invite.InviteeJID, invite.Reason).
		Suffix("ON CONFLICT (room_name, invitee_jid) DO UPDATE SET inviter_jid = $2, reason = $4").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error) {
	q := sq.Select("room_name", "inviter_jid", "invitee_jid", "reason").
		From(roomInvitesTableName).
		Where(sq.And{sq.Eq{"room_name": roomName}, sq.Eq{"invitee_jid": inviteeJID}})

	var inv mucmodel.Invite
	err := q.RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&inv.RoomName, &inv.InviterJID, &inv.InviteeJID, &inv.Reason)
	switch err {
	case nil:
		return &inv, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLRoomRep) DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error {
	_, err := sq.Delete(roomInvitesTableName).
		Where(sq.And{sq.Eq{"room_name": roomName}, sq.Eq{"invitee_jid": inviteeJID}}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func scanRoomMember(scanner rowScanner) (*mucmodel.Member, error) {
	var member mucmodel.Member
	var aff, role string

	if err := scanner.Scan(&member.RoomName, &member.UserJID, &member.Nickname, &aff, &role); err != nil {
		return nil, err
	}
	member.Affiliation = mucmodel.Affiliation(aff)
	member.Role = mucmodel.Role(role)
	return &member, nil
}

func scanRoomMembers(rows *sql.Rows) ([]*mucmodel.Member, error) {
	var retVal []*mucmodel.Member
	for rows.Next() {
		member, err := scanRoomMember(rows)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, member)
	}
	return retVal, rows.Err()
}

func parseRoomMessage(rawXML string) (*stravaganza.Message, error) {
	el, err := xmppparser.New(strings.NewReader(rawXML), xmppparser.DefaultMode, math.MaxInt).Parse()
	if err != nil {
		return nil, err
	}
	return stravaganza.NewBuilderFromElement(el).BuildMessage()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
