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
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

func (m *Muc) handleIQ(ctx context.Context, iq *stravaganza.IQ) error {
	query := iq.ChildNamespace("query", mucAdminNamespace)
	if query == nil || !iq.IsGet() {
		return errBadPayload
	}
	return m.getAffiliations(ctx, iq, query)
}

func (m *Muc) getAffiliations(ctx context.Context, iq *stravaganza.IQ, query stravaganza.Element) error {
	item := query.Child("item")
	if item == nil {
		return errBadPayload
	}
	aff := mucmodel.Affiliation(item.Attribute("affiliation"))
	if !aff.IsValid() || aff == mucmodel.NoneAffiliation {
		return errBadPayload
	}
	var (
		roomName = iq.ToJID().Node()
		userJID  = iq.FromJID().ToBareJID().String()
	)
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
		if member == nil {
			return errNotAMember
		}
		switch member.Affiliation {
		case mucmodel.OwnerAffiliation, mucmodel.AdminAffiliation:
			break
		default:
			return errNotPrivileged
		}
		members, err = tx.FetchRoomMembersByAffiliation(ctx, roomName, aff)
		return err
	})
	if err != nil {
		return err
	}
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, mucAdminNamespace)
	for _, member := range members {
		qb.WithChild(
			stravaganza.NewBuilder("item").
				WithAttribute("affiliation", string(member.Affiliation)).
				WithAttribute("jid", member.UserJID).
				WithAttribute("nick", member.Nickname).
				Build(),
		)
	}
	return m.sender.Send(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
}
