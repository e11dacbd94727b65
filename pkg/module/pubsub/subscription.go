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

package pubsub

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

func (p *Pubsub) subscribe(ctx context.Context, iq *stravaganza.IQ, pubSub stravaganza.Element, nodeName string) error {
	subJID, err := matchingBareJID(iq, pubSub.Child("subscribe"))
	if err != nil {
		return err
	}
	err = p.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		exists, err := tx.NodeExists(ctx, nodeName)
		if err != nil {
			return err
		}
		if !exists {
			return errNodeNotFound
		}
		return tx.UpsertNodeSubscription(ctx, &pubsubmodel.Subscription{
			NodeName:    nodeName,
			JID:         subJID,
			Affiliation: pubsubmodel.MemberAffiliation,
		})
	})
	if err != nil {
		return err
	}
	psb := stravaganza.NewBuilder("pubsub").
		WithAttribute(stravaganza.Namespace, pubSubNamespace).
		WithChild(
			stravaganza.NewBuilder("subscription").
				WithAttribute("node", nodeName).
				WithAttribute("jid", subJID).
				WithAttribute("subscription", "subscribed").
				Build(),
		)
	return p.sender.Send(ctx, xmpputil.MakeResultIQ(iq, psb.Build()))
}

func (p *Pubsub) unsubscribe(ctx context.Context, iq *stravaganza.IQ, pubSub stravaganza.Element, nodeName string) error {
	subJID, err := matchingBareJID(iq, pubSub.Child("unsubscribe"))
	if err != nil {
		return err
	}
	err = p.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		exists, err := tx.NodeExists(ctx, nodeName)
		if err != nil {
			return err
		}
		if !exists {
			return errNodeNotFound
		}
		sub, err := tx.FetchNodeSubscription(ctx, nodeName, subJID)
		if err != nil {
			return err
		}
		if sub == nil {
			return errNotSubscribed
		}
		return tx.DeleteNodeSubscription(ctx, nodeName, subJID)
	})
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, xmpputil.MakeResultIQ(iq, nil))
}

// matchingBareJID validates that the request jid argument bare-matches
// the stanza sender, returning the bare identity.
func matchingBareJID(iq *stravaganza.IQ, request stravaganza.Element) (string, error) {
	reqJID, err := jid.NewWithString(request.Attribute("jid"), false)
	if err != nil {
		return "", errInvalidJID
	}
	if !reqJID.MatchesWithOptions(iq.FromJID(), jid.MatchesBare) {
		return "", errInvalidJID
	}
	return reqJID.ToBareJID().String(), nil
}
