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

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

func (p *Pubsub) publish(ctx context.Context, iq *stravaganza.IQ, pubSub stravaganza.Element, nodeName string) error {
	publisherJID := iq.FromJID().ToBareJID().String()

	items := pubSub.Child("publish").Children("item")
	if len(items) == 0 {
		return errBadPayload
	}
	// items lacking an id get an assigned one before any delivery
	var fullItems, strippedItems []stravaganza.Element
	for _, item := range items {
		itemID := item.Attribute("id")
		if len(itemID) == 0 {
			itemID = uuid.New().String()
		}
		fullItems = append(fullItems, stravaganza.NewBuilderFromElement(item).
			WithAttribute("id", itemID).
			Build(),
		)
		strippedItems = append(strippedItems, stravaganza.NewBuilder("item").
			WithAttribute("id", itemID).
			Build(),
		)
	}
	var node *pubsubmodel.Node
	var subs []*pubsubmodel.Subscription

	err := p.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		var err error

		node, err = tx.FetchNode(ctx, nodeName)
		if err != nil {
			return err
		}
		if node == nil {
			if !p.cfg.NodeAutoCreate {
				return errNodeNotFound
			}
			node = &pubsubmodel.Node{
				Name:     nodeName,
				OwnerJID: publisherJID,
				Config:   map[string]string{},
			}
			if err := tx.UpsertNode(ctx, node); err != nil {
				return err
			}
		}
		subs, err = tx.FetchNodeSubscriptions(ctx, nodeName)
		return err
	})
	if err != nil {
		return err
	}
	// the publisher reply echoes item ids only, regardless of the
	// node payload policy
	pb := stravaganza.NewBuilder("publish").
		WithAttribute("node", nodeName).
		WithChildren(strippedItems...)
	psb := stravaganza.NewBuilder("pubsub").
		WithAttribute(stravaganza.Namespace, pubSubNamespace).
		WithChild(pb.Build())
	if err := p.sender.Send(ctx, xmpputil.MakeResultIQ(iq, psb.Build())); err != nil {
		return err
	}
	notifiedItems := strippedItems
	if node.DeliverPayloads() {
		notifiedItems = fullItems
	}
	serviceJID := iq.ToJID().ToBareJID().String()
	for _, sub := range subs {
		notification, err := stravaganza.NewMessageBuilder().
			WithAttribute(stravaganza.From, serviceJID).
			WithAttribute(stravaganza.To, sub.JID).
			WithAttribute(stravaganza.ID, uuid.New().String()).
			WithChild(
				stravaganza.NewBuilder("event").
					WithAttribute(stravaganza.Namespace, pubSubEventNamespace).
					WithChild(
						stravaganza.NewBuilder("items").
							WithAttribute("node", nodeName).
							WithChildren(notifiedItems...).
							Build(),
					).
					Build(),
			).
			BuildMessage()
		if err != nil {
			return err
		}
		if err := p.sender.Send(ctx, notification); err != nil {
			return err
		}
	}
	return nil
}
