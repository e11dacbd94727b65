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
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

func (p *Pubsub) createNode(ctx context.Context, iq *stravaganza.IQ, pubSub stravaganza.Element, nodeName string) error {
	ownerJID := iq.FromJID().ToBareJID().String()

	err := p.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		exists, err := tx.NodeExists(ctx, nodeName)
		if err != nil {
			return err
		}
		if exists {
			return errNodeConflict
		}
		return tx.UpsertNode(ctx, &pubsubmodel.Node{
			Name:     nodeName,
			OwnerJID: ownerJID,
			Config:   configureForm(pubSub.Child("configure")),
		})
	})
	if err != nil {
		return err
	}
	// the assigned name is echoed back so the caller learns it when
	// the request carried none
	psb := stravaganza.NewBuilder("pubsub").
		WithAttribute(stravaganza.Namespace, pubSubNamespace).
		WithChild(
			stravaganza.NewBuilder("create").
				WithAttribute("node", nodeName).
				Build(),
		)
	return p.sender.Send(ctx, xmpputil.MakeResultIQ(iq, psb.Build()))
}

func (p *Pubsub) deleteNode(ctx context.Context, iq *stravaganza.IQ, nodeName string) error {
	userJID := iq.FromJID().ToBareJID().String()

	err := p.rep.InTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
		node, err := tx.FetchNode(ctx, nodeName)
		if err != nil {
			return err
		}
		if node == nil {
			return errNodeNotFound
		}
		if node.OwnerJID != userJID {
			return errNotOwner
		}
		if err := tx.DeleteNodeSubscriptions(ctx, nodeName); err != nil {
			return err
		}
		return tx.DeleteNode(ctx, nodeName)
	})
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, xmpputil.MakeResultIQ(iq, nil))
}

// configureForm extracts the node configuration key-value set out of an
// embedded jabber:x:data submit form.
func configureForm(configure stravaganza.Element) map[string]string {
	cfg := make(map[string]string)
	if configure == nil {
		return cfg
	}
	form := configure.ChildNamespace("x", dataFormNamespace)
	if form == nil {
		return cfg
	}
	for _, field := range form.Children("field") {
		fieldVar := field.Attribute("var")
		if len(fieldVar) == 0 {
			continue
		}
		if value := field.Child("value"); value != nil {
			cfg[fieldVar] = value.Text()
		}
	}
	return cfg
}
