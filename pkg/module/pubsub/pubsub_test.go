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
	"sync"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/stretchr/testify/require"
	"github.com/waxwing-im/waxwing/pkg/host"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	memoryrepository "github.com/waxwing-im/waxwing/pkg/storage/memory"
)

type senderMock struct {
	mu   sync.Mutex
	sent []stravaganza.Stanza
}

func (s *senderMock) Send(_ context.Context, stanza stravaganza.Stanza) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, stanza)
	return nil
}

func (s *senderMock) all() []stravaganza.Stanza {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func TestPubsub_CreateNode(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.From, "ortuman@localhost/yard").
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithAttribute(stravaganza.ID, "iq_1").
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, pubSubNamespace).
				WithChild(
					stravaganza.NewBuilder("create").
						WithAttribute("node", "princely_musings").
						Build(),
				).
				WithChild(
					stravaganza.NewBuilder("configure").
						WithChild(
							stravaganza.NewBuilder("x").
								WithAttribute(stravaganza.Namespace, dataFormNamespace).
								WithAttribute("type", "submit").
								WithChild(
									stravaganza.NewBuilder("field").
										WithAttribute("var", pubsubmodel.DeliverPayloadsOption).
										WithChild(
											stravaganza.NewBuilder("value").WithText("1").Build(),
										).
										Build(),
								).
								Build(),
						).
						Build(),
				).
				Build(),
		).
		BuildIQ()

	// when
	err := p.Handle(context.Background(), iq)

	// then
	require.Nil(t, err)

	node, err := rep.FetchNode(context.Background(), "princely_musings")
	require.Nil(t, err)
	require.NotNil(t, node)
	require.Equal(t, "ortuman@localhost", node.OwnerJID)
	require.True(t, node.DeliverPayloads())

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "result", sent[0].Attribute(stravaganza.Type))

	create := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("create")
	require.NotNil(t, create)
	require.Equal(t, "princely_musings", create.Attribute("node"))
}

func TestPubsub_CreateNodeGeneratesName(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "ortuman@localhost/yard", "iq_1",
		stravaganza.NewBuilder("create").Build(),
	))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 1)

	create := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("create")
	require.NotNil(t, create)

	nodeName := create.Attribute("node")
	require.True(t, len(nodeName) > 0)

	exists, err := rep.NodeExists(context.Background(), nodeName)
	require.Nil(t, err)
	require.True(t, exists)
}

func TestPubsub_CreateNodeConflict(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "romeo@localhost/balcony", "iq_1",
		stravaganza.NewBuilder("create").WithAttribute("node", "princely_musings").Build(),
	))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("conflict"))
}

func TestPubsub_DeleteNode(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)
	seedSubscription(t, rep, "princely_musings", "romeo@localhost")

	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.From, "ortuman@localhost/yard").
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithAttribute(stravaganza.ID, "iq_1").
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, pubSubOwnerNamespace).
				WithChild(
					stravaganza.NewBuilder("delete").
						WithAttribute("node", "princely_musings").
						Build(),
				).
				Build(),
		).
		BuildIQ()

	// when
	err := p.Handle(context.Background(), iq)

	// then
	require.Nil(t, err)

	exists, err := rep.NodeExists(context.Background(), "princely_musings")
	require.Nil(t, err)
	require.False(t, exists)

	sub, err := rep.FetchNodeSubscription(context.Background(), "princely_musings", "romeo@localhost")
	require.Nil(t, err)
	require.Nil(t, sub)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "result", sent[0].Attribute(stravaganza.Type))
}

func TestPubsub_DeleteNodeNotOwner(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.From, "romeo@localhost/balcony").
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithAttribute(stravaganza.ID, "iq_1").
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, pubSubOwnerNamespace).
				WithChild(
					stravaganza.NewBuilder("delete").
						WithAttribute("node", "princely_musings").
						Build(),
				).
				Build(),
		).
		BuildIQ()

	// when
	err := p.Handle(context.Background(), iq)

	// then
	require.Nil(t, err)

	exists, err := rep.NodeExists(context.Background(), "princely_musings")
	require.Nil(t, err)
	require.True(t, exists)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("forbidden"))
}

func TestPubsub_DeleteUnknownNode(t *testing.T) {
	// given
	p, _, sn := testPubsub(t, true)

	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.From, "ortuman@localhost/yard").
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithAttribute(stravaganza.ID, "iq_1").
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, pubSubOwnerNamespace).
				WithChild(
					stravaganza.NewBuilder("delete").
						WithAttribute("node", "nonexistent").
						Build(),
				).
				Build(),
		).
		BuildIQ()

	// when
	err := p.Handle(context.Background(), iq)

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("item-not-found"))
}

func TestPubsub_Subscribe(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "romeo@localhost/balcony", "iq_1",
		stravaganza.NewBuilder("subscribe").
			WithAttribute("node", "princely_musings").
			WithAttribute("jid", "romeo@localhost").
			Build(),
	))

	// then
	require.Nil(t, err)

	sub, err := rep.FetchNodeSubscription(context.Background(), "princely_musings", "romeo@localhost")
	require.Nil(t, err)
	require.NotNil(t, sub)

	sent := sn.all()
	require.Len(t, sent, 1)

	subscription := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("subscription")
	require.NotNil(t, subscription)
	require.Equal(t, "subscribed", subscription.Attribute("subscription"))
	require.Equal(t, "romeo@localhost", subscription.Attribute("jid"))
}

func TestPubsub_SubscribeJIDMismatch(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "romeo@localhost/balcony", "iq_1",
		stravaganza.NewBuilder("subscribe").
			WithAttribute("node", "princely_musings").
			WithAttribute("jid", "juliet@localhost").
			Build(),
	))

	// then
	require.Nil(t, err)

	sub, err := rep.FetchNodeSubscription(context.Background(), "princely_musings", "juliet@localhost")
	require.Nil(t, err)
	require.Nil(t, sub)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("bad-request"))
	require.NotNil(t, sent[0].Child("error").ChildNamespace("invalid-jid", pubSubErrorsNamespace))
}

func TestPubsub_Unsubscribe(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)
	seedSubscription(t, rep, "princely_musings", "romeo@localhost")

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "romeo@localhost/balcony", "iq_1",
		stravaganza.NewBuilder("unsubscribe").
			WithAttribute("node", "princely_musings").
			WithAttribute("jid", "romeo@localhost").
			Build(),
	))

	// then
	require.Nil(t, err)

	sub, err := rep.FetchNodeSubscription(context.Background(), "princely_musings", "romeo@localhost")
	require.Nil(t, err)
	require.Nil(t, sub)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "result", sent[0].Attribute(stravaganza.Type))
}

func TestPubsub_UnsubscribeNotSubscribed(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	// when
	err := p.Handle(context.Background(), pubSubIQ(t, "romeo@localhost/balcony", "iq_1",
		stravaganza.NewBuilder("unsubscribe").
			WithAttribute("node", "princely_musings").
			WithAttribute("jid", "romeo@localhost").
			Build(),
	))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("unexpected-request"))
	require.NotNil(t, sent[0].Child("error").ChildNamespace("not-subscribed", pubSubErrorsNamespace))
}

func TestPubsub_PublishStripsPayloads(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)
	seedSubscription(t, rep, "princely_musings", "romeo@localhost")

	// when
	err := p.Handle(context.Background(), publishIQ(t, "ortuman@localhost/yard", "princely_musings", "item_1"))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 2)

	reply := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("publish")
	require.NotNil(t, reply)
	require.Equal(t, "item_1", reply.Child("item").Attribute("id"))
	require.Len(t, reply.Child("item").AllChildren(), 0)

	notification := sent[1]
	require.Equal(t, "pubsub.localhost", notification.Attribute(stravaganza.From))
	require.Equal(t, "romeo@localhost", notification.Attribute(stravaganza.To))

	items := notification.ChildNamespace("event", pubSubEventNamespace).Child("items")
	require.NotNil(t, items)
	require.Equal(t, "princely_musings", items.Attribute("node"))
	require.Equal(t, "item_1", items.Child("item").Attribute("id"))
	require.Len(t, items.Child("item").AllChildren(), 0)
}

func TestPubsub_PublishDeliversPayloads(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", map[string]string{
		pubsubmodel.DeliverPayloadsOption: "1",
	})
	seedSubscription(t, rep, "princely_musings", "romeo@localhost")

	// when
	err := p.Handle(context.Background(), publishIQ(t, "ortuman@localhost/yard", "princely_musings", "item_1"))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 2)

	// the publisher reply stays payload-stripped regardless of the policy
	reply := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("publish")
	require.Len(t, reply.Child("item").AllChildren(), 0)

	items := sent[1].ChildNamespace("event", pubSubEventNamespace).Child("items")
	entry := items.Child("item").Child("entry")
	require.NotNil(t, entry)
	require.Equal(t, "Soliloquy", entry.Child("title").Text())
}

func TestPubsub_PublishAssignsItemID(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	seedNode(t, rep, "princely_musings", "ortuman@localhost", nil)

	// when
	err := p.Handle(context.Background(), publishIQ(t, "ortuman@localhost/yard", "princely_musings", ""))

	// then
	require.Nil(t, err)

	sent := sn.all()
	require.Len(t, sent, 1)

	reply := sent[0].ChildNamespace("pubsub", pubSubNamespace).Child("publish")
	require.True(t, len(reply.Child("item").Attribute("id")) > 0)
}

func TestPubsub_PublishAutoCreatesNode(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, true)

	// when
	err := p.Handle(context.Background(), publishIQ(t, "ortuman@localhost/yard", "princely_musings", "item_1"))

	// then
	require.Nil(t, err)

	node, err := rep.FetchNode(context.Background(), "princely_musings")
	require.Nil(t, err)
	require.NotNil(t, node)
	require.Equal(t, "ortuman@localhost", node.OwnerJID)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "result", sent[0].Attribute(stravaganza.Type))
}

func TestPubsub_PublishUnknownNodeNotAllowed(t *testing.T) {
	// given
	p, rep, sn := testPubsub(t, false)

	// when
	err := p.Handle(context.Background(), publishIQ(t, "ortuman@localhost/yard", "princely_musings", "item_1"))

	// then
	require.Nil(t, err)

	exists, err := rep.NodeExists(context.Background(), "princely_musings")
	require.Nil(t, err)
	require.False(t, exists)

	sent := sn.all()
	require.Len(t, sent, 1)
	require.Equal(t, "error", sent[0].Attribute(stravaganza.Type))
	require.NotNil(t, sent[0].Child("error").Child("item-not-found"))
}

func testPubsub(t *testing.T, autoCreate bool) (*Pubsub, *memoryrepository.Repository, *senderMock) {
	t.Helper()

	hosts := host.NewHosts(host.Configs{{Domain: "localhost"}})
	rep := memoryrepository.New()
	sn := &senderMock{}

	return New(Config{NodeAutoCreate: autoCreate}, hosts, rep, sn, kitlog.NewNopLogger()), rep, sn
}

func seedNode(t *testing.T, rep *memoryrepository.Repository, nodeName, ownerJID string, cfg map[string]string) {
	t.Helper()
	if cfg == nil {
		cfg = map[string]string{}
	}
	require.Nil(t, rep.UpsertNode(context.Background(), &pubsubmodel.Node{
		Name:     nodeName,
		OwnerJID: ownerJID,
		Config:   cfg,
	}))
}

func seedSubscription(t *testing.T, rep *memoryrepository.Repository, nodeName, jid string) {
	t.Helper()
	require.Nil(t, rep.UpsertNodeSubscription(context.Background(), &pubsubmodel.Subscription{
		NodeName:    nodeName,
		JID:         jid,
		Affiliation: pubsubmodel.MemberAffiliation,
	}))
}

func pubSubIQ(t *testing.T, from, id string, action stravaganza.Element) *stravaganza.IQ {
	t.Helper()
	iq, err := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, "pubsub.localhost").
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithAttribute(stravaganza.ID, id).
		WithChild(
			stravaganza.NewBuilder("pubsub").
				WithAttribute(stravaganza.Namespace, pubSubNamespace).
				WithChild(action).
				Build(),
		).
		BuildIQ()
	require.Nil(t, err)
	return iq
}

func publishIQ(t *testing.T, from, nodeName, itemID string) *stravaganza.IQ {
	t.Helper()
	ib := stravaganza.NewBuilder("item")
	if len(itemID) > 0 {
		ib.WithAttribute("id", itemID)
	}
	ib.WithChild(
		stravaganza.NewBuilder("entry").
			WithChild(
				stravaganza.NewBuilder("title").WithText("Soliloquy").Build(),
			).
			Build(),
	)
	return pubSubIQ(t, from, "iq_1",
		stravaganza.NewBuilder("publish").
			WithAttribute("node", nodeName).
			WithChild(ib.Build()).
			Build(),
	)
}
