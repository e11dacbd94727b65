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

	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

type measuredPubSubRep struct {
	rep  repository.PubSub
	inTx bool
}

func (m *measuredPubSubRep) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	t0 := time.Now()
	err := m.rep.UpsertNode(ctx, node)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredPubSubRep) FetchNode(ctx context.Context, nodeName string) (node *pubsubmodel.Node, err error) {
	t0 := time.Now()
	node, err = m.rep.FetchNode(ctx, nodeName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredPubSubRep) NodeExists(ctx context.Context, nodeName string) (ok bool, err error) {
	t0 := time.Now()
	ok, err = m.rep.NodeExists(ctx, nodeName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredPubSubRep) DeleteNode(ctx context.Context, nodeName string) error {
	t0 := time.Now()
	err := m.rep.DeleteNode(ctx, nodeName)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredPubSubRep) UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error {
	t0 := time.Now()
	err := m.rep.UpsertNodeSubscription(ctx, sub)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredPubSubRep) FetchNodeSubscription(ctx context.Context, nodeName, jid string) (sub *pubsubmodel.Subscription, err error) {
	t0 := time.Now()
	sub, err = m.rep.FetchNodeSubscription(ctx, nodeName, jid)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredPubSubRep) FetchNodeSubscriptions(ctx context.Context, nodeName string) (subs []*pubsubmodel.Subscription, err error) {
	t0 := time.Now()
	subs, err = m.rep.FetchNodeSubscriptions(ctx, nodeName)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return
}

func (m *measuredPubSubRep) DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error {
	t0 := time.Now()
	err := m.rep.DeleteNodeSubscription(ctx, nodeName, jid)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}

func (m *measuredPubSubRep) DeleteNodeSubscriptions(ctx context.Context, nodeName string) error {
	t0 := time.Now()
	err := m.rep.DeleteNodeSubscriptions(ctx, nodeName)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil, m.inTx)
	return err
}
