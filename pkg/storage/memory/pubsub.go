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
	"sort"

	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
)

func (r *Repository) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertNode(ctx, node)
}

func (r *Repository) FetchNode(ctx context.Context, nodeName string) (*pubsubmodel.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchNode(ctx, nodeName)
}

func (r *Repository) NodeExists(ctx context.Context, nodeName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.nodeExists(ctx, nodeName)
}

func (r *Repository) DeleteNode(ctx context.Context, nodeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteNode(ctx, nodeName)
}

func (r *Repository) UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertNodeSubscription(ctx, sub)
}

func (r *Repository) FetchNodeSubscription(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchNodeSubscription(ctx, nodeName, jid)
}

func (r *Repository) FetchNodeSubscriptions(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchNodeSubscriptions(ctx, nodeName)
}

func (r *Repository) DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteNodeSubscription(ctx, nodeName, jid)
}

func (r *Repository) DeleteNodeSubscriptions(ctx context.Context, nodeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteNodeSubscriptions(ctx, nodeName)
}

func (t *memTx) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	return t.d.upsertNode(ctx, node)
}

func (t *memTx) FetchNode(ctx context.Context, nodeName string) (*pubsubmodel.Node, error) {
	return t.d.fetchNode(ctx, nodeName)
}

func (t *memTx) NodeExists(ctx context.Context, nodeName string) (bool, error) {
	return t.d.nodeExists(ctx, nodeName)
}

func (t *memTx) DeleteNode(ctx context.Context, nodeName string) error {
	return t.d.deleteNode(ctx, nodeName)
}

func (t *memTx) UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error {
	return t.d.upsertNodeSubscription(ctx, sub)
}

func (t *memTx) FetchNodeSubscription(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error) {
	return t.d.fetchNodeSubscription(ctx, nodeName, jid)
}

func (t *memTx) FetchNodeSubscriptions(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error) {
	return t.d.fetchNodeSubscriptions(ctx, nodeName)
}

func (t *memTx) DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error {
	return t.d.deleteNodeSubscription(ctx, nodeName, jid)
}

func (t *memTx) DeleteNodeSubscriptions(ctx context.Context, nodeName string) error {
	return t.d.deleteNodeSubscriptions(ctx, nodeName)
}

func (d *memData) upsertNode(_ context.Context, node *pubsubmodel.Node) error {
	d.nodes[node.Name] = cloneNode(node)
	return nil
}

func (d *memData) fetchNode(_ context.Context, nodeName string) (*pubsubmodel.Node, error) {
	node := d.nodes[nodeName]
	if node == nil {
		return nil, nil
	}
	return cloneNode(node), nil
}

func (d *memData) nodeExists(_ context.Context, nodeName string) (bool, error) {
	_, ok := d.nodes[nodeName]
	return ok, nil
}

func (d *memData) deleteNode(_ context.Context, nodeName string) error {
	delete(d.nodes, nodeName)
	delete(d.subs, nodeName)
	return nil
}

func (d *memData) upsertNodeSubscription(_ context.Context, sub *pubsubmodel.Subscription) error {
	sm := d.subs[sub.NodeName]
	if sm == nil {
		sm = make(map[string]*pubsubmodel.Subscription)
		d.subs[sub.NodeName] = sm
	}
	s := *sub
	sm[sub.JID] = &s
	return nil
}

func (d *memData) fetchNodeSubscription(_ context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error) {
	s := d.subs[nodeName][jid]
	if s == nil {
		return nil, nil
	}
	ret := *s
	return &ret, nil
}

func (d *memData) fetchNodeSubscriptions(_ context.Context, nodeName string) ([]*pubsubmodel.Subscription, error) {
	sm := d.subs[nodeName]
	ret := make([]*pubsubmodel.Subscription, 0, len(sm))
	for _, s := range sm {
		sub := *s
		ret = append(ret, &sub)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].JID < ret[j].JID })
	return ret, nil
}

func (d *memData) deleteNodeSubscription(_ context.Context, nodeName, jid string) error {
	delete(d.subs[nodeName], jid)
	return nil
}

func (d *memData) deleteNodeSubscriptions(_ context.Context, nodeName string) error {
	delete(d.subs, nodeName)
	return nil
}
