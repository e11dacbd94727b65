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
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	usermodel "github.com/waxwing-im/waxwing/pkg/model/user"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

// Repository represents an in-process memory repository implementation.
//
// Transactions operate over a cloned data set that replaces the live one
// only upon success, so a failing transactional function rolls back.
type Repository struct {
	mu sync.RWMutex
	d  *memData
}

// New creates and returns an initialized memory Repository instance.
func New() *Repository {
	return &Repository{d: newMemData()}
}

// InTransaction runs f over a transactional snapshot, committing it on success.
func (r *Repository) InTransaction(ctx context.Context, f func(ctx context.Context, tx repository.Transaction) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.d.clone()
	if err := f(ctx, &memTx{d: snapshot}); err != nil {
		return err
	}
	r.d = snapshot
	return nil
}

// Start implements repository Start method.
func (r *Repository) Start(_ context.Context) error { return nil }

// Stop implements repository Stop method.
func (r *Repository) Stop(_ context.Context) error { return nil }

// memTx adapts a memData set to the Transaction contract.
type memTx struct {
	d *memData
}

type memData struct {
	users    map[string]*usermodel.User
	rooms    map[string]*mucmodel.Room
	members  map[string]map[string]*mucmodel.Member
	messages map[string][]*stravaganza.Message
	invites  map[string]map[string]*mucmodel.Invite
	nodes    map[string]*pubsubmodel.Node
	subs     map[string]map[string]*pubsubmodel.Subscription
}

func newMemData() *memData {
	return &memData{
		users:    make(map[string]*usermodel.User),
		rooms:    make(map[string]*mucmodel.Room),
		members:  make(map[string]map[string]*mucmodel.Member),
		messages: make(map[string][]*stravaganza.Message),
		invites:  make(map[string]map[string]*mucmodel.Invite),
		nodes:    make(map[string]*pubsubmodel.Node),
		subs:     make(map[string]map[string]*pubsubmodel.Subscription),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.users {
		usr := *v
		c.users[k] = &usr
	}
	for k, v := range d.rooms {
		c.rooms[k] = cloneRoom(v)
	}
	for k, v := range d.members {
		mm := make(map[string]*mucmodel.Member, len(v))
		for jd, m := range v {
			member := *m
			mm[jd] = &member
		}
		c.members[k] = mm
	}
	for k, v := range d.messages {
		msgs := make([]*stravaganza.Message, len(v))
		copy(msgs, v)
		c.messages[k] = msgs
	}
	for k, v := range d.invites {
		im := make(map[string]*mucmodel.Invite, len(v))
		for jd, inv := range v {
			invite := *inv
			im[jd] = &invite
		}
		c.invites[k] = im
	}
	for k, v := range d.nodes {
		c.nodes[k] = cloneNode(v)
	}
	for k, v := range d.subs {
		sm := make(map[string]*pubsubmodel.Subscription, len(v))
		for jd, s := range v {
			sub := *s
			sm[jd] = &sub
		}
		c.subs[k] = sm
	}
	return c
}

func cloneRoom(room *mucmodel.Room) *mucmodel.Room {
	c := *room
	c.Config = cloneConfig(room.Config)
	return &c
}

func cloneNode(node *pubsubmodel.Node) *pubsubmodel.Node {
	c := *node
	c.Config = cloneConfig(node.Config)
	return &c
}

func cloneConfig(cfg map[string]string) map[string]string {
	if cfg == nil {
		return nil
	}
	c := make(map[string]string, len(cfg))
	for k, v := range cfg {
		c[k] = v
	}
	return c
}
