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
	"errors"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/module"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

// ModuleName represents muc module name.
const ModuleName = "muc"

const (
	mucNamespace      = "http://jabber.org/protocol/muc"
	mucUserNamespace  = mucNamespace + "#user"
	mucAdminNamespace = mucNamespace + "#admin"
)

// domain outcomes mapped to stanza errors after transaction rollback
var (
	errRoomNotFound   = errors.New("muc: room not found")
	errNotAMember     = errors.New("muc: not a room member")
	errInviteNotFound = errors.New("muc: invite not found")
	errOutcast        = errors.New("muc: user is banned from room")
	errNotPrivileged  = errors.New("muc: insufficient affiliation")
	errMalformedNick  = errors.New("muc: malformed room nickname")
	errBadPayload     = errors.New("muc: malformed stanza payload")
)

// Muc represents a muc (XEP-0045) module type.
//
// All operations touching one room run sequentially on that room's
// queue; multi-step mutations additionally run inside a single storage
// transaction.
type Muc struct {
	cfg    Config
	hosts  *host.Hosts
	rep    repository.Repository
	sender module.Sender
	logger kitlog.Logger

	mu     sync.Mutex
	queues map[string]*runqueue.RunQueue
}

// New returns a new initialized muc instance.
func New(
	cfg Config,
	hosts *host.Hosts,
	rep repository.Repository,
	sender module.Sender,
	logger kitlog.Logger,
) *Muc {
	return &Muc{
		cfg:    cfg,
		hosts:  hosts,
		rep:    rep,
		sender: sender,
		logger: kitlog.With(logger, "module", ModuleName),
		queues: make(map[string]*runqueue.RunQueue),
	}
}

// Name returns muc module name.
func (m *Muc) Name() string { return ModuleName }

// Match tells whether stanza is addressed to the muc service subdomain.
func (m *Muc) Match(stanza stravaganza.Stanza) bool {
	return m.hosts.IsMucHost(stanza.ToJID().Domain())
}

// Start starts muc module.
func (m *Muc) Start(_ context.Context) error {
	level.Info(m.logger).Log("msg", "started muc module")
	return nil
}

// Stop stops muc module.
func (m *Muc) Stop(_ context.Context) error {
	level.Info(m.logger).Log("msg", "stopped muc module")
	return nil
}

// Handle processes a stanza addressed to the muc service.
func (m *Muc) Handle(ctx context.Context, stanza stravaganza.Stanza) error {
	roomName := stanza.ToJID().Node()
	if len(roomName) == 0 {
		return m.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.BadRequest))
	}
	errCh := make(chan error, 1)
	m.roomQueue(roomName).Run(func() {
		errCh <- m.handle(ctx, stanza)
	})
	return <-errCh
}

func (m *Muc) handle(ctx context.Context, stanza stravaganza.Stanza) error {
	var err error

	switch stz := stanza.(type) {
	case *stravaganza.Presence:
		err = m.handlePresence(ctx, stz)
	case *stravaganza.Message:
		err = m.handleMessage(ctx, stz)
	case *stravaganza.IQ:
		err = m.handleIQ(ctx, stz)
	}
	if err != nil {
		return m.mapDomainError(ctx, stanza, err)
	}
	return nil
}

// mapDomainError turns a domain outcome into its stanza error reply.
// Unknown errors bubble up to the dispatch router.
func (m *Muc) mapDomainError(ctx context.Context, stanza stravaganza.Stanza, err error) error {
	var reason stanzaerror.Reason
	switch {
	case errors.Is(err, errRoomNotFound), errors.Is(err, errNotAMember), errors.Is(err, errInviteNotFound):
		reason = stanzaerror.ItemNotFound
	case errors.Is(err, errOutcast), errors.Is(err, errNotPrivileged):
		reason = stanzaerror.Forbidden
	case errors.Is(err, errMalformedNick):
		reason = stanzaerror.JIDMalformed
	case errors.Is(err, errBadPayload):
		reason = stanzaerror.BadRequest
	default:
		return err
	}
	return m.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, reason))
}

func (m *Muc) roomQueue(roomName string) *runqueue.RunQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	rq := m.queues[roomName]
	if rq == nil {
		rq = runqueue.New("muc:" + roomName)
		m.queues[roomName] = rq
	}
	return rq
}
