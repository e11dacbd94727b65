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
	"errors"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/module"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
)

// ModuleName represents pubsub module name.
const ModuleName = "pubsub"

const (
	pubSubNamespace       = "http://jabber.org/protocol/pubsub"
	pubSubOwnerNamespace  = pubSubNamespace + "#owner"
	pubSubEventNamespace  = pubSubNamespace + "#event"
	pubSubErrorsNamespace = pubSubNamespace + "#errors"

	dataFormNamespace = "jabber:x:data"
)

// domain outcomes mapped to stanza errors after transaction rollback
var (
	errNodeNotFound  = errors.New("pubsub: node not found")
	errNodeConflict  = errors.New("pubsub: node already exists")
	errNotOwner      = errors.New("pubsub: caller does not own node")
	errInvalidJID    = errors.New("pubsub: subscription jid does not match sender")
	errNotSubscribed = errors.New("pubsub: not subscribed to node")
	errBadPayload    = errors.New("pubsub: malformed stanza payload")
)

// Pubsub represents a pubsub (XEP-0060) module type.
//
// All operations touching one node run sequentially on that node's
// queue; multi-step mutations additionally run inside a single storage
// transaction.
type Pubsub struct {
	cfg    Config
	hosts  *host.Hosts
	rep    repository.Repository
	sender module.Sender
	logger kitlog.Logger

	mu     sync.Mutex
	queues map[string]*runqueue.RunQueue
}

// New returns a new initialized pubsub instance.
func New(
	cfg Config,
	hosts *host.Hosts,
	rep repository.Repository,
	sender module.Sender,
	logger kitlog.Logger,
) *Pubsub {
	return &Pubsub{
		cfg:    cfg,
		hosts:  hosts,
		rep:    rep,
		sender: sender,
		logger: kitlog.With(logger, "module", ModuleName),
		queues: make(map[string]*runqueue.RunQueue),
	}
}

// Name returns pubsub module name.
func (p *Pubsub) Name() string { return ModuleName }

// Match tells whether stanza is addressed to the pubsub service subdomain.
func (p *Pubsub) Match(stanza stravaganza.Stanza) bool {
	return p.hosts.IsPubSubHost(stanza.ToJID().Domain())
}

// Start starts pubsub module.
func (p *Pubsub) Start(_ context.Context) error {
	level.Info(p.logger).Log("msg", "started pubsub module")
	return nil
}

// Stop stops pubsub module.
func (p *Pubsub) Stop(_ context.Context) error {
	level.Info(p.logger).Log("msg", "stopped pubsub module")
	return nil
}

// Handle processes a stanza addressed to the pubsub service.
func (p *Pubsub) Handle(ctx context.Context, stanza stravaganza.Stanza) error {
	iq, ok := stanza.(*stravaganza.IQ)
	if !ok || !iq.IsSet() {
		return p.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.BadRequest))
	}
	action, nodeName, err := p.resolveAction(iq)
	if err != nil {
		return p.mapDomainError(ctx, iq, err)
	}
	errCh := make(chan error, 1)
	p.nodeQueue(nodeName).Run(func() {
		errCh <- p.handle(ctx, iq, action, nodeName)
	})
	return <-errCh
}

type pubSubAction struct {
	name    string
	payload stravaganza.Element
}

// resolveAction extracts the requested operation and its target node
// name. A create request lacking a node name gets a generated one, so
// serialization can anchor on it before touching storage.
func (p *Pubsub) resolveAction(iq *stravaganza.IQ) (pubSubAction, string, error) {
	if owner := iq.ChildNamespace("pubsub", pubSubOwnerNamespace); owner != nil {
		del := owner.Child("delete")
		if del == nil || len(del.Attribute("node")) == 0 {
			return pubSubAction{}, "", errBadPayload
		}
		return pubSubAction{name: "delete", payload: owner}, del.Attribute("node"), nil
	}
	pubSub := iq.ChildNamespace("pubsub", pubSubNamespace)
	if pubSub == nil {
		return pubSubAction{}, "", errBadPayload
	}
	for _, name := range []string{"create", "subscribe", "unsubscribe", "publish"} {
		child := pubSub.Child(name)
		if child == nil {
			continue
		}
		nodeName := child.Attribute("node")
		if len(nodeName) == 0 {
			if name != "create" {
				return pubSubAction{}, "", errBadPayload
			}
			nodeName = uuid.New().String()
		}
		return pubSubAction{name: name, payload: pubSub}, nodeName, nil
	}
	return pubSubAction{}, "", errBadPayload
}

func (p *Pubsub) handle(ctx context.Context, iq *stravaganza.IQ, action pubSubAction, nodeName string) error {
	var err error

	switch action.name {
	case "create":
		err = p.createNode(ctx, iq, action.payload, nodeName)
	case "delete":
		err = p.deleteNode(ctx, iq, nodeName)
	case "subscribe":
		err = p.subscribe(ctx, iq, action.payload, nodeName)
	case "unsubscribe":
		err = p.unsubscribe(ctx, iq, action.payload, nodeName)
	case "publish":
		err = p.publish(ctx, iq, action.payload, nodeName)
	}
	if err != nil {
		return p.mapDomainError(ctx, iq, err)
	}
	return nil
}

// mapDomainError turns a domain outcome into its stanza error reply.
// Unknown errors bubble up to the dispatch router.
func (p *Pubsub) mapDomainError(ctx context.Context, stanza stravaganza.Stanza, err error) error {
	switch {
	case errors.Is(err, errNodeNotFound):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.ItemNotFound))
	case errors.Is(err, errNodeConflict):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.Conflict))
	case errors.Is(err, errNotOwner):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.Forbidden))
	case errors.Is(err, errInvalidJID):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanzaWithApplicationElement(
			stanza, applicationElement("invalid-jid"), stanzaerror.BadRequest,
		))
	case errors.Is(err, errNotSubscribed):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanzaWithApplicationElement(
			stanza, applicationElement("not-subscribed"), stanzaerror.UnexpectedRequest,
		))
	case errors.Is(err, errBadPayload):
		return p.sender.Send(ctx, xmpputil.MakeErrorStanza(stanza, stanzaerror.BadRequest))
	}
	return err
}

func applicationElement(name string) stravaganza.Element {
	return stravaganza.NewBuilder(name).
		WithAttribute(stravaganza.Namespace, pubSubErrorsNamespace).
		Build()
}

func (p *Pubsub) nodeQueue(nodeName string) *runqueue.RunQueue {
	p.mu.Lock()
	defer p.mu.Unlock()

	rq := p.queues[nodeName]
	if rq == nil {
		rq = runqueue.New("pubsub:" + nodeName)
		p.queues[nodeName] = rq
	}
	return rq
}
