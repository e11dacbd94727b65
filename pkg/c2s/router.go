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

package c2s

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/waxwing-im/waxwing/pkg/hook"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/router/stream"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

type c2sRouter struct {
	local  localRouter
	rep    repository.Repository
	hk     *hook.Hooks
	logger kitlog.Logger
}

// NewRouter creates and returns an initialized C2S router.
func NewRouter(
	localRouter *LocalRouter,
	rep repository.Repository,
	hk *hook.Hooks,
	logger kitlog.Logger,
) router.C2SRouter {
	return &c2sRouter{
		local:  localRouter,
		rep:    rep,
		hk:     hk,
		logger: logger,
	}
}

func (r *c2sRouter) Route(ctx context.Context, stanza stravaganza.Stanza, routingOpts router.RoutingOptions) (targets []jid.JID, err error) {
	// apply validations
	username := stanza.ToJID().Node()
	if (routingOpts & router.CheckUserExistence) > 0 {
		exists, err := r.rep.UserExists(ctx, username) // user exists?
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, router.ErrNotExistingAccount
		}
	}
	// get user bound streams
	stms := r.local.ConnectedResources(username)
	return r.route(stanza, stms)
}

func (r *c2sRouter) Register(stm stream.C2S) error {
	if err := r.local.Register(stm); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "registered C2S stream", "id", stm.ID())
	return nil
}

func (r *c2sRouter) Bind(id stream.C2SID) error {
	stm, err := r.local.Bind(id)
	if err != nil {
		return err
	}
	// materialize account on first bind
	if _, err := r.rep.FetchOrCreateUser(context.Background(), stm.Username()); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "bounded C2S stream", "id", id,
		"username", stm.Username(),
		"resource", stm.Resource())

	_, err = r.hk.Run(hook.SessionConnected, &hook.ExecutionContext{
		Info:    &hook.SessionInfo{JID: stm.JID()},
		Sender:  stm,
		Context: context.Background(),
	})
	return err
}

func (r *c2sRouter) Unregister(stm stream.C2S) error {
	wasBounded := stm.IsBounded()

	if err := r.local.Unregister(stm); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "unregistered C2S stream", "id", stm.ID())

	if !wasBounded {
		return nil
	}
	_, err := r.hk.Run(hook.SessionDisconnected, &hook.ExecutionContext{
		Info:    &hook.SessionInfo{JID: stm.JID()},
		Sender:  stm,
		Context: context.Background(),
	})
	return err
}

func (r *c2sRouter) LocalStream(username, resource string) (stream.C2S, error) {
	stm := r.local.Stream(username, resource)
	if stm == nil {
		return nil, router.ErrResourceNotFound
	}
	return stm, nil
}

func (r *c2sRouter) Start(ctx context.Context) error {
	return r.local.Start(ctx)
}

func (r *c2sRouter) Stop(ctx context.Context) error {
	return r.local.Stop(ctx)
}

func (r *c2sRouter) route(stanza stravaganza.Stanza, stms []stream.C2S) ([]jid.JID, error) {
	if len(stms) == 0 {
		return nil, router.ErrUserNotAvailable
	}
	var targets []jid.JID

	toJID := stanza.ToJID()
	username := toJID.Node()
	if toJID.IsFullWithUser() {
		// route to full resource
		for _, stm := range stms {
			if stm.Resource() != toJID.Resource() {
				continue
			}
			if err := r.local.Route(stanza, username, stm.Resource()); err != nil {
				return nil, err
			}
			return []jid.JID{*stm.JID()}, nil
		}
		return nil, router.ErrResourceNotFound
	}
	// broadcast to all bound resources
	for _, stm := range stms {
		if err := r.local.Route(stanza, username, stm.Resource()); err != nil {
			return nil, err
		}
		targets = append(targets, *stm.JID())
	}
	return targets, nil
}
