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
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/pipeline"
	"github.com/waxwing-im/waxwing/pkg/router"
)

// Stage is the connection router element of the stanza pipeline.
//
// Stanzas coming off the wire enter through Handle: traffic addressed to
// a local account is delivered right away, anything else flows downstream
// to the dispatch router. Send is the delivery path back to the clients.
type Stage struct {
	pipeline.Sinks
	hosts  *host.Hosts
	router router.Router
	logger kitlog.Logger
}

// NewStage returns a new initialized connection router stage.
func NewStage(hosts *host.Hosts, router router.Router, logger kitlog.Logger) *Stage {
	return &Stage{
		hosts:  hosts,
		router: router,
		logger: logger,
	}
}

// Match tells whether stanza is addressed to a local user account.
func (s *Stage) Match(stanza stravaganza.Stanza) bool {
	toJID := stanza.ToJID()
	return len(toJID.Node()) > 0 && s.hosts.IsLocalHost(toJID.Domain())
}

// Handle processes a stanza coming off a client stream.
func (s *Stage) Handle(ctx context.Context, stanza stravaganza.Stanza) (bool, error) {
	if s.Match(stanza) {
		return true, s.Send(ctx, stanza)
	}
	if err := s.ForwardDownstream(ctx, stanza); err != nil {
		return false, err
	}
	return true, nil
}

// Send delivers stanza to its target client sessions.
// Undeliverable stanzas are dropped with a warning; no bounce is attempted.
func (s *Stage) Send(ctx context.Context, stanza stravaganza.Stanza) error {
	_, err := s.router.Route(ctx, stanza)
	switch err {
	case nil:
		return nil

	case router.ErrNotExistingAccount, router.ErrUserNotAvailable, router.ErrResourceNotFound, router.ErrRemoteServerNotFound:
		level.Warn(s.logger).Log("msg", "dropping stanza: no reachable session",
			"name", stanza.Name(),
			"from", stanza.FromJID().String(),
			"to", stanza.ToJID().String(),
			"reason", err,
		)
		return nil

	default:
		return err
	}
}
