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

package module

import (
	"context"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/waxwing-im/waxwing/pkg/pipeline"
)

// Sender emits stanzas toward connected client sessions.
// The Modules hub satisfies it, pushing traffic through the upstream sink.
type Sender interface {
	Send(ctx context.Context, stanza stravaganza.Stanza) error
}

// Module represents generic module interface.
type Module interface {
	// Name returns specific module name.
	Name() string

	// Match tells whether stanza should be processed by this module.
	// It must be cheap and side effect free.
	Match(stanza stravaganza.Stanza) bool

	// Handle will be invoked whenever stanza should be processed by this module.
	Handle(ctx context.Context, stanza stravaganza.Stanza) error

	// Start starts module.
	Start(ctx context.Context) error

	// Stop stops module.
	Stop(ctx context.Context) error
}

// Modules is the dispatch router element of the stanza pipeline.
//
// It owns the startup ordered module list: every stanza flowing in from
// the connection router is offered to each module in registration order,
// and the first one matching claims it. Unclaimed stanzas are answered
// with a service-unavailable error through the upstream sink.
type Modules struct {
	pipeline.Sinks
	mods   []Module
	logger kitlog.Logger
}

// NewModules returns a new initialized Modules instance.
func NewModules(logger kitlog.Logger) *Modules {
	return &Modules{
		logger: logger,
	}
}

// RegisterModules sets the dispatch module list.
// Registration happens once, at startup, before any stanza flows.
func (m *Modules) RegisterModules(mods ...Module) {
	m.mods = append(m.mods, mods...)
}

// Start starts registered modules.
func (m *Modules) Start(ctx context.Context) error {
	var modNames []string
	for _, mod := range m.mods {
		if err := mod.Start(ctx); err != nil {
			return err
		}
		modNames = append(modNames, mod.Name())
	}
	level.Info(m.logger).Log("msg", "started modules",
		"mods_count", len(m.mods),
		"mods", strings.Join(modNames, ","),
	)
	return nil
}

// Stop stops registered modules.
func (m *Modules) Stop(ctx context.Context) error {
	for _, mod := range m.mods {
		if err := mod.Stop(ctx); err != nil {
			return err
		}
	}
	level.Info(m.logger).Log("msg", "stopped modules", "mods_count", len(m.mods))
	return nil
}

// IsEnabled tells whether a specific module it's been registered.
func (m *Modules) IsEnabled(moduleName string) bool {
	for _, mod := range m.mods {
		if mod.Name() == moduleName {
			return true
		}
	}
	return false
}

// AllModules returns all registered modules.
func (m *Modules) AllModules() []Module {
	return m.mods
}

// Match implements pipeline.Stage. The dispatch router is the pipeline
// terminal stage, so it claims everything that reaches it.
func (m *Modules) Match(_ stravaganza.Stanza) bool {
	return true
}

// Handle dispatches stanza to the first matching registered module.
func (m *Modules) Handle(ctx context.Context, stanza stravaganza.Stanza) (bool, error) {
	for _, mod := range m.mods {
		if !mod.Match(stanza) {
			continue
		}
		if err := mod.Handle(ctx, stanza); err != nil {
			level.Warn(m.logger).Log("msg", "unhandled stanza",
				"module", mod.Name(),
				"name", stanza.Name(),
				"to", stanza.ToJID().String(),
				"err", err,
			)
			break
		}
		return true, nil
	}
	// ...stanza not claimed...
	if stanza.Attribute(stravaganza.Type) == "error" {
		return true, nil // never bounce an error stanza
	}
	resp, err := stanzaerror.E(stanzaerror.ServiceUnavailable, stanza).Stanza(false)
	if err != nil {
		return true, nil
	}
	_ = m.ForwardUpstream(ctx, resp)
	return true, nil
}

// Send implements pipeline.Stage emitting stanza toward client sessions.
func (m *Modules) Send(ctx context.Context, stanza stravaganza.Stanza) error {
	return m.ForwardUpstream(ctx, stanza)
}
