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
	"github.com/waxwing-im/waxwing/pkg/hook"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

const (
	socketTransportType    = "socket"
	websocketTransportType = "websocket"
)

// Listener handles incoming C2S connections over some transport.
type Listener interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewListeners creates and initializes a set of C2S listeners based of cfg configuration.
func NewListeners(
	cfg ListenersConfig,
	hosts *host.Hosts,
	router router.Router,
	stage *Stage,
	rep repository.Repository,
	hk *hook.Hooks,
	logger kitlog.Logger,
) []Listener {
	var listeners []Listener
	for _, lnCfg := range cfg {
		switch lnCfg.Transport {
		case websocketTransportType:
			listeners = append(listeners, NewWSListener(hosts, router, stage, rep, hk, lnCfg, logger))
		default:
			listeners = append(listeners, NewSocketListener(hosts, router, stage, rep, hk, lnCfg, logger))
		}
	}
	return listeners
}
