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
	"net/http"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/waxwing-im/waxwing/pkg/auth"
	"github.com/waxwing-im/waxwing/pkg/hook"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	"github.com/waxwing-im/waxwing/pkg/transport"
)

// WSListener represents a C2S websocket listener type.
type WSListener struct {
	addr   string
	cfg    ListenerConfig
	hosts  *host.Hosts
	router router.Router
	stage  *Stage
	rep    repository.Repository
	hk     *hook.Hooks
	logger kitlog.Logger

	srv      *http.Server
	upgrader *websocket.Upgrader
}

// NewWSListener returns a new C2S websocket listener.
func NewWSListener(
	hosts *host.Hosts,
	router router.Router,
	stage *Stage,
	rep repository.Repository,
	hk *hook.Hooks,
	cfg ListenerConfig,
	logger kitlog.Logger,
) *WSListener {
	return &WSListener{
		addr:   getAddress(cfg.BindAddr, cfg.Port),
		cfg:    cfg,
		hosts:  hosts,
		router: router,
		stage:  stage,
		rep:    rep,
		hk:     hk,
		logger: logger,
	}
}

// Start starts serving the websocket endpoint to handle incoming C2S connections.
func (l *WSListener) Start(_ context.Context) error {
	l.upgrader = &websocket.Upgrader{
		Subprotocols: []string{"xmpp"},
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Sec-WebSocket-Protocol") == "xmpp"
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(l.cfg.URLPath, l.upgrade)

	l.srv = &http.Server{
		Addr:    l.addr,
		Handler: mux,
	}
	go func() {
		if err := l.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Warn(l.logger).Log("msg", "websocket server error", "err", err)
		}
	}()
	level.Info(l.logger).Log("msg", "accepting C2S websocket connections",
		"bind_addr", l.addr,
		"url_path", l.cfg.URLPath,
	)
	return nil
}

// Stop stops handling incoming C2S connections and closes underlying websocket server.
func (l *WSListener) Stop(ctx context.Context) error {
	if err := l.srv.Shutdown(ctx); err != nil {
		return err
	}
	level.Info(l.logger).Log("msg", "stopped C2S websocket listener", "bind_addr", l.addr)
	return nil
}

func (l *WSListener) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		level.Warn(l.logger).Log("msg", "failed to upgrade websocket connection", "err", err)
		return
	}
	level.Info(l.logger).Log("msg", "received C2S incoming connection",
		"bind_addr", l.addr,
		"remote_address", conn.RemoteAddr().String(),
	)
	tr := transport.NewWebSocketTransport(conn, l.cfg.KeepAliveTimeout)
	stm, err := newInC2S(
		inCfg{
			authenticateTimeout: l.cfg.AuthenticateTimeout,
			reqTimeout:          l.cfg.RequestTimeout,
			maxStanzaSize:       l.cfg.MaxStanzaSize,
			readRateLimit:       l.cfg.ReadRateLimit,
		},
		tr,
		[]auth.Authenticator{auth.NewPlain(l.rep)},
		l.hosts,
		l.router,
		l.stage,
		l.hk,
		l.logger,
	)
	if err != nil {
		level.Warn(l.logger).Log("msg", "failed to initialize C2S stream", "err", err)
		return
	}
	go func() {
		if err := stm.start(); err != nil {
			level.Warn(l.logger).Log("msg", "failed to start C2S stream", "err", err)
		}
	}()
}
