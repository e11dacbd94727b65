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

package transport

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/waxwing-im/waxwing/pkg/util/ratelimiter"
	"golang.org/x/time/rate"
)

// WebSocketConn represents a websocket connection interface.
type WebSocketConn interface {
	NextReader() (messageType int, r io.Reader, err error)
	NextWriter(int) (io.WriteCloser, error)
	Close() error
	UnderlyingConn() net.Conn
	SetReadDeadline(t time.Time) error
}

type webSocketTransport struct {
	conn      WebSocketConn
	keepAlive time.Duration
	rLim      *rate.Limiter
}

// NewWebSocketTransport creates a websocket class stream transport.
func NewWebSocketTransport(conn WebSocketConn, keepAlive time.Duration) Transport {
	wst := &webSocketTransport{
		conn:      conn,
		keepAlive: keepAlive,
	}
	return wst
}

func (w *webSocketTransport) Read(p []byte) (n int, err error) {
	_, r, err := w.conn.NextReader()
	if err != nil {
		return 0, err
	}
	if w.keepAlive > 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.keepAlive))
	}
	n, err = r.Read(p)
	if err != nil {
		return 0, err
	}
	if w.rLim != nil && !w.rLim.AllowN(time.Now(), n) {
		return 0, ratelimiter.ErrReadLimitExcedeed
	}
	return n, nil
}

func (w *webSocketTransport) Write(p []byte) (n int, err error) {
	nw, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return 0, err
	}
	defer func() { _ = nw.Close() }()

	return nw.Write(p)
}

func (w *webSocketTransport) WriteString(str string) (int, error) {
	nw, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return 0, err
	}
	defer func() { _ = nw.Close() }()

	n, err := io.Copy(nw, strings.NewReader(str))
	return int(n), err
}

func (w *webSocketTransport) Close() error {
	return w.conn.Close()
}

func (w *webSocketTransport) Type() Type {
	return WebSocket
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *webSocketTransport) Flush() error {
	return nil
}

// SetWriteDeadline sets the deadline for future write calls.
func (w *webSocketTransport) SetWriteDeadline(d time.Time) error {
	return w.conn.UnderlyingConn().SetWriteDeadline(d)
}

func (w *webSocketTransport) SetReadRateLimiter(rLim *rate.Limiter) error {
	w.rLim = rLim
	return nil
}
