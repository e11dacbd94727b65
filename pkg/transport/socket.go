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
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/waxwing-im/waxwing/pkg/util/ratelimiter"
	"golang.org/x/time/rate"
)

const writeBuffSize = 4096

type readWriter struct {
	io.Reader
	io.Writer
}

type socketTransport struct {
	conn net.Conn
	lr   *ratelimiter.Reader
	bw   *bufio.Writer
	rw   io.ReadWriter
}

// NewSocketTransport creates a socket class stream transport.
func NewSocketTransport(conn net.Conn) Transport {
	lr := ratelimiter.NewReader(conn)
	bw := bufio.NewWriterSize(conn, writeBuffSize)
	s := &socketTransport{
		conn: conn,
		lr:   lr,
		bw:   bw,
		rw:   &readWriter{lr, bw},
	}
	return s
}

func (s *socketTransport) Read(p []byte) (n int, err error) {
	return s.rw.Read(p)
}

func (s *socketTransport) Write(p []byte) (n int, err error) {
	return s.rw.Write(p)
}

func (s *socketTransport) WriteString(str string) (int, error) {
	n, err := io.Copy(s.rw, strings.NewReader(str))
	return int(n), err
}

func (s *socketTransport) Close() error {
	return s.conn.Close()
}

func (s *socketTransport) Type() Type {
	return Socket
}

func (s *socketTransport) Flush() error {
	return s.bw.Flush()
}

func (s *socketTransport) SetWriteDeadline(d time.Time) error {
	return s.conn.SetWriteDeadline(d)
}

func (s *socketTransport) SetReadRateLimiter(rLim *rate.Limiter) error {
	s.lr.SetReadRateLimiter(rLim)
	return nil
}
