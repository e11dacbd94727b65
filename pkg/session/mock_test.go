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

package session

import (
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/waxwing-im/waxwing/pkg/transport"
	"golang.org/x/time/rate"
)

type transportMock struct {
	TypeFunc             func() transport.Type
	ReadFunc             func(p []byte) (int, error)
	WriteFunc            func(p []byte) (int, error)
	WriteStringFunc      func(s string) (int, error)
	CloseFunc            func() error
	FlushFunc            func() error
	SetWriteDeadlineFunc func(d time.Time) error
}

func (m *transportMock) Type() transport.Type { return m.TypeFunc() }

func (m *transportMock) Read(p []byte) (int, error) { return m.ReadFunc(p) }

func (m *transportMock) Write(p []byte) (int, error) { return m.WriteFunc(p) }

func (m *transportMock) WriteString(s string) (int, error) { return m.WriteStringFunc(s) }

func (m *transportMock) Close() error { return m.CloseFunc() }

func (m *transportMock) Flush() error { return m.FlushFunc() }

func (m *transportMock) SetWriteDeadline(d time.Time) error {
	if m.SetWriteDeadlineFunc != nil {
		return m.SetWriteDeadlineFunc(d)
	}
	return nil
}

func (m *transportMock) SetReadRateLimiter(_ *rate.Limiter) error { return nil }

type hostsMock struct {
	IsLocalHostFunc func(domain string) bool
}

func (m *hostsMock) IsLocalHost(domain string) bool { return m.IsLocalHostFunc(domain) }

type xmppParserMock struct {
	ParseFunc func() (stravaganza.Element, error)
}

func (m *xmppParserMock) Parse() (stravaganza.Element, error) { return m.ParseFunc() }
