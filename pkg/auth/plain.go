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

package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

// Plain represents a PLAIN authenticator.
type Plain struct {
	rep           repository.User
	username      string
	authenticated bool
}

// NewPlain returns a new plain authenticator instance.
func NewPlain(rep repository.User) *Plain {
	return &Plain{rep: rep}
}

// Mechanism returns authenticator mechanism name.
func (p *Plain) Mechanism() string { return "PLAIN" }

// Username returns authenticated username in case authentication process has been completed.
func (p *Plain) Username() string { return p.username }

// Authenticated returns whether or not user has been authenticated.
func (p *Plain) Authenticated() bool { return p.authenticated }

// ProcessElement process an incoming authenticator element.
func (p *Plain) ProcessElement(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *SASLError) {
	if p.authenticated {
		return nil, nil
	}
	if len(elem.Text()) == 0 {
		return nil, newSASLError(MalformedRequest, nil)
	}
	b, err := base64.StdEncoding.DecodeString(elem.Text())
	if err != nil {
		return nil, newSASLError(IncorrectEncoding, err)
	}
	s := bytes.Split(b, []byte{0})
	if len(s) != 3 {
		return nil, newSASLError(IncorrectEncoding, errors.New("auth: unexpected PLAIN payload format"))
	}
	username := string(s[1])
	password := string(s[2])

	usr, err := p.rep.FetchUser(ctx, username)
	if err != nil {
		return nil, newSASLError(TemporaryAuthFailure, err)
	}
	if usr == nil || usr.Password != password {
		return nil, newSASLError(NotAuthorized, nil)
	}
	p.username = username
	p.authenticated = true

	return stravaganza.NewBuilder("success").
		WithAttribute(stravaganza.Namespace, SASLNamespace).
		Build(), nil
}

// Reset resets authenticator internal state.
func (p *Plain) Reset() {
	p.username = ""
	p.authenticated = false
}
