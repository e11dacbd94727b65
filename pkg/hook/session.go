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

package hook

import (
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	// SessionConnected hook runs when a resource session is bound to the connection router.
	SessionConnected = "session.connected"

	// SessionDisconnected hook runs when a resource session is unbound from the connection router.
	SessionDisconnected = "session.disconnected"

	// UserVerification hook runs right after successful authentication.
	// A handler returning an error rejects the user.
	UserVerification = "user.verification"
)

// SessionInfo contains all info associated to a session hook.
type SessionInfo struct {
	// JID is the full identity of the resource transitioning.
	JID *jid.JID
}

// UserVerificationInfo contains all info associated to a user verification hook.
type UserVerificationInfo struct {
	// Username is the authenticated username about to be accepted.
	Username string
}
