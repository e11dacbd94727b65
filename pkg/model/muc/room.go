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

package mucmodel

// Affiliation represents a member long-lived standing within a room.
type Affiliation string

const (
	// OwnerAffiliation represents the 'owner' affiliation value.
	OwnerAffiliation Affiliation = "owner"

	// AdminAffiliation represents the 'admin' affiliation value.
	AdminAffiliation Affiliation = "admin"

	// MemberAffiliation represents the 'member' affiliation value.
	MemberAffiliation Affiliation = "member"

	// OutcastAffiliation represents the 'outcast' affiliation value.
	OutcastAffiliation Affiliation = "outcast"

	// NoneAffiliation represents an absent affiliation value.
	NoneAffiliation Affiliation = "none"
)

// IsValid tells whether a is one of the known affiliation values.
func (a Affiliation) IsValid() bool {
	switch a {
	case OwnerAffiliation, AdminAffiliation, MemberAffiliation, OutcastAffiliation, NoneAffiliation:
		return true
	}
	return false
}

// Role represents a member session-scoped privilege within a room.
// Unlike affiliation, role is reset upon leaving the room.
type Role string

const (
	// ModeratorRole represents the 'moderator' role value.
	ModeratorRole Role = "moderator"

	// ParticipantRole represents the 'participant' role value.
	ParticipantRole Role = "participant"

	// VisitorRole represents the 'visitor' role value.
	VisitorRole Role = "visitor"

	// NoneRole represents an absent role value.
	NoneRole Role = "none"
)

// Room represents a multi-user chat room entity.
type Room struct {
	// Name uniquely identifies the room within the MUC service subdomain.
	Name string

	// Subject is the room current conversation subject.
	Subject string

	// Description is the room human readable description.
	Description string

	// Config contains the room configuration key-value set.
	Config map[string]string
}

// Member represents a (room, user) membership relation.
type Member struct {
	// RoomName is the name of the room this membership belongs to.
	RoomName string

	// UserJID is the member bare identity.
	UserJID string

	// Nickname is the member room nickname.
	Nickname string

	// Affiliation is the member long-lived standing.
	Affiliation Affiliation

	// Role is the member session privilege; NoneRole when not joined.
	Role Role
}

// IsJoined tells whether the member currently holds an active role.
func (m *Member) IsJoined() bool {
	return len(m.Role) > 0 && m.Role != NoneRole
}

// Invite represents a mediated room invitation record.
type Invite struct {
	// RoomName is the name of the room the invitee was invited to.
	RoomName string

	// InviterJID is the inviter bare identity.
	InviterJID string

	// InviteeJID is the invitee bare identity.
	InviteeJID string

	// Reason is the optional invitation reason text.
	Reason string
}
