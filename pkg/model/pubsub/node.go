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

package pubsubmodel

// DeliverPayloadsOption is the node configuration key controlling whether
// subscriber notifications carry the published item payloads.
const DeliverPayloadsOption = "pubsub#deliver_payloads"

// Affiliation represents a subscriber standing within a node.
type Affiliation string

const (
	// OwnerAffiliation represents the 'owner' affiliation value.
	OwnerAffiliation Affiliation = "owner"

	// PublisherAffiliation represents the 'publisher' affiliation value.
	PublisherAffiliation Affiliation = "publisher"

	// MemberAffiliation represents the 'member' affiliation value.
	MemberAffiliation Affiliation = "member"
)

// Node represents a publish-subscribe topic entity.
type Node struct {
	// Name uniquely identifies the node within the PubSub service subdomain.
	Name string

	// OwnerJID is the bare identity of the creating user.
	OwnerJID string

	// Config contains the node configuration key-value set.
	Config map[string]string
}

// DeliverPayloads tells whether subscriber notifications should include
// the published payloads.
func (n *Node) DeliverPayloads() bool {
	switch n.Config[DeliverPayloadsOption] {
	case "1", "true":
		return true
	}
	return false
}

// Subscription represents a (node, subscriber) relation.
type Subscription struct {
	// NodeName is the name of the node this subscription belongs to.
	NodeName string

	// JID is the subscriber bare identity.
	JID string

	// Affiliation is the subscriber standing within the node.
	Affiliation Affiliation
}
