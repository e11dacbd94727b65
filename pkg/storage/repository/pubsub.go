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

package repository

import (
	"context"

	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
)

// PubSub defines pubsub node repository operations.
type PubSub interface {
	// UpsertNode inserts a node entity into storage, or updates it if previously inserted.
	UpsertNode(ctx context.Context, node *pubsubmodel.Node) error

	// FetchNode retrieves a node entity from storage.
	FetchNode(ctx context.Context, nodeName string) (*pubsubmodel.Node, error)

	// NodeExists tells whether a node exists within storage.
	NodeExists(ctx context.Context, nodeName string) (bool, error)

	// DeleteNode deletes a node entity from storage,
	// cascading to subscriptions and configuration.
	DeleteNode(ctx context.Context, nodeName string) error

	// UpsertNodeSubscription inserts a node subscription into storage, or updates it if previously inserted.
	UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error

	// FetchNodeSubscription retrieves a subscription associated to a node.
	FetchNodeSubscription(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error)

	// FetchNodeSubscriptions retrieves all subscriptions associated to a node.
	FetchNodeSubscriptions(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error)

	// DeleteNodeSubscription deletes a node subscription from storage.
	DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error

	// DeleteNodeSubscriptions deletes all subscriptions associated to a node.
	DeleteNodeSubscriptions(ctx context.Context, nodeName string) error
}
