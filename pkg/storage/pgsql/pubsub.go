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

package pgsqlrepository

import (
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
)

const (
	nodesTableName             = "pubsub_nodes"
	nodeSubscriptionsTableName = "pubsub_subscriptions"
)

type pgSQLPubSubRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *pgSQLPubSubRep) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	cfgBytes, err := json.Marshal(node.Config)
	if err != nil {
		return err
	}
	_, err = sq.Insert(nodesTableName).
		Columns("name", "owner_jid", "config").
		Values(node.Name, node.OwnerJID, cfgBytes).
		Suffix("ON CONFLICT (name) DO UPDATE SET owner_jid = $2, config = $3").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLPubSubRep) FetchNode(ctx context.Context, nodeName string) (*pubsubmodel.Node, error) {
	q := sq.Select("name", "owner_jid", "config").
		From(nodesTableName).
		Where(sq.Eq{"name": nodeName})

	var node pubsubmodel.Node
	var cfgBytes []byte

	err := q.RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&node.Name, &node.OwnerJID, &cfgBytes)
	switch err {
	case nil:
		if len(cfgBytes) > 0 {
			if err := json.Unmarshal(cfgBytes, &node.Config); err != nil {
				return nil, err
			}
		}
		return &node, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLPubSubRep) NodeExists(ctx context.Context, nodeName string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(nodesTableName).
		Where(sq.Eq{"name": nodeName})

	var count int
	err := q.RunWith(r.conn).QueryRowContext(ctx).Scan(&count)
	switch err {
	case nil:
		return count > 0, nil
	default:
		return false, err
	}
}

func (r *pgSQLPubSubRep) DeleteNode(ctx context.Context, nodeName string) error {
	if err := r.DeleteNodeSubscriptions(ctx, nodeName); err != nil {
		return err
	}
	_, err := sq.Delete(nodesTableName).
		Where(sq.Eq{"name": nodeName}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLPubSubRep) UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error {
	_, err := sq.Insert(nodeSubscriptionsTableName).
		Columns("node_name", "jid", "affiliation").
		Values(sub.NodeName, sub.JID, string(sub.Affiliation)).
		Suffix("ON CONFLICT (node_name, jid) DO UPDATE SET affiliation = $3").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLPubSubRep) FetchNodeSubscription(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error) {
	q := sq.Select("node_name", "jid", "affiliation").
		From(nodeSubscriptionsTableName).
		Where(sq.And{sq.Eq{"node_name": nodeName}, sq.Eq{"jid": jid}})

	sub, err := scanNodeSubscription(q.RunWith(r.conn).QueryRowContext(ctx))
	switch err {
	case nil:
		return sub, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLPubSubRep) FetchNodeSubscriptions(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error) {
	q := sq.Select("node_name", "jid", "affiliation").
		From(nodeSubscriptionsTableName).
		Where(sq.Eq{"node_name": nodeName}).
		OrderBy("jid")

	rows, err := q.RunWith(r.conn).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	var retVal []*pubsubmodel.Subscription
	for rows.Next() {
		sub, err := scanNodeSubscription(rows)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, sub)
	}
	return retVal, rows.Err()
}

func (r *pgSQLPubSubRep) DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error {
	_, err := sq.Delete(nodeSubscriptionsTableName).
		Where(sq.And{sq.Eq{"node_name": nodeName}, sq.Eq{"jid": jid}}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLPubSubRep) DeleteNodeSubscriptions(ctx context.Context, nodeName string) error {
	_, err := sq.Delete(nodeSubscriptionsTableName).
		Where(sq.Eq{"node_name": nodeName}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func scanNodeSubscription(scanner rowScanner) (*pubsubmodel.Subscription, error) {
	var sub pubsubmodel.Subscription
	var aff string

	if err := scanner.Scan(&sub.NodeName, &sub.JID, &aff); err != nil {
		return nil, err
	}
	sub.Affiliation = pubsubmodel.Affiliation(aff)
	return &sub, nil
}
