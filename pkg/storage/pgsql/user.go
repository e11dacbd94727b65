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

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	usermodel "github.com/waxwing-im/waxwing/pkg/model/user"
)

const (
	usersTableName = "users"
)

type pgSQLUserRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *pgSQLUserRep) UpsertUser(ctx context.Context, user *usermodel.User) error {
	_, err := sq.Insert(usersTableName).
		Columns("username", "password").
		Values(user.Username, user.Password).
		Suffix("ON CONFLICT (username) DO UPDATE SET password = $2").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLUserRep) FetchUser(ctx context.Context, username string) (*usermodel.User, error) {
	q := sq.Select("username", "password").
		From(usersTableName).
		Where(sq.Eq{"username": username})

	var usr usermodel.User
	err := q.RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&usr.Username, &usr.Password)
	switch err {
	case nil:
		return &usr, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLUserRep) FetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error) {
	usr, err := r.FetchUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if usr != nil {
		return usr, nil
	}
	usr = &usermodel.User{Username: username}
	if err := r.UpsertUser(ctx, usr); err != nil {
		return nil, err
	}
	return usr, nil
}

func (r *pgSQLUserRep) UserExists(ctx context.Context, username string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(usersTableName).
		Where(sq.Eq{"username": username})

	var count int
	err := q.RunWith(r.conn).QueryRowContext(ctx).Scan(&count)
	switch err {
	case nil:
		return count > 0, nil
	default:
		return false, err
	}
}

func (r *pgSQLUserRep) DeleteUser(ctx context.Context, username string) error {
	_, err := sq.Delete(usersTableName).
		Where(sq.Eq{"username": username}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}
