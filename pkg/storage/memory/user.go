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

package memoryrepository

import (
	"context"

	usermodel "github.com/waxwing-im/waxwing/pkg/model/user"
)

func (r *Repository) UpsertUser(ctx context.Context, user *usermodel.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.upsertUser(ctx, user)
}

func (r *Repository) FetchUser(ctx context.Context, username string) (*usermodel.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.fetchUser(ctx, username)
}

func (r *Repository) FetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.fetchOrCreateUser(ctx, username)
}

func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.d.userExists(ctx, username)
}

func (r *Repository) DeleteUser(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.deleteUser(ctx, username)
}

func (t *memTx) UpsertUser(ctx context.Context, user *usermodel.User) error {
	return t.d.upsertUser(ctx, user)
}

func (t *memTx) FetchUser(ctx context.Context, username string) (*usermodel.User, error) {
	return t.d.fetchUser(ctx, username)
}

func (t *memTx) FetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error) {
	return t.d.fetchOrCreateUser(ctx, username)
}

func (t *memTx) UserExists(ctx context.Context, username string) (bool, error) {
	return t.d.userExists(ctx, username)
}

func (t *memTx) DeleteUser(ctx context.Context, username string) error {
	return t.d.deleteUser(ctx, username)
}

func (d *memData) upsertUser(_ context.Context, user *usermodel.User) error {
	usr := *user
	d.users[user.Username] = &usr
	return nil
}

func (d *memData) fetchUser(_ context.Context, username string) (*usermodel.User, error) {
	usr := d.users[username]
	if usr == nil {
		return nil, nil
	}
	ret := *usr
	return &ret, nil
}

func (d *memData) fetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error) {
	if usr := d.users[username]; usr != nil {
		ret := *usr
		return &ret, nil
	}
	usr := &usermodel.User{Username: username}
	d.users[username] = usr

	ret := *usr
	return &ret, nil
}

func (d *memData) userExists(_ context.Context, username string) (bool, error) {
	_, ok := d.users[username]
	return ok, nil
}

func (d *memData) deleteUser(_ context.Context, username string) error {
	delete(d.users, username)
	return nil
}
