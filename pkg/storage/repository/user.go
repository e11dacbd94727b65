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

	usermodel "github.com/waxwing-im/waxwing/pkg/model/user"
)

// User defines user repository operations.
type User interface {
	// UpsertUser inserts a new user entity into storage, or updates it if previously inserted.
	UpsertUser(ctx context.Context, user *usermodel.User) error

	// FetchUser retrieves a user entity from storage.
	FetchUser(ctx context.Context, username string) (*usermodel.User, error)

	// FetchOrCreateUser retrieves a user entity from storage, creating it first when absent.
	FetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error)

	// UserExists tells whether a user exists within storage.
	UserExists(ctx context.Context, username string) (bool, error)

	// DeleteUser deletes a user entity from storage.
	DeleteUser(ctx context.Context, username string) error
}
