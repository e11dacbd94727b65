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

package storage

import (
	"fmt"

	kitlog "github.com/go-kit/log"
	measuredrepository "github.com/waxwing-im/waxwing/pkg/storage/measured"
	memoryrepository "github.com/waxwing-im/waxwing/pkg/storage/memory"
	pgsqlrepository "github.com/waxwing-im/waxwing/pkg/storage/pgsql"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
)

const (
	memoryRepositoryType = "memory"
	pgSQLRepositoryType  = "pgsql"
)

// Config contains repository configuration value.
type Config struct {
	Type  string                 `fig:"type" default:"memory"`
	PgSQL pgsqlrepository.Config `fig:"pgsql"`
}

// New returns an initialized repository derived from cfg configuration.
func New(cfg Config, logger kitlog.Logger) (repository.Repository, error) {
	switch cfg.Type {
	case memoryRepositoryType:
		return measuredrepository.New(memoryrepository.New()), nil
	case pgSQLRepositoryType:
		rep := pgsqlrepository.New(cfg.PgSQL, logger)
		return measuredrepository.New(rep), nil
	default:
		return nil, fmt.Errorf("unrecognized repository type: %s", cfg.Type)
	}
}
