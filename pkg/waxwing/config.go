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

package waxwing

import (
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/waxwing-im/waxwing/pkg/c2s"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/module/muc"
	"github.com/waxwing-im/waxwing/pkg/module/pubsub"
	"github.com/waxwing-im/waxwing/pkg/storage"
)

// LoggerConfig defines logger configuration.
type LoggerConfig struct {
	Level  string `fig:"level" default:"debug"`
	Format string `fig:"format"`
}

// C2SConfig defines C2S subsystem configuration.
type C2SConfig struct {
	Listeners c2s.ListenersConfig `fig:"listeners"`
}

// ModulesConfig defines modules configuration.
type ModulesConfig struct {
	// Enabled defines total set of enabled modules
	Enabled []string `fig:"enabled"`

	// Muc multi-user chat service
	Muc muc.Config `fig:"muc"`

	// Pubsub publish-subscribe service
	Pubsub pubsub.Config `fig:"pubsub"`
}

// Config defines waxwing application configuration.
type Config struct {
	Logger LoggerConfig `fig:"logger"`

	HTTPPort int `fig:"http_port" default:"6060"`

	Storage storage.Config `fig:"storage"`
	Hosts   host.Configs   `fig:"hosts"`

	C2S     C2SConfig     `fig:"c2s"`
	Modules ModulesConfig `fig:"modules"`
}

func loadConfig(configFile string) (*Config, error) {
	var cfg Config
	file := filepath.Base(configFile)
	dir := filepath.Dir(configFile)

	err := fig.Load(&cfg, fig.File(file), fig.Dirs(dir))
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
