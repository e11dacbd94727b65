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
	"github.com/waxwing-im/waxwing/pkg/module"
	"github.com/waxwing-im/waxwing/pkg/module/muc"
	"github.com/waxwing-im/waxwing/pkg/module/pubsub"
)

var defaultModules = []string{
	muc.ModuleName,
	pubsub.ModuleName,
}

var modFns = map[string]func(w *Waxwing, cfg *ModulesConfig) module.Module{
	// Multi-User Chat
	// (https://xmpp.org/extensions/xep-0045.html)
	muc.ModuleName: func(w *Waxwing, cfg *ModulesConfig) module.Module {
		return muc.New(cfg.Muc, w.hosts, w.rep, w.mods, w.logger)
	},
	// Publish-Subscribe
	// (https://xmpp.org/extensions/xep-0060.html)
	pubsub.ModuleName: func(w *Waxwing, cfg *ModulesConfig) module.Module {
		return pubsub.New(cfg.Pubsub, w.hosts, w.rep, w.mods, w.logger)
	},
}
