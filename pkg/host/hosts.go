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

package host

import (
	"sort"
	"sync"
)

const defaultDomain = "localhost"

const (
	defaultMucSubdomainPrefix    = "conference"
	defaultPubSubSubdomainPrefix = "pubsub"
)

// Hosts type represents all local domains set, including protocol service subdomains.
type Hosts struct {
	mu          sync.RWMutex
	defaultHost string
	hosts       map[string]struct{}
	mucHosts    map[string]struct{}
	pubSubHosts map[string]struct{}
}

// Configs contains a set of host configurations.
type Configs []Config

// Config contains host configuration parameters.
type Config struct {
	Domain string `fig:"domain"`

	MucSubdomain    string `fig:"muc_subdomain"`
	PubSubSubdomain string `fig:"pubsub_subdomain"`
}

// NewHosts creates and initializes a Hosts instance.
func NewHosts(cfg Configs) *Hosts {
	hs := &Hosts{
		hosts:       make(map[string]struct{}),
		mucHosts:    make(map[string]struct{}),
		pubSubHosts: make(map[string]struct{}),
	}
	if len(cfg) == 0 {
		cfg = Configs{{Domain: defaultDomain}}
	}
	for i, config := range cfg {
		if i == 0 {
			hs.registerDefaultHost(config.Domain)
		} else {
			hs.registerHost(config.Domain)
		}
		mucSub := config.MucSubdomain
		if len(mucSub) == 0 {
			mucSub = defaultMucSubdomainPrefix + "." + config.Domain
		}
		pubSubSub := config.PubSubSubdomain
		if len(pubSubSub) == 0 {
			pubSubSub = defaultPubSubSubdomainPrefix + "." + config.Domain
		}
		hs.registerMucHost(mucSub)
		hs.registerPubSubHost(pubSubSub)
	}
	return hs
}

// DefaultHostName returns default host name value.
func (hs *Hosts) DefaultHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.defaultHost
}

// IsLocalHost tells whether h value corresponds to a local host.
func (hs *Hosts) IsLocalHost(h string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.hosts[h]
	return ok
}

// IsMucHost tells whether h value corresponds to a registered MUC service subdomain.
func (hs *Hosts) IsMucHost(h string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.mucHosts[h]
	return ok
}

// IsPubSubHost tells whether h value corresponds to a registered PubSub service subdomain.
func (hs *Hosts) IsPubSubHost(h string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.pubSubHosts[h]
	return ok
}

// DefaultMucHostName returns the MUC service subdomain associated to the default host.
func (hs *Hosts) DefaultMucHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return sortedKey(hs.mucHosts, hs.defaultHost)
}

// DefaultPubSubHostName returns the PubSub service subdomain associated to the default host.
func (hs *Hosts) DefaultPubSubHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return sortedKey(hs.pubSubHosts, hs.defaultHost)
}

// HostNames returns the list of all registered local hosts.
func (hs *Hosts) HostNames() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	var ret []string
	for n := range hs.hosts {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (hs *Hosts) registerDefaultHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.defaultHost = h
	hs.hosts[h] = struct{}{}
}

func (hs *Hosts) registerHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.hosts[h] = struct{}{}
}

func (hs *Hosts) registerMucHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.mucHosts[h] = struct{}{}
}

func (hs *Hosts) registerPubSubHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.pubSubHosts[h] = struct{}{}
}

func sortedKey(m map[string]struct{}, suffix string) string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	for _, k := range ks {
		if len(suffix) > 0 && len(k) > len(suffix) && k[len(k)-len(suffix):] == suffix {
			return k
		}
	}
	if len(ks) > 0 {
		return ks[0]
	}
	return ""
}
