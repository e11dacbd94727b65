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
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/waxwing-im/waxwing/pkg/c2s"
	"github.com/waxwing-im/waxwing/pkg/hook"
	"github.com/waxwing-im/waxwing/pkg/host"
	"github.com/waxwing-im/waxwing/pkg/log"
	"github.com/waxwing-im/waxwing/pkg/module"
	"github.com/waxwing-im/waxwing/pkg/pipeline"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/storage"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	"github.com/waxwing-im/waxwing/pkg/version"
)

const (
	darwinOpenMax = 10240

	defaultBootstrapTimeout = time.Minute
	defaultShutdownTimeout  = time.Second * 30

	envConfigFile = "WAXWING_CONFIG_FILE"
)

var logoStr = []string{
	`_  _  _ _______ _     _ _  _  _ _____ __   _  ______`,
	`|  |  | |_____|  \___/  |  |  |   |   | \  | |  ____`,
	`|__|__| |     | _/   \_ |__|__| __|__ |  \_| |_____|`,
}

const usageStr = `
Usage: waxwing [options]
Server Options:
    --config <file>    Configuration file path
Common Options:
    --help             Show this message
`

type starter interface {
	Start(ctx context.Context) error
}

type stopper interface {
	Stop(ctx context.Context) error
}

type startStopper interface {
	starter
	stopper
}

// Waxwing is the root data structure for Waxwing.
type Waxwing struct {
	output io.Writer
	args   []string

	hk *hook.Hooks

	rep   repository.Repository
	hosts *host.Hosts

	localRouter *c2s.LocalRouter
	router      router.Router
	stage       *c2s.Stage
	mods        *module.Modules

	starters []starter
	stoppers []stopper

	waitStopCh chan os.Signal

	logger kitlog.Logger
}

// New makes a new Waxwing.
func New(output io.Writer, args []string) *Waxwing {
	return &Waxwing{
		output:     output,
		args:       args,
		waitStopCh: make(chan os.Signal, 1),
	}
}

// Run starts Waxwing running, and blocks until a Waxwing stops.
func (w *Waxwing) Run() error {
	fs := flag.NewFlagSet("waxwing", flag.ExitOnError)
	fs.SetOutput(w.output)

	var configFile string
	var showVersion, showUsage bool

	fs.BoolVar(&showUsage, "help", false, "Show this message")
	fs.BoolVar(&showVersion, "version", false, "Print version information.")
	fs.StringVar(&configFile, "config", "config.yaml", "Configuration file path.")

	fs.Usage = func() {
		for i := range logoStr {
			_, _ = fmt.Fprintf(w.output, "%s\n", logoStr[i])
		}
		_, _ = fmt.Fprintf(w.output, "%s\n", usageStr)
	}
	_ = fs.Parse(w.args[1:])

	// print usage
	if showUsage {
		fs.Usage()
		return nil
	}
	// print version
	if showVersion {
		_, _ = fmt.Fprintf(w.output, "waxwing version: %v\n", version.Version)
		return nil
	}
	// if present, override config file url with env var
	if envCfgFile := os.Getenv(envConfigFile); len(envCfgFile) > 0 {
		configFile = envCfgFile
	}
	// load configuration
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	// init logger
	w.logger = log.NewDefaultLogger(cfg.Logger.Level, cfg.Logger.Format)

	level.Info(w.logger).Log("msg", "waxwing is starting...",
		"version", version.Version,
		"go_ver", runtime.Version(),
		"go_os", runtime.GOOS,
		"go_arch", runtime.GOARCH,
	)
	// set maximum opened files limit
	if err := setRLimit(); err != nil {
		return err
	}

	// init hooks
	w.hk = hook.NewHooks()

	// init repository
	if err := w.initRepository(cfg.Storage); err != nil {
		return err
	}
	// init routing layers
	w.initHosts(cfg.Hosts)
	w.initRouters()

	// init modules and wire the processing pipeline
	if err := w.initModules(cfg.Modules); err != nil {
		return err
	}
	w.initPipeline()

	// init HTTP server
	w.registerStartStopper(newHTTPServer(cfg.HTTPPort, w.logger))

	// init C2S listeners
	w.initListeners(cfg.C2S.Listeners)

	if err := w.bootstrap(); err != nil {
		return err
	}
	// ...wait for stop signal to shut down
	sig := w.waitForStopSignal()
	level.Info(w.logger).Log("msg", "received stop signal... shutting down...",
		"signal", sig.String(),
	)

	return w.shutdown()
}

func (w *Waxwing) initRepository(cfg storage.Config) error {
	rep, err := storage.New(cfg, w.logger)
	if err != nil {
		return err
	}
	w.rep = rep
	w.registerStartStopper(w.rep)
	return nil
}

func (w *Waxwing) initHosts(configs host.Configs) {
	w.hosts = host.NewHosts(configs)
}

func (w *Waxwing) initRouters() {
	w.localRouter = c2s.NewLocalRouter(w.hosts)

	c2sRouter := c2s.NewRouter(w.localRouter, w.rep, w.hk, w.logger)
	w.router = router.New(w.hosts, c2sRouter)
	w.registerStartStopper(w.router)
}

func (w *Waxwing) initModules(cfg ModulesConfig) error {
	w.mods = module.NewModules(w.logger)

	// enabled modules
	enabled := cfg.Enabled
	if len(enabled) == 0 {
		enabled = defaultModules
	}
	var mods []module.Module
	for _, mName := range enabled {
		fn, ok := modFns[mName]
		if !ok {
			return fmt.Errorf("main: unrecognized module name: %s", mName)
		}
		mods = append(mods, fn(w, &cfg))
	}
	w.mods.RegisterModules(mods...)
	w.registerStartStopper(w.mods)
	return nil
}

func (w *Waxwing) initPipeline() {
	w.stage = c2s.NewStage(w.hosts, w.router, w.logger)

	// chaining panics over a stage that was never built, so a broken
	// wiring is caught at startup instead of at first stanza
	pipeline.Chain(w.stage, w.mods)
}

func (w *Waxwing) initListeners(cfg c2s.ListenersConfig) {
	listeners := c2s.NewListeners(cfg, w.hosts, w.router, w.stage, w.rep, w.hk, w.logger)
	for _, ln := range listeners {
		w.registerStartStopper(ln)
	}
}

func (w *Waxwing) registerStartStopper(ss startStopper) {
	if ss == nil {
		return
	}
	w.starters = append(w.starters, ss)
	w.stoppers = append([]stopper{ss}, w.stoppers...)
}

func (w *Waxwing) bootstrap() error {
	// spin up all service subsystems
	ctx, cancel := context.WithTimeout(context.Background(), defaultBootstrapTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered starters...
		for _, s := range w.starters {
			if err := s.Start(ctx); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Waxwing) shutdown() error {
	// wait until shutdown has been completed
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered stoppers...
		for _, st := range w.stoppers {
			if err := st.Stop(ctx); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Waxwing) waitForStopSignal() os.Signal {
	signal.Notify(w.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-w.waitStopCh
}

func setRLimit() error {
	var rLim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLim); err != nil {
		return err
	}
	if rLim.Cur < rLim.Max {
		switch runtime.GOOS {
		case "darwin":
			// The max file limit is 10240, even though
			// the max returned by Getrlimit is 1<<63-1.
			// This is OPEN_MAX in sys/syslimits.h.
			rLim.Cur = darwinOpenMax
		default:
			rLim.Cur = rLim.Max
		}
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLim)
	}
	return nil
}
