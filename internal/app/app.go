// Package app wires configuration, logging, persistence, the override store,
// language providers and the file watcher into a running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/hintprefs/internal/config"
	"github.com/dshills/hintprefs/internal/config/notify"
	"github.com/dshills/hintprefs/internal/config/watcher"
	"github.com/dshills/hintprefs/internal/logging"
	"github.com/dshills/hintprefs/internal/override"
	"github.com/dshills/hintprefs/internal/override/persist"
	"github.com/dshills/hintprefs/internal/provider"
	"github.com/dshills/hintprefs/internal/session"
)

// Application owns every long-lived component.
type Application struct {
	cfg      *config.Config
	log      *logging.Logger
	backend  persist.Backend
	notifier *notify.Notifier
	store    *override.Store
	registry *provider.Registry
	watcher  *watcher.Watcher
	stopPoll context.CancelFunc
	polling  sync.WaitGroup

	closers  []io.Closer
	shutdown sync.Once
	err      error
}

// Options configures the application.
type Options struct {
	// Config is the loaded configuration. Nil means config.Default().
	Config *config.Config

	// LogOutput receives log records. Nil means os.Stderr.
	LogOutput io.Writer

	// Providers are registered in addition to the built-in languages.
	Providers []provider.Provider
}

// notifyBuffer is how many changes may queue before Notify blocks.
const notifyBuffer = 64

// New creates an Application, loads every stored diff and applies stored
// option values to the providers.
func New(ctx context.Context, opts Options) (*Application, error) {
	app := &Application{cfg: opts.Config}
	if app.cfg == nil {
		app.cfg = config.Default()
	}

	if err := app.bootstrap(ctx, opts); err != nil {
		_ = app.closeAll()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap(ctx context.Context, opts Options) error {
	// 1. Logging
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	log, err := logging.FromConfig(out, app.cfg.Logging.Level, app.cfg.Logging.Format)
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	app.log = log

	// 2. Persistence
	backend, err := app.openBackend(ctx)
	if err != nil {
		return &InitError{Component: "storage", Err: err}
	}
	app.backend = backend

	// 3. Change notification
	app.notifier = notify.New(notify.WithAsync(notifyBuffer))
	app.notifier.Subscribe(func(c notify.Change) {
		app.log.WithLanguage(c.Classifier).Debug("exclusion list changed",
			"type", c.Type.String(), "diff", c.New.String(), "source", c.Source)
	})

	// 4. Store
	app.store = override.New(app.backend,
		override.WithLogger(app.log.WithBackend(app.cfg.Storage.Backend)),
		override.WithNotifier(app.notifier),
		override.WithCacheSize(app.cfg.Storage.CacheSize),
	)
	app.store.Load(ctx)

	// 5. Providers
	app.registry, err = provider.BuiltinRegistry()
	if err != nil {
		return &InitError{Component: "providers", Err: err}
	}
	for _, p := range opts.Providers {
		if err := app.registry.Register(p); err != nil {
			return &InitError{Component: "providers", Err: err}
		}
	}
	app.applyOptions()

	// 6. Watcher
	if err := app.startWatcher(); err != nil {
		return &InitError{Component: "watcher", Err: err}
	}

	app.log.Debug("application started", "backend", app.cfg.Storage.Backend)
	return nil
}

// applyOptions copies stored option values onto the providers' options.
// Options with nothing stored keep their current value.
func (app *Application) applyOptions() {
	for _, lang := range app.registry.Languages() {
		p, _ := app.registry.Lookup(lang.ID)
		for _, o := range p.Options() {
			if v, ok := app.store.OptionValue(o.ID); ok {
				o.Set(v)
			}
		}
	}
}

// Reload re-reads storage, replacing cached diffs and option values with
// what is stored. Unsaved changes are kept.
func (app *Application) Reload(ctx context.Context) error {
	if err := app.store.Reload(ctx); err != nil {
		return err
	}
	app.applyOptions()
	return nil
}

func (app *Application) openBackend(ctx context.Context) (persist.Backend, error) {
	cfg := app.cfg
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return persist.NewMemory(), nil
	case config.BackendTOML:
		return persist.NewFileWithCodec(cfg.Storage.Path, persist.TOML{}), nil
	case config.BackendYAML:
		return persist.NewFileWithCodec(cfg.Storage.Path, persist.YAML{}), nil
	case config.BackendPostgres:
		pg, err := persist.NewPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pg)
		return pg, nil
	case config.BackendS3:
		obj, err := persist.NewObject(persist.ObjectConfig{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Storage.Backend)
	}
}

// startWatcher reloads on external edits: file backends through fsnotify,
// remote backends by polling.
func (app *Application) startWatcher() error {
	if !app.cfg.Watch.Enabled {
		return nil
	}
	file, ok := app.backend.(*persist.File)
	if !ok {
		app.startPolling()
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(file.Path()), 0o755); err != nil {
		return err
	}

	w, err := watcher.New(
		watcher.WithDebounce(time.Duration(app.cfg.Watch.DebounceMs)*time.Millisecond),
		watcher.WithLogger(app.log),
	)
	if err != nil {
		return err
	}
	if err := w.Watch(file.Path()); err != nil {
		_ = w.Close()
		return err
	}
	w.OnChange(func(ev watcher.Event) {
		app.log.Info("storage file changed, reloading", "path", ev.Path, "op", ev.Op.String())
		if err := app.Reload(context.Background()); err != nil {
			app.log.Warn("reload failed, keeping current state", "error", err)
		}
	})
	app.watcher = w
	return nil
}

func (app *Application) startPolling() {
	if app.cfg.Watch.PollSeconds <= 0 {
		return
	}
	interval := time.Duration(app.cfg.Watch.PollSeconds) * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	app.stopPoll = cancel
	app.polling.Add(1)
	go func() {
		defer app.polling.Done()
		app.poll(ctx, interval)
	}()
}

func (app *Application) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.Reload(ctx); err != nil && ctx.Err() == nil {
				app.log.Warn("reload failed, keeping current state", "error", err)
			}
		}
	}
}

// Config returns the configuration in use.
func (app *Application) Config() *config.Config { return app.cfg }

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.log }

// Store returns the override store.
func (app *Application) Store() *override.Store { return app.store }

// Registry returns the language providers.
func (app *Application) Registry() *provider.Registry { return app.registry }

// Notifier returns the change notifier.
func (app *Application) Notifier() *notify.Notifier { return app.notifier }

// OpenSession starts a configuration session over the store.
func (app *Application) OpenSession(opts ...session.Option) (*session.Session, error) {
	opts = append([]session.Option{session.WithLogger(app.log)}, opts...)
	return session.Open(app.store, app.registry, opts...)
}

// Shutdown flushes unsaved changes and releases every resource. It is safe
// to call more than once; later calls return the first result.
func (app *Application) Shutdown(ctx context.Context) error {
	app.shutdown.Do(func() {
		var errs []error
		if app.watcher != nil {
			errs = append(errs, app.watcher.Close())
		}
		if app.stopPoll != nil {
			app.stopPoll()
			app.polling.Wait()
		}
		if err := app.store.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, app.closeAll())
		app.err = errors.Join(errs...)
	})
	return app.err
}

func (app *Application) closeAll() error {
	var errs []error
	if app.notifier != nil {
		app.notifier.Close()
	}
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}
