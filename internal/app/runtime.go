package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/config"
	"github.com/soarlink/soarlink/internal/credentials"
	"github.com/soarlink/soarlink/internal/domain"
	"github.com/soarlink/soarlink/internal/logging"
	"github.com/soarlink/soarlink/internal/notifications"
	"github.com/soarlink/soarlink/internal/persistence"
	"github.com/soarlink/soarlink/internal/probe"
)

const saveTimeout = 5 * time.Second

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	KVRepo        *persistence.KVRepo
	Profiles      *domain.ProfileStore
	Prober        *probe.Prober
	Notifications *NotificationService
}

// Options lets callers and tests override where runtime files live and how
// notifications leave the process.
type Options struct {
	Paths        *Paths
	Notifier     notifications.Sender
	IsForeground func() bool
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	var paths Paths
	if opts.Paths != nil {
		paths = *opts.Paths
	} else {
		resolved, err := ResolvePaths()
		if err != nil {
			return nil, err
		}
		paths = resolved
	}

	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting soarlink runtime", "version", BuildVersion(), "build_date", BuildDateYMD())
	if logPath := logMgr.FilePath(); logPath != "" {
		slog.Info("writing log file", "path", logPath)
	}

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.DB = db
	rt.KVRepo = persistence.NewKVRepo(db)

	creds, err := CredentialProvider(cfg.Credentials, paths.KeyFile)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Profiles = domain.NewProfileStore(rt.KVRepo, creds)

	rt.Bus = bus.New(logMgr.Logger("bus"))
	rt.Prober = probe.New(probe.Dependencies{
		Profiles:         rt.Profiles,
		Bus:              rt.Bus,
		Timeout:          cfg.Probe.Timeout.Std(),
		MinServerVersion: cfg.Probe.MinServerVersion,
		Logger:           logMgr.Logger("probe"),
	})

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewBeeepSender(logMgr.Logger("notifications"))
	}
	rt.Notifications = NewNotificationService(rt.Bus, rt.CurrentConfig, opts.IsForeground, notifier, logMgr.Logger("app.notifications"))
	rt.Notifications.Start(ctx)

	return rt, nil
}

// CredentialProvider picks the password sealing scheme configured for this install.
func CredentialProvider(cfg config.CredentialsConfig, keyFile string) (credentials.Provider, error) {
	if !cfg.EncryptAtRest {
		return credentials.PlainProvider{}, nil
	}

	key, err := credentials.LoadOrCreateKey(keyFile)
	if err != nil {
		return nil, fmt.Errorf("initialize credentials key: %w", err)
	}

	return credentials.NewSecretboxProvider(key), nil
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

// SaveConfig validates cfg, writes it to the config file and makes it current.
// Settings read only at startup (logging, probe, credentials) apply on the next launch.
func (r *Runtime) SaveConfig(cfg config.AppConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg.FillMissingDefaults()
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		slog.Error("save app config", "error", err)
		return fmt.Errorf("save config: %w", err)
	}
	r.Config = cfg
	slog.Info("app config saved", "path", r.Paths.ConfigFile)

	return nil
}

// StartHidden reports the persisted ui.start_hidden preference.
func (r *Runtime) StartHidden() bool {
	return r.CurrentConfig().UI.StartHidden
}

// SetStartHidden persists ui.start_hidden.
func (r *Runtime) SetStartHidden(hidden bool) error {
	cfg := r.CurrentConfig()
	cfg.UI.StartHidden = hidden

	return r.SaveConfig(cfg)
}

// SetForegroundCheck lets the UI report window focus once it exists.
func (r *Runtime) SetForegroundCheck(fn func() bool) {
	if r.Notifications != nil {
		r.Notifications.SetForegroundCheck(fn)
	}
}

// SaveProfile overwrites the stored connection profile.
func (r *Runtime) SaveProfile(p domain.Profile) error {
	ctx, cancel := context.WithTimeout(r.Ctx, saveTimeout)
	defer cancel()

	if err := r.Profiles.Save(ctx, p); err != nil {
		slog.Error("save connection profile", "error", err)
		return err
	}
	slog.Info("connection profile saved", "url", p.URL, "username", p.Username, "ssl_verification_disabled", p.SSLVerificationDisabled)

	return nil
}

// TestConnection probes the saved profile. It blocks until the probe finishes.
func (r *Runtime) TestConnection() probe.Result {
	return r.Prober.Test(r.Ctx)
}

func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}
	return nil
}
