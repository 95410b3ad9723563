// Command soarprobe runs the SOAR connection test without the desktop UI.
// Without flags it probes the saved profile; -url probes an ad hoc profile,
// which -save also persists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soarlink/soarlink/internal/app"
	"github.com/soarlink/soarlink/internal/config"
	"github.com/soarlink/soarlink/internal/domain"
	"github.com/soarlink/soarlink/internal/logging"
	"github.com/soarlink/soarlink/internal/persistence"
	"github.com/soarlink/soarlink/internal/probe"
)

const passwordEnv = "SOARLINK_PASSWORD"

var errProbeFailed = errors.New("connection test failed")

type probeOptions struct {
	URL      string
	Username string
	Password string
	Insecure bool
	Save     bool
	Timeout  time.Duration
	Verbose  bool
}

// adHoc reports whether the profile comes from flags instead of storage.
func (o probeOptions) adHoc() bool {
	return o.URL != ""
}

func (o probeOptions) profile() domain.Profile {
	return domain.Profile{
		URL:                     o.URL,
		Username:                o.Username,
		Password:                o.Password,
		SSLVerificationDisabled: o.Insecure,
	}
}

type staticProfile domain.Profile

func (s staticProfile) Load(context.Context) (domain.Profile, error) {
	return domain.Profile(s), nil
}

func main() {
	opts, err := parseProbeOptions(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		if !errors.Is(err, errProbeFailed) {
			slog.Error("run probe tool", "error", err)
		}
		os.Exit(1)
	}
}

func parseProbeOptions(args []string, getenv func(string) string) (probeOptions, error) {
	fs := flag.NewFlagSet("soarprobe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts probeOptions
	fs.StringVar(&opts.URL, "url", "", "SOAR base URL; probes the saved profile when empty")
	fs.StringVar(&opts.Username, "username", "", "username for basic auth")
	fs.StringVar(&opts.Password, "password", "", "password for basic auth (default $"+passwordEnv+")")
	fs.BoolVar(&opts.Insecure, "insecure", false, "disable TLS certificate verification")
	fs.BoolVar(&opts.Save, "save", false, "persist the -url profile before probing")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "request timeout, overrides the configured value")
	fs.BoolVar(&opts.Verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return probeOptions{}, err
	}
	if fs.NArg() > 0 {
		return probeOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts.URL = strings.TrimSpace(opts.URL)
	if opts.adHoc() && opts.Password == "" && getenv != nil {
		opts.Password = getenv(passwordEnv)
	}
	if !opts.adHoc() && (opts.Save || opts.Username != "" || opts.Password != "" || opts.Insecure) {
		return probeOptions{}, errors.New("profile flags require -url")
	}
	if opts.Timeout < 0 {
		return probeOptions{}, errors.New("timeout must not be negative")
	}

	return opts, nil
}

func run(ctx context.Context, opts probeOptions, out io.Writer) error {
	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	return probeWith(ctx, paths, cfg, opts, out)
}

func probeWith(ctx context.Context, paths app.Paths, cfg config.AppConfig, opts probeOptions, out io.Writer) error {
	logMgr := logging.NewManager()
	cfg.Logging.LogToFile = false
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")
	logger.Debug("starting soarprobe", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	var loader probe.ProfileLoader = staticProfile(opts.profile())
	if !opts.adHoc() || opts.Save {
		db, err := persistence.Open(ctx, paths.DBFile)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Warn("close sqlite", "error", closeErr)
			}
		}()

		creds, err := app.CredentialProvider(cfg.Credentials, paths.KeyFile)
		if err != nil {
			return err
		}
		kv := persistence.NewKVRepo(db)
		profiles := domain.NewProfileStore(kv, creds)
		if opts.Save {
			if err := profiles.Save(ctx, opts.profile()); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}
			logger.Info("connection profile saved", "url", opts.URL)
		} else if logMgr.Enabled(slog.LevelDebug) {
			savedAt, ok, err := kv.UpdatedAt(ctx, domain.ProfileStorageKey)
			switch {
			case err != nil:
				logger.Debug("read profile timestamp", "error", err)
			case !ok:
				logger.Debug("no saved profile, probing with empty values")
			default:
				logger.Debug("probing saved profile", "saved_at", savedAt.Format(time.RFC3339))
			}
		}
		loader = profiles
	}

	timeout := cfg.Probe.Timeout.Std()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	prober := probe.New(probe.Dependencies{
		Profiles:         loader,
		Timeout:          timeout,
		MinServerVersion: cfg.Probe.MinServerVersion,
		Logger:           logMgr.Logger("probe"),
	})

	res := prober.Test(ctx)
	if _, err := fmt.Fprintln(out, res.Status); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if !res.OK {
		return errProbeFailed
	}

	return nil
}
