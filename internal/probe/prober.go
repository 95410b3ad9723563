// Package probe checks that the saved SOAR profile can reach its server.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/domain"
)

const maxBodyBytes = 1 << 20

var errNoVersion = errors.New("response has no version field")

// ProfileLoader returns the last saved connection profile.
type ProfileLoader interface {
	Load(ctx context.Context) (domain.Profile, error)
}

// Dependencies configures a Prober. Only Profiles is required.
type Dependencies struct {
	Profiles ProfileLoader
	Bus      bus.MessageBus
	// Transport is the base round tripper. When it is an *http.Transport a
	// clone with certificate checks disabled serves profiles that ask for it.
	Transport        http.RoundTripper
	Timeout          time.Duration
	MinServerVersion string
	Logger           *slog.Logger
	Now              func() time.Time
}

// Prober runs the version-endpoint check. Overlapping Test calls are allowed;
// only the newest one publishes its outcome and the older ones are canceled.
type Prober struct {
	profiles   ProfileLoader
	bus        bus.MessageBus
	secure     *http.Client
	insecure   *http.Client
	minVersion string
	logger     *slog.Logger
	now        func() time.Time

	tokens atomic.Uint64

	mu         sync.Mutex
	current    uint64
	cancelPrev context.CancelFunc
}

func New(dep Dependencies) *Prober {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default().With("component", "probe")
	}
	now := dep.Now
	if now == nil {
		now = time.Now
	}

	base := dep.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	insecureBase := base
	if t, ok := base.(*http.Transport); ok {
		clone := t.Clone()
		if clone.TLSClientConfig == nil {
			clone.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		// #nosec G402 -- only used when the saved profile disables SSL verification.
		clone.TLSClientConfig.InsecureSkipVerify = true
		insecureBase = clone
	} else {
		logger.Warn("custom transport cannot disable certificate checks, using it as is")
	}

	return &Prober{
		profiles:   dep.Profiles,
		bus:        dep.Bus,
		secure:     &http.Client{Transport: base, Timeout: dep.Timeout},
		insecure:   &http.Client{Transport: insecureBase, Timeout: dep.Timeout},
		minVersion: normalizeSemver(dep.MinServerVersion),
		logger:     logger,
		now:        now,
	}
}

// Test clears the status, loads the saved profile, and queries its version
// endpoint. The returned Result is also published on TopicStatus unless a
// newer Test started in the meantime.
func (p *Prober) Test(ctx context.Context) Result {
	token := p.tokens.Add(1)
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancelPrev != nil {
		p.cancelPrev()
	}
	p.cancelPrev = cancel
	p.current = token
	p.publishLocked(Result{Token: token, ID: id, Pending: true})
	p.mu.Unlock()

	res := p.run(ctx, token, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.current {
		res.Superseded = true
		p.logger.Debug("dropping stale probe result", "probe_id", id, "token", token, "current_token", p.current)

		return res
	}
	p.cancelPrev = nil
	p.publishLocked(res)

	return res
}

func (p *Prober) publishLocked(res Result) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(TopicStatus, res)
}

func (p *Prober) run(ctx context.Context, token uint64, id string) Result {
	res := Result{Token: token, ID: id, StartedAt: p.now()}
	fail := func(err error) Result {
		res.Err = err
		res.Status = failureStatus(err)
		res.FinishedAt = p.now()
		p.logger.Warn("connection test failed", "probe_id", id, "endpoint", res.Endpoint, "error", err)

		return res
	}

	if p.profiles == nil {
		return fail(errors.New("no profile store configured"))
	}
	profile, err := p.profiles.Load(ctx)
	if err != nil {
		return fail(err)
	}
	res.Endpoint = profile.VersionEndpoint()

	p.logger.Info(
		"sending connection test",
		"probe_id", id,
		"endpoint", res.Endpoint,
		"username", profile.Username,
		"ssl_verification_disabled", profile.SSLVerificationDisabled,
	)

	version, err := p.fetchVersion(ctx, profile)
	if err != nil {
		return fail(err)
	}

	res.OK = true
	res.Version = version
	res.Status = successStatus(version)
	if note := p.versionNote(version); note != "" {
		res.Status += " " + note
	}
	res.FinishedAt = p.now()
	p.logger.Info("connection test succeeded", "probe_id", id, "version", version, "duration", res.Duration().String())

	return res
}

func (p *Prober) fetchVersion(ctx context.Context, profile domain.Profile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile.VersionEndpoint(), nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(profile.Username, profile.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	client := p.secure
	if profile.SSLVerificationDisabled {
		client = p.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	p.logger.Debug("received connection test response", "status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Text: statusText(resp)}
	}

	return decodeVersion(io.LimitReader(resp.Body, maxBodyBytes))
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}

	return text
}

func decodeVersion(r io.Reader) (string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("decode version response: %w", err)
	}

	raw, ok := payload["version"]
	if !ok || raw == nil {
		return "", errNoVersion
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			return "", fmt.Errorf("render version: %w", err)
		}

		return strings.TrimSpace(buf.String()), nil
	}
}

func (p *Prober) versionNote(version string) string {
	if p.minVersion == "" || !semver.IsValid(p.minVersion) {
		return ""
	}
	reported := normalizeSemver(version)
	if !semver.IsValid(reported) {
		return ""
	}
	if semver.Compare(reported, p.minVersion) >= 0 {
		return ""
	}

	return fmt.Sprintf("(below minimum supported %s)", strings.TrimPrefix(p.minVersion, "v"))
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		return "v" + trimmed
	}

	return trimmed
}
