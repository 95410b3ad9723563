package probe

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/domain"
)

type profileLoaderFunc func(ctx context.Context) (domain.Profile, error)

func (f profileLoaderFunc) Load(ctx context.Context) (domain.Profile, error) {
	return f(ctx)
}

func staticProfile(p domain.Profile) ProfileLoader {
	return profileLoaderFunc(func(context.Context) (domain.Profile, error) { return p, nil })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingBus struct {
	mu        sync.Mutex
	published []Result
}

func (b *recordingBus) Publish(topic string, msg any) {
	if topic != TopicStatus {
		return
	}
	res, ok := msg.(Result)
	if !ok {
		return
	}
	b.mu.Lock()
	b.published = append(b.published, res)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(string) bus.Subscription       { return make(bus.Subscription) }
func (b *recordingBus) Unsubscribe(bus.Subscription, ...string) {}
func (b *recordingBus) Close()                                  {}

func (b *recordingBus) snapshot() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Result(nil), b.published...)
}

func TestProberSuccess(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotCType  string
		gotCache  string
		gotMethod string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCType = r.Header.Get("Content-Type")
		gotCache = r.Header.Get("Cache-Control")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"version":"6.2.1"}`)
	}))
	defer server.Close()

	p := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL, Username: "admin", Password: "s3cret"}),
		Transport: server.Client().Transport,
		Logger:    testLogger(),
	})

	res := p.Test(context.Background())

	if !res.OK || res.Err != nil {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Status, "Connection successful") || !strings.Contains(res.Status, "6.2.1") {
		t.Fatalf("unexpected status: %q", res.Status)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("unexpected method: %s", gotMethod)
	}
	if gotPath != "/rest/version" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:s3cret"))
	if gotAuth != wantAuth {
		t.Fatalf("unexpected authorization header: %q, want %q", gotAuth, wantAuth)
	}
	if gotCType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotCType)
	}
	if gotCache != "no-cache" {
		t.Fatalf("unexpected cache control: %q", gotCache)
	}
}

func TestProberNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL}),
		Transport: server.Client().Transport,
		Logger:    testLogger(),
	})

	res := p.Test(context.Background())

	if res.OK {
		t.Fatalf("expected failure")
	}
	for _, want := range []string{"Connection failed", "401", "Unauthorized"} {
		if !strings.Contains(res.Status, want) {
			t.Fatalf("status %q does not contain %q", res.Status, want)
		}
	}
	var statusErr *StatusError
	if !errors.As(res.Err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected StatusError 401, got %v", res.Err)
	}
}

func TestProberTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	p := New(Dependencies{
		Profiles: staticProfile(domain.Profile{URL: url}),
		Logger:   testLogger(),
	})

	res := p.Test(context.Background())

	if res.OK || res.Err == nil {
		t.Fatalf("expected transport failure, got %+v", res)
	}
	if !strings.HasPrefix(res.Status, "Connection failed: ") {
		t.Fatalf("unexpected status: %q", res.Status)
	}
	if !strings.Contains(res.Status, res.Err.Error()) {
		t.Fatalf("status %q does not embed error %q", res.Status, res.Err.Error())
	}
}

func TestProberBadResponseBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: "<html>", want: "decode version response"},
		{name: "missing version", body: `{"name":"soar"}`, want: errNoVersion.Error()},
		{name: "null version", body: `{"version":null}`, want: errNoVersion.Error()},
	}

	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, tc.body)
		}))

		p := New(Dependencies{
			Profiles:  staticProfile(domain.Profile{URL: server.URL}),
			Transport: server.Client().Transport,
			Logger:    testLogger(),
		})
		res := p.Test(context.Background())
		server.Close()

		if res.OK {
			t.Fatalf("%s: expected failure", tc.name)
		}
		if !strings.HasPrefix(res.Status, "Connection failed: ") || !strings.Contains(res.Status, tc.want) {
			t.Fatalf("%s: unexpected status %q", tc.name, res.Status)
		}
	}
}

func TestDecodeVersionRendersScalars(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"version":"6.2.1"}`, want: "6.2.1"},
		{body: `{"version":6.2}`, want: "6.2"},
		{body: `{"version":7}`, want: "7"},
		{body: `{"version":true}`, want: "true"},
		{body: `{"version":{"major":6}}`, want: `{"major":6}`},
	}

	for _, tc := range tests {
		got, err := decodeVersion(strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("decodeVersion(%s): %v", tc.body, err)
		}
		if got != tc.want {
			t.Fatalf("decodeVersion(%s) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestProberWithoutSavedProfileStillAttemptsRequest(t *testing.T) {
	p := New(Dependencies{
		Profiles: staticProfile(domain.Profile{}),
		Logger:   testLogger(),
	})

	res := p.Test(context.Background())

	if res.OK {
		t.Fatalf("expected failure for empty profile")
	}
	if res.Endpoint != "/rest/version" {
		t.Fatalf("expected endpoint built from empty url, got %q", res.Endpoint)
	}
	if !strings.HasPrefix(res.Status, "Connection failed: ") {
		t.Fatalf("unexpected status: %q", res.Status)
	}
}

func TestProberProfileLoadFailure(t *testing.T) {
	p := New(Dependencies{
		Profiles: profileLoaderFunc(func(context.Context) (domain.Profile, error) {
			return domain.Profile{}, errors.New("decode profile: broken")
		}),
		Logger: testLogger(),
	})

	res := p.Test(context.Background())
	if res.Status != "Connection failed: decode profile: broken" {
		t.Fatalf("unexpected status: %q", res.Status)
	}
}

func TestProberClearsStatusBeforeResult(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = io.WriteString(w, `{"version":"6.2.1"}`)
	}))
	defer server.Close()

	rec := &recordingBus{}
	p := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL}),
		Bus:       rec,
		Transport: server.Client().Transport,
		Logger:    testLogger(),
	})

	done := make(chan Result, 1)
	go func() { done <- p.Test(context.Background()) }()

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	first := rec.snapshot()[0]
	if !first.Pending || first.Status != "" {
		t.Fatalf("expected cleared pending status first, got %+v", first)
	}

	close(release)
	res := <-done

	published := rec.snapshot()
	if len(published) != 2 {
		t.Fatalf("expected clear + result, got %d publications", len(published))
	}
	if published[1].Status != res.Status || published[1].Token != first.Token {
		t.Fatalf("unexpected final publication: %+v", published[1])
	}
}

func TestProberStaleResultDoesNotOverwriteNewer(t *testing.T) {
	firstStarted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		if user == "slow" {
			close(firstStarted)
			<-r.Context().Done()

			return
		}
		_, _ = io.WriteString(w, `{"version":"7.0.0"}`)
	}))
	defer server.Close()

	var (
		mu      sync.Mutex
		profile = domain.Profile{URL: server.URL, Username: "slow"}
	)
	rec := &recordingBus{}
	p := New(Dependencies{
		Profiles: profileLoaderFunc(func(context.Context) (domain.Profile, error) {
			mu.Lock()
			defer mu.Unlock()

			return profile, nil
		}),
		Bus:       rec,
		Transport: server.Client().Transport,
		Logger:    testLogger(),
	})

	slow := make(chan Result, 1)
	go func() { slow <- p.Test(context.Background()) }()

	select {
	case <-firstStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first probe")
	}

	mu.Lock()
	profile.Username = "fast"
	mu.Unlock()

	fast := p.Test(context.Background())
	if !fast.OK || fast.Version != "7.0.0" {
		t.Fatalf("expected newer probe to succeed, got %+v", fast)
	}

	var stale Result
	select {
	case stale = <-slow:
	case <-time.After(2 * time.Second):
		t.Fatalf("older probe was not canceled")
	}
	if !stale.Superseded {
		t.Fatalf("expected older result to be superseded, got %+v", stale)
	}

	published := rec.snapshot()
	for _, res := range published {
		if res.Token == stale.Token && !res.Pending {
			t.Fatalf("stale result was published: %+v", res)
		}
	}
	if last := published[len(published)-1]; last.Token != fast.Token || last.Pending {
		t.Fatalf("last publication should be the newer result, got %+v", last)
	}
}

func TestProberSSLVerificationToggle(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"version":"6.2.1"}`)
	}))
	defer server.Close()

	base := http.DefaultTransport.(*http.Transport).Clone()

	verified := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL}),
		Transport: base,
		Logger:    testLogger(),
	}).Test(context.Background())
	if verified.OK {
		t.Fatalf("expected self-signed certificate to be rejected")
	}

	skipped := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL, SSLVerificationDisabled: true}),
		Transport: base,
		Logger:    testLogger(),
	}).Test(context.Background())
	if !skipped.OK {
		t.Fatalf("expected success with verification disabled, got %q", skipped.Status)
	}
}

func TestProberMinServerVersionNote(t *testing.T) {
	tests := []struct {
		min     string
		version string
		want    string
	}{
		{min: "", version: "5.0.0", want: ""},
		{min: "6.0.0", version: "5.9.1", want: "(below minimum supported 6.0.0)"},
		{min: "6.0.0", version: "6.2.1", want: ""},
		{min: "6.0.0", version: "nightly", want: ""},
		{min: "v6.0", version: "5", want: "(below minimum supported 6.0)"},
	}

	for _, tc := range tests {
		p := New(Dependencies{MinServerVersion: tc.min, Logger: testLogger()})
		if got := p.versionNote(tc.version); got != tc.want {
			t.Fatalf("versionNote(min=%q, version=%q) = %q, want %q", tc.min, tc.version, got, tc.want)
		}
	}
}

func TestProberTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	p := New(Dependencies{
		Profiles:  staticProfile(domain.Profile{URL: server.URL}),
		Transport: server.Client().Transport,
		Timeout:   50 * time.Millisecond,
		Logger:    testLogger(),
	})

	res := p.Test(context.Background())
	if res.OK || !strings.HasPrefix(res.Status, "Connection failed: ") {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
}

func waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition was not met before timeout")
}

func TestResultState(t *testing.T) {
	tests := []struct {
		res  Result
		want State
	}{
		{res: Result{}, want: StateIdle},
		{res: Result{Token: 1, Pending: true}, want: StateProbing},
		{res: Result{Token: 1, OK: true}, want: StateSucceeded},
		{res: Result{Token: 1, Err: errors.New("boom")}, want: StateFailed},
	}

	for _, tc := range tests {
		if got := tc.res.State(); got != tc.want {
			t.Fatalf("State(%+v) = %q, want %q", tc.res, got, tc.want)
		}
	}
}
