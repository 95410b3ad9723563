//go:build windows

package platform

import "testing"

func TestWindowsMutexNameIsPerUser(t *testing.T) {
	a := windowsMutexName("soarlink", "S-1-5-21-1")
	b := windowsMutexName("soarlink", "S-1-5-21-2")
	if a == b {
		t.Fatalf("expected distinct mutex names per user, both %q", a)
	}
	if want := `Local\soarlink.instance.s-1-5-21-1`; a != want {
		t.Fatalf("expected %q, got %q", want, a)
	}
}
