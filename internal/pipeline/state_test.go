package pipeline

import (
	"testing"
)

func assertEnv(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("env = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("env[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEnvStateResolveNoOverlay(t *testing.T) {
	s := newEnvState([]string{
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
	})

	assertEnv(t, s.resolve(nil), []string{
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
	})
}

func TestEnvStateResolveOverlay(t *testing.T) {
	s := newEnvState([]string{
		"PYTHONDONTWRITEBYTECODE=1",
		"PIP_NO_CACHE_DIR=1",
	})

	env := s.resolve(map[string]string{
		"DEBIAN_FRONTEND":  "noninteractive",
		"PIP_NO_CACHE_DIR": "0",
	})

	// Flag keys keep declaration order, overlay wins on conflict, and
	// overlay-only keys trail in sorted order.
	assertEnv(t, env, []string{
		"PYTHONDONTWRITEBYTECODE=1",
		"PIP_NO_CACHE_DIR=0",
		"DEBIAN_FRONTEND=noninteractive",
	})
}

func TestEnvStateResolveDoesNotMutate(t *testing.T) {
	s := newEnvState([]string{"PYTHONUNBUFFERED=1"})

	s.resolve(map[string]string{"PYTHONUNBUFFERED": "0", "EXTRA": "x"})

	assertEnv(t, s.resolve(nil), []string{"PYTHONUNBUFFERED=1"})
}

func TestEnvStateSkipsMalformed(t *testing.T) {
	s := newEnvState([]string{"no-equals", "=no-key", "OK=1"})

	assertEnv(t, s.resolve(nil), []string{"OK=1"})
}

func TestEnvStateDedupesKeepingLast(t *testing.T) {
	s := newEnvState([]string{"A=1", "B=2", "A=3"})

	assertEnv(t, s.resolve(nil), []string{"A=3", "B=2"})
}

func TestCutEnv(t *testing.T) {
	tests := []struct {
		entry string
		k, v  string
		ok    bool
	}{
		{entry: "A=1", k: "A", v: "1", ok: true},
		{entry: "A=", k: "A", ok: true},
		{entry: "A=b=c", k: "A", v: "b=c", ok: true},
		{entry: "=x"},
		{entry: "plain"},
		{entry: ""},
	}

	for _, tt := range tests {
		k, v, ok := cutEnv(tt.entry)
		if k != tt.k || v != tt.v || ok != tt.ok {
			t.Fatalf("cutEnv(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.entry, k, v, ok, tt.k, tt.v, tt.ok)
		}
	}
}
