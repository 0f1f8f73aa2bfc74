package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilnbuild/kilnd/internal/manifest"
)

func testPlan(t *testing.T, variant manifest.Variant) *manifest.Plan {
	t.Helper()
	p, err := manifest.Parse([]byte(`
name    = "screener"
variant = "` + string(variant) + `"

[base]
ref = "docker.io/library/python:3.11-slim"
`))
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	return p
}

func stageByName(t *testing.T, stages []stage, name string) stage {
	t.Helper()
	for _, st := range stages {
		if st.name == name {
			return st
		}
	}
	t.Fatalf("no stage named %q", name)
	return stage{}
}

func TestSynthesizeShape(t *testing.T) {
	stages := synthesize(testPlan(t, manifest.Heavy))

	want := []string{"base", "system", "deps", "payload"}
	if len(stages) != len(want) {
		t.Fatalf("len(stages) = %d, want %d", len(stages), len(want))
	}
	for i, name := range want {
		if stages[i].name != name {
			t.Fatalf("stages[%d] = %q, want %q", i, stages[i].name, name)
		}
	}

	if !stages[0].empty() {
		t.Fatal("base stage should execute nothing")
	}
	if stages[3].empty() {
		t.Fatal("payload stage should copy the entrypoint")
	}
}

func TestSystemStagePackages(t *testing.T) {
	heavy := stageByName(t, synthesize(testPlan(t, manifest.Heavy)), "system")
	lean := stageByName(t, synthesize(testPlan(t, manifest.Lean)), "system")

	if len(heavy.commands) != 1 || len(lean.commands) != 1 {
		t.Fatal("system stage must install and clean up in a single command")
	}

	for _, pkg := range []string{"build-essential", "gfortran", "libopenblas-dev"} {
		if !strings.Contains(heavy.commands[0], pkg) {
			t.Fatalf("heavy install missing %q: %s", pkg, heavy.commands[0])
		}
		if strings.Contains(lean.commands[0], pkg) {
			t.Fatalf("lean install includes toolchain package %q", pkg)
		}
	}
	if !strings.Contains(lean.commands[0], "ca-certificates") {
		t.Fatalf("lean install missing ca-certificates: %s", lean.commands[0])
	}

	// Cleanup must share the install command so the index files never
	// persist in the stage's layer.
	for _, cmd := range []string{heavy.commands[0], lean.commands[0]} {
		if !strings.Contains(cmd, "rm -rf /var/lib/apt/lists/*") {
			t.Fatalf("install command does not prune the package index: %s", cmd)
		}
	}

	if heavy.env["DEBIAN_FRONTEND"] != "noninteractive" {
		t.Fatal("system stage missing DEBIAN_FRONTEND overlay")
	}
}

func TestSystemStageExtraPackages(t *testing.T) {
	p := testPlan(t, manifest.Lean)
	p.System.ExtraPackages = []string{"git"}

	st := stageByName(t, synthesize(p), "system")
	if !strings.Contains(st.commands[0], " git ") && !strings.Contains(st.commands[0], " git &&") {
		t.Fatalf("extra package not installed: %s", st.commands[0])
	}
}

func TestDepsStage(t *testing.T) {
	heavy := stageByName(t, synthesize(testPlan(t, manifest.Heavy)), "deps")
	lean := stageByName(t, synthesize(testPlan(t, manifest.Lean)), "deps")

	// Only the manifest is copied; the entrypoint must not appear.
	if len(heavy.copies) != 1 || heavy.copies[0].src != "requirements.txt" {
		t.Fatalf("heavy copies = %+v, want only requirements.txt", heavy.copies)
	}
	if heavy.copies[0].dest != "/app/requirements.txt" {
		t.Fatalf("dest = %q, want /app/requirements.txt", heavy.copies[0].dest)
	}

	if len(heavy.commands) != 1 {
		t.Fatalf("heavy commands = %v, want a single install", heavy.commands)
	}
	if strings.Contains(heavy.commands[0], "--only-binary") {
		t.Fatal("heavy install must allow source builds")
	}

	if len(lean.commands) != 2 {
		t.Fatalf("lean commands = %v, want upgrade then install", lean.commands)
	}
	if !strings.Contains(lean.commands[0], "pip install --upgrade pip setuptools wheel") {
		t.Fatalf("lean must upgrade the installer first: %s", lean.commands[0])
	}
	if !strings.Contains(lean.commands[1], "--only-binary=:all:") {
		t.Fatalf("lean install must forbid source distributions: %s", lean.commands[1])
	}

	if !errors.Is(heavy.failure, ErrDependencyResolution) {
		t.Fatal("deps stage failures must classify as dependency resolution")
	}
}

func TestPayloadStage(t *testing.T) {
	heavy := stageByName(t, synthesize(testPlan(t, manifest.Heavy)), "payload")
	lean := stageByName(t, synthesize(testPlan(t, manifest.Lean)), "payload")

	if len(heavy.copies) != 1 || heavy.copies[0].src != "main.py" {
		t.Fatalf("payload copies = %+v, want only main.py", heavy.copies)
	}

	wantHeavy := []string{"python", "/app/main.py"}
	wantLean := []string{"python", "-u", "/app/main.py"}
	assertArgs(t, heavy.export.entrypoint, wantHeavy)
	assertArgs(t, lean.export.entrypoint, wantLean)

	if heavy.export.workingDir != "/app" {
		t.Fatalf("workingDir = %q, want /app", heavy.export.workingDir)
	}
}

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeyInputsCoverDeclarations(t *testing.T) {
	st := stageByName(t, synthesize(testPlan(t, manifest.Lean)), "deps")
	inputs := strings.Join(st.keyInputs([]string{"PYTHONUNBUFFERED=1"}), "\n")

	for _, want := range []string{
		"deps",
		"PYTHONUNBUFFERED=1",
		"requirements.txt => /app/requirements.txt",
		"--only-binary=:all:",
	} {
		if !strings.Contains(inputs, want) {
			t.Fatalf("key inputs missing %q:\n%s", want, inputs)
		}
	}
}
