package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/kilnbuild/kilnd/internal/manifest"
)

func testContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeContextFile(t, dir, "requirements.txt", "pandas==2.2.0\n")
	writeContextFile(t, dir, "main.py", "print('screener')\n")
	return dir
}

func writeContextFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// Computes the full key chain for a build without executing anything,
// returning one key per stage in order.
func keyChain(t *testing.T, b *build) map[string]digest.Digest {
	t.Helper()
	keys := make(map[string]digest.Digest)
	key := digest.Digest("")
	for _, st := range b.stages() {
		next, err := b.stageKey(key, st)
		if err != nil {
			t.Fatalf("stage %q key: %v", st.name, err)
		}
		keys[st.name] = next
		key = next
	}
	return keys
}

func newTestBuild(t *testing.T, plan *manifest.Plan, context string) *build {
	t.Helper()
	return newBuild(nil, nil, Options{
		Plan:     plan,
		Context:  context,
		Platform: "linux/amd64",
		BuildID:  "01JTEST",
	})
}

func TestKeyChainDeterministic(t *testing.T) {
	dir := testContext(t)
	plan := testPlan(t, manifest.Heavy)

	a := keyChain(t, newTestBuild(t, plan, dir))
	b := keyChain(t, newTestBuild(t, plan, dir))

	for name, key := range a {
		if b[name] != key {
			t.Fatalf("stage %q key differs across identical builds", name)
		}
	}
}

func TestKeyChainEntrypointEditIsolated(t *testing.T) {
	dir := testContext(t)
	plan := testPlan(t, manifest.Heavy)

	before := keyChain(t, newTestBuild(t, plan, dir))
	writeContextFile(t, dir, "main.py", "print('edited')\n")
	after := keyChain(t, newTestBuild(t, plan, dir))

	// Editing the entrypoint invalidates only the payload stage.
	for _, name := range []string{"base", "system", "deps"} {
		if before[name] != after[name] {
			t.Fatalf("stage %q key changed after entrypoint edit", name)
		}
	}
	if before["payload"] == after["payload"] {
		t.Fatal("payload key unchanged after entrypoint edit")
	}
}

func TestKeyChainManifestEditCascades(t *testing.T) {
	dir := testContext(t)
	plan := testPlan(t, manifest.Heavy)

	before := keyChain(t, newTestBuild(t, plan, dir))
	writeContextFile(t, dir, "requirements.txt", "pandas==2.2.1\n")
	after := keyChain(t, newTestBuild(t, plan, dir))

	// A manifest edit invalidates the deps stage and everything after it,
	// but not the stages before it.
	for _, name := range []string{"base", "system"} {
		if before[name] != after[name] {
			t.Fatalf("stage %q key changed after manifest edit", name)
		}
	}
	for _, name := range []string{"deps", "payload"} {
		if before[name] == after[name] {
			t.Fatalf("stage %q key unchanged after manifest edit", name)
		}
	}
}

func TestKeyChainVariantDiverges(t *testing.T) {
	dir := testContext(t)

	heavy := keyChain(t, newTestBuild(t, testPlan(t, manifest.Heavy), dir))
	lean := keyChain(t, newTestBuild(t, testPlan(t, manifest.Lean), dir))

	// The variants share a base image but install different packages, so
	// the chains diverge at the system stage.
	if heavy["base"] != lean["base"] {
		t.Fatal("base key differs between variants")
	}
	for _, name := range []string{"system", "deps", "payload"} {
		if heavy[name] == lean[name] {
			t.Fatalf("stage %q key shared between variants", name)
		}
	}
}

func TestKeyChainPlatformDiverges(t *testing.T) {
	dir := testContext(t)
	plan := testPlan(t, manifest.Heavy)

	amd := newTestBuild(t, plan, dir)
	arm := newTestBuild(t, plan, dir)
	arm.platform = "linux/arm64"

	a := keyChain(t, amd)
	b := keyChain(t, arm)

	// The platform seeds the base key, so every stage diverges.
	for name := range a {
		if a[name] == b[name] {
			t.Fatalf("stage %q key shared between platforms", name)
		}
	}
}

func TestKeyChainFlagDiverges(t *testing.T) {
	dir := testContext(t)

	enabled := testPlan(t, manifest.Heavy)
	enabled.Flags.DownloadCache = true

	a := keyChain(t, newTestBuild(t, testPlan(t, manifest.Heavy), dir))
	b := keyChain(t, newTestBuild(t, enabled, dir))

	// Flag environment feeds every stage's key, cached layers baked with
	// one flag set must never satisfy a build with another.
	for _, name := range []string{"system", "deps", "payload"} {
		if a[name] == b[name] {
			t.Fatalf("stage %q key shared across flag settings", name)
		}
	}
}

func TestStageKeyMissingCopySource(t *testing.T) {
	dir := t.TempDir() // No payload files.
	b := newTestBuild(t, testPlan(t, manifest.Heavy), dir)

	key := digest.Digest("")
	var err error
	for _, st := range b.stages() {
		key, err = b.stageKey(key, st)
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrFileSystemOperation) {
		t.Fatalf("err = %v, want ErrFileSystemOperation", err)
	}
}

func TestStageFailureClassification(t *testing.T) {
	b := newTestBuild(t, testPlan(t, manifest.Heavy), t.TempDir())
	st := stageByName(t, b.stages(), "system")

	// The base pull happens lazily inside the first executing stage; its
	// failure must not pick up that stage's class.
	pullErr := fmt.Errorf("%w: %w", ErrBaseImage, errors.New("dial tcp: connection refused"))
	err := b.classify(st, pullErr)
	if !errors.Is(err, ErrBaseImage) {
		t.Fatalf("err = %v, want ErrBaseImage", err)
	}
	if errors.Is(err, ErrSystemPackages) {
		t.Fatalf("base image fetch classified as system package failure: %v", err)
	}

	cmdErr := fmt.Errorf("%w: exit code 100", ErrCommandFailed)
	err = b.classify(st, cmdErr)
	if !errors.Is(err, ErrSystemPackages) {
		t.Fatalf("err = %v, want ErrSystemPackages", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed preserved", err)
	}
}

func TestBuildLowercasesID(t *testing.T) {
	b := newBuild(nil, nil, Options{
		Plan:    testPlan(t, manifest.Heavy),
		BuildID: "01JABCXYZ",
	})
	if b.id != "01jabcxyz" {
		t.Fatalf("id = %q, want lowercase", b.id)
	}
	if got := b.containerID("deps"); got != "screener-01jabcxyz-deps" {
		t.Fatalf("containerID = %q", got)
	}
}
