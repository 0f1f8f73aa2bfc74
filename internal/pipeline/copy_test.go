package pipeline

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileToTar(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(src, []byte("pandas==2.2.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFileToTar(tw, src, "deps.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tw.Close()

	tr := tar.NewReader(&buf)
	header, err := tr.Next()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header.Name != "deps.txt" {
		t.Fatalf("name = %q, want deps.txt", header.Name)
	}

	data, err := io.ReadAll(tr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pandas==2.2.0\n" {
		t.Fatalf("content = %q", data)
	}

	if _, err := tr.Next(); err != io.EOF {
		t.Fatalf("expected single entry, got %v", err)
	}
}

func TestWriteFileToTarRejectsDirectory(t *testing.T) {
	tw := tar.NewWriter(io.Discard)
	if err := writeFileToTar(tw, t.TempDir(), "dir"); err == nil {
		t.Fatal("expected error for directory source")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tar")
	dst := filepath.Join(dir, "dst.tar")

	if err := os.WriteFile(src, []byte("image-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(dst, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("content = %q, want image-bytes", data)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := copyFile(filepath.Join(dir, "dst"), filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
