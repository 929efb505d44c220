package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"receipts/internal/storage"
)

func TestExplainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "timeout", err: context.DeadlineExceeded, want: "--timeout"},
		{name: "not found", err: &storage.StorageError{Op: "Get", Bucket: "b", Object: "o", Err: storage.ErrObjectNotFound}, want: "--bucket"},
		{name: "auth", err: errors.New("rpc error: code = Unauthenticated desc = bad token"), want: "GOOGLE_APPLICATION_CREDENTIALS"},
		{name: "other", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explainError(tt.err, zerolog.Nop())
			if !strings.Contains(got.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, got.Error())
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "receipt.png")
	os.WriteFile(png, []byte("not really a png"), 0o644)
	noExt := filepath.Join(dir, "scan")
	os.WriteFile(noExt, []byte("\x89PNG\r\n\x1a\n0000"), 0o644)

	for path, want := range map[string]string{png: "image/png", noExt: "image/png"} {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		got, err := detectContentType(f, zerolog.Nop())
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if got != want {
			t.Fatalf("%s: expected %q, got %q", filepath.Base(path), want, got)
		}
		if pos, _ := f.Seek(0, 1); pos != 0 {
			t.Fatalf("expected file rewound, at %d", pos)
		}
		f.Close()
	}
}
