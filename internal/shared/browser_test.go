package shared

import (
	"errors"
	"os"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	t.Cleanup(func() { getRuntime = orig })

	t.Run("BROWSER env wins", func(t *testing.T) {
		t.Setenv("BROWSER", "my-browser")
		cmd, err := browserCommand("https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cmd.Args[0] != "my-browser" || cmd.Args[1] != "https://example.com" {
			t.Errorf("unexpected args %v", cmd.Args)
		}
	})

	tc := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			t.Setenv("BROWSER", "")
			getRuntime = func() string { return tt.goos }
			cmd, err := browserCommand("https://example.com")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Args[0] != tt.want {
				t.Errorf("expected %s, got %s", tt.want, cmd.Args[0])
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		getRuntime = func() string { return "plan9" }
		if _, err := browserCommand("https://example.com"); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})
}
