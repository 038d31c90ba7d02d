package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Credentials
		wantErr bool
	}{
		{
			name: "noise around json",
			out:  "[0101/000000.000:INFO] starting\n{\"userAgent\":\"UA/1\",\"cookies\":\"a=1; cf_clearance=x=y\"}\nbye",
			want: Credentials{UserAgent: "UA/1", Cookies: map[string]string{"a": "1", "cf_clearance": "x=y"}},
		},
		{
			name: "empty cookies",
			out:  `{"userAgent":"UA/1","cookies":""}`,
			want: Credentials{UserAgent: "UA/1", Cookies: map[string]string{}},
		},
		{name: "no json", out: "crashed", wantErr: true},
		{name: "broken json", out: "{userAgent}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutput([]byte(tt.out))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentialsValid(t *testing.T) {
	assert.True(t, Credentials{UserAgent: "UA", Cookies: map[string]string{"a": "b"}}.Valid())
	assert.False(t, Credentials{UserAgent: "UA"}.Valid())
	assert.False(t, Credentials{Cookies: map[string]string{"a": "b"}}.Valid())
}

func TestParseCookieHeader(t *testing.T) {
	got := ParseCookieHeader(" a=1;b=2 ; junk; =x; c=")
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": ""}, got)
}

func TestLaunchArgs(t *testing.T) {
	args := LaunchArgs("/tmp/p", "/tmp/p/s.js", "https://safebooru.donmai.us/wiki_pages/x")
	assert.Contains(t, args, "--headless=new")
	assert.Contains(t, args, "--user-data-dir=/tmp/p")
	assert.Contains(t, args, "--app=https://safebooru.donmai.us/wiki_pages/x")
	assert.Contains(t, args, "--run-script=/tmp/p/s.js")
}

func fakeBrowser(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestHarvest(t *testing.T) {
	browserPath := fakeBrowser(t)
	h := NewHarvester(NewFinder(browserPath), time.Second, logging.NewNop(), nil)

	var gotName string
	var gotArgs []string
	h.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		for _, a := range args {
			if script, ok := strings.CutPrefix(a, "--run-script="); ok {
				data, err := os.ReadFile(script)
				require.NoError(t, err)
				assert.Contains(t, string(data), "document.cookie")
			}
		}
		return []byte(`{"userAgent":"UA/9","cookies":"cf_clearance=abc"}`), errors.New("exit status 1")
	}

	creds, err := h.Harvest(context.Background(), "https://example.test/wiki_pages/x")
	require.NoError(t, err)
	assert.Equal(t, browserPath, gotName)
	assert.Contains(t, gotArgs, "--app=https://example.test/wiki_pages/x")
	assert.Equal(t, "UA/9", creds.UserAgent)
	assert.Equal(t, map[string]string{"cf_clearance": "abc"}, creds.Cookies)
}

func TestHarvestNoBrowser(t *testing.T) {
	f := NewFinder("")
	f.getenv = func(string) string { return "" }
	f.bundles = nil
	f.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	h := NewHarvester(f, time.Second, logging.NewNop(), nil)
	_, err := h.Harvest(context.Background(), "https://example.test")
	assert.ErrorIs(t, err, ErrNoBrowser)
}

func TestHarvestTimeout(t *testing.T) {
	h := NewHarvester(NewFinder(fakeBrowser(t)), 20*time.Millisecond, logging.NewNop(), nil)
	h.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := h.Harvest(context.Background(), "https://example.test")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHarvestGarbageOutput(t *testing.T) {
	h := NewHarvester(NewFinder(fakeBrowser(t)), time.Second, logging.NewNop(), nil)
	h.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("nothing useful"), nil
	}

	_, err := h.Harvest(context.Background(), "https://example.test")
	assert.ErrorIs(t, err, ErrNoCredentials)
}
