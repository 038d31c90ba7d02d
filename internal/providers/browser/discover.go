package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// commandNames are looked up on PATH after the well-known install locations.
var commandNames = []string{"chrome", "google-chrome", "chromium", "chromium-browser", "msedge", "firefox"}

var appBundles = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
}

// Finder locates a browser executable once and remembers the answer.
type Finder struct {
	configured string
	getenv     func(string) string
	lookPath   func(string) (string, error)
	bundles    []string

	once sync.Once
	path string
}

// NewFinder creates a finder. A non-empty configured path always wins.
func NewFinder(configured string) *Finder {
	return &Finder{
		configured: configured,
		getenv:     os.Getenv,
		lookPath:   exec.LookPath,
		bundles:    appBundles,
	}
}

// Find returns the browser path or ErrNoBrowser.
func (f *Finder) Find() (string, error) {
	f.once.Do(func() { f.path = f.discover() })
	if f.path == "" {
		return "", ErrNoBrowser
	}
	return f.path, nil
}

func (f *Finder) discover() string {
	if f.configured != "" {
		if isFile(f.configured) {
			return f.configured
		}
		if p, err := f.lookPath(f.configured); err == nil {
			return p
		}
	}

	for _, p := range f.installPaths() {
		if isFile(p) {
			return p
		}
	}

	for _, name := range commandNames {
		if p, err := f.lookPath(name); err == nil && p != "" {
			return p
		}
	}
	return ""
}

// installPaths lists default install locations for Chrome and Edge.
func (f *Finder) installPaths() []string {
	var paths []string
	under := func(envKey string, parts ...string) {
		if root := f.getenv(envKey); root != "" {
			paths = append(paths, filepath.Join(append([]string{root}, parts...)...))
		}
	}

	under("PROGRAMFILES", "Google", "Chrome", "Application", "chrome.exe")
	under("LOCALAPPDATA", "Google", "Chrome", "Application", "chrome.exe")
	under("PROGRAMFILES", "Microsoft", "Edge", "Application", "msedge.exe")
	under("PROGRAMFILES(X86)", "Microsoft", "Edge", "Application", "msedge.exe")

	return append(paths, f.bundles...)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
