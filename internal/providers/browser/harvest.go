package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var (
	// ErrNoBrowser is returned when no supported browser executable is found.
	ErrNoBrowser = errors.New("no supported browser found")
	// ErrNoCredentials is returned when the browser ran but printed nothing usable.
	ErrNoCredentials = errors.New("browser returned no credentials")
)

// harvestScript prints the page's user agent and cookies as one JSON line.
const harvestScript = `console.log(JSON.stringify({
  userAgent: navigator.userAgent,
  cookies: document.cookie
}));
window.close();
`

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Credentials are the ambient identity a browser presents to the site.
type Credentials struct {
	UserAgent string
	Cookies   map[string]string
}

// Valid reports whether both a user agent and at least one cookie were captured.
func (c Credentials) Valid() bool {
	return c.UserAgent != "" && len(c.Cookies) > 0
}

// runner executes a command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Harvester launches a headless browser to pick up cookies a plain HTTP
// client cannot obtain, such as anti-bot clearance tokens.
type Harvester struct {
	finder  *Finder
	timeout time.Duration
	log     *logging.Logger
	metrics *monitoring.Metrics
	run     runner
}

// NewHarvester creates a harvester. A zero timeout means 60 seconds.
func NewHarvester(finder *Finder, timeout time.Duration, log *logging.Logger, metrics *monitoring.Metrics) *Harvester {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Harvester{
		finder:  finder,
		timeout: timeout,
		log:     log.Named("browser"),
		metrics: metrics,
		run:     execRunner,
	}
}

// Harvest opens pageURL in a throwaway profile and returns the credentials it printed.
func (h *Harvester) Harvest(ctx context.Context, pageURL string) (Credentials, error) {
	path, err := h.finder.Find()
	if err != nil {
		h.metrics.RecordHarvest("no_browser")
		return Credentials{}, err
	}

	profile, err := os.MkdirTemp("", "danwiki-profile-*")
	if err != nil {
		return Credentials{}, fmt.Errorf("create browser profile: %w", err)
	}
	defer os.RemoveAll(profile)

	script := filepath.Join(profile, "harvest.js")
	if err := os.WriteFile(script, []byte(harvestScript), 0o600); err != nil {
		return Credentials{}, fmt.Errorf("write harvest script: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.log.Info("launching browser for credentials", zap.String("browser", path), zap.String("url", pageURL))
	start := time.Now()
	out, runErr := h.run(ctx, path, LaunchArgs(profile, script, pageURL)...)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		h.metrics.RecordHarvest("timeout")
		return Credentials{}, fmt.Errorf("browser timed out after %s: %w", h.timeout, ctx.Err())
	}

	// A non-zero exit still counts when the script got to print.
	creds, err := ParseOutput(out)
	if err != nil {
		h.metrics.RecordHarvest("failed")
		return Credentials{}, errors.Join(err, runErr)
	}

	h.metrics.RecordHarvest("ok")
	h.log.Info("browser credentials captured",
		zap.Int("cookies", len(creds.Cookies)),
		zap.Duration("took", time.Since(start)))
	return creds, nil
}

// LaunchArgs builds the headless browser command line.
func LaunchArgs(profileDir, scriptPath, pageURL string) []string {
	return []string{
		"--user-data-dir=" + profileDir,
		"--headless=new",
		"--disable-gpu",
		"--no-first-run",
		"--no-default-browser-check",
		"--app=" + pageURL,
		"--run-script=" + scriptPath,
	}
}

type harvestOutput struct {
	UserAgent string `json:"userAgent"`
	Cookies   string `json:"cookies"`
}

// ParseOutput extracts the JSON object the harvest script printed.
func ParseOutput(out []byte) (Credentials, error) {
	match := jsonObject.Find(out)
	if match == nil {
		return Credentials{}, ErrNoCredentials
	}

	var raw harvestOutput
	if err := sonic.Unmarshal(match, &raw); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}

	return Credentials{
		UserAgent: raw.UserAgent,
		Cookies:   ParseCookieHeader(raw.Cookies),
	}, nil
}

// ParseCookieHeader splits a document.cookie string into name/value pairs.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}
