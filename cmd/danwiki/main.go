package main

import (
	"fmt"
	"net"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/danwiki/internal/app"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/config"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
)

// Version is set at build time.
var Version = "0.3.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "danwiki",
		Usage:                  "Cache and search booru wiki tag pages",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "Tag record file (overrides DANWIKI_STORE)",
			},
			&cli.StringFlag{
				Name:  "site",
				Usage: "Wiki site: safebooru, danbooru, or a base URL (overrides DANWIKI_SITE)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides LOG_LEVEL)",
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "Human-readable development logs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Aliases:   []string{"f"},
				Usage:     "Show a tag from the cache, fetching it from the wiki if needed",
				ArgsUsage: "<tag>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: fetchCommand,
			},
			{
				Name:      "search",
				Usage:     "Search cached tags, translations, and synonyms",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: searchCommand,
			},
			{
				Name:      "show",
				Usage:     "Print one cached record",
				ArgsUsage: "<tag>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: showCommand,
			},
			{
				Name:      "translate",
				Usage:     "Set the translated tag name and meaning of a cached record",
				ArgsUsage: "<tag>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag-translation", Aliases: []string{"t"}, Usage: "Translated tag name"},
					&cli.StringFlag{Name: "meaning-translation", Aliases: []string{"m"}, Usage: "Translated meaning"},
				},
				Action: translateCommand,
			},
			{
				Name:      "suggest",
				Usage:     "Suggest an alternate wiki page for a tag",
				ArgsUsage: "<tag>",
				Action:    suggestCommand,
			},
			{
				Name:      "complete",
				Usage:     "List indexed words starting with a prefix",
				ArgsUsage: "<prefix>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results", Value: 10},
				},
				Action: completeCommand,
			},
			{
				Name:  "export",
				Usage: "Write every cached record as json, yaml, or toml",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, yaml, or toml", Value: "json"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, compressed when it ends in .gz or .zst (default stdout)"},
				},
				Action: exportCommand,
			},
			{
				Name:      "import",
				Usage:     "Merge records from a JSON export (.json, .json.gz, .json.zst)",
				ArgsUsage: "<file>",
				Action:    importCommand,
			},
			{
				Name:  "serve",
				Usage: "Run the local JSON API and event stream",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address host:port (overrides HOST and PORT)"},
				},
				Action: serveCommand,
			},
		},
	}
}

// loadConfig reads the environment, falling back to defaults when it does not
// parse, and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.LoadOrDefault()

	if v := c.String("store"); v != "" {
		cfg.Store.Path = v
	}
	if v := c.String("site"); v != "" {
		cfg.Site.BaseURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if c.Bool("dev") {
		cfg.Logging.Development = true
	}
	if v := c.String("addr"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --addr %q: %w", v, err)
		}
		if host != "" {
			cfg.Server.Host = host
		}
		cfg.Server.Port = port
	}
	return cfg, nil
}

// setup builds the application for one command invocation.
func setup(c *cli.Context) (*app.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		// unknown level: keep the mode's own level
		if cfg.Logging.Development {
			logger = logging.NewDevelopment()
		} else {
			logger = logging.NewDefault()
		}
		logger.Warn("invalid log level, using default", zap.String("level", cfg.Logging.Level), zap.Error(err))
	}

	return app.New(cfg, logger)
}
