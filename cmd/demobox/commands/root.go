// Package commands implements the demobox CLI.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/livetemplate/demobox"
	"github.com/livetemplate/demobox/internal/cache"
	"github.com/livetemplate/demobox/internal/config"
)

// EnvPrefix prefixes the environment variables that override flags,
// e.g. DEMOBOX_PORT.
const EnvPrefix = "DEMOBOX"

// NewRootCommand builds the demobox command tree. Each call returns an
// independent tree with its own viper instance.
func NewRootCommand(version string) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "demobox",
		Short: "Markdown pages with live Vue, React and HTML demos",
		Long: `demobox compiles <demo> tags and ::: demo containers in Markdown
into demo box components carrying highlighted sources and playground links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to demobox.yaml (default: look next to the input)")
	root.PersistentFlags().String("demo-dir", "", "Directory demo paths resolve against")
	root.PersistentFlags().Bool("ssg", false, "Compile every demo for static generation")
	root.PersistentFlags().String("style", "github", "Chroma style for highlighted code")
	root.PersistentFlags().Bool("async", false, "Highlight code blocks concurrently")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		newRenderCommand(v),
		newServeCommand(v),
		newInspectCommand(v),
		newInitCommand(v),
		newVersionCommand(version),
	)
	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "demobox version %s\n", version)
		},
	}
}

// newLogger logs to w at info level, or debug when verbose is set.
func newLogger(v *viper.Viper, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the plugin configuration from --config, or from a
// demobox.yaml in dir, and applies flag overrides.
func loadConfig(v *viper.Viper, dir string) (config.Resolved, error) {
	var (
		cfg *config.PluginConfig
		err error
	)
	if path := v.GetString("config"); path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Resolved{}, fmt.Errorf("config file does not exist: %s", path)
		}
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(dir)
	}
	if err != nil {
		return config.Resolved{}, fmt.Errorf("failed to load config: %w", err)
	}

	if d := v.GetString("demo-dir"); d != "" {
		abs, err := filepath.Abs(d)
		if err != nil {
			return config.Resolved{}, fmt.Errorf("invalid demo dir: %w", err)
		}
		cfg.DemoDir = abs
	}
	if v.GetBool("ssg") {
		cfg.SSG = true
	}
	return config.Normalize(*cfg), nil
}

// newMarkdown builds the renderer for the settings in v.
func newMarkdown(v *viper.Viper, cfg config.Resolved, logger *slog.Logger, c cache.Cache) *demobox.Markdown {
	opts := []demobox.Option{
		demobox.WithLogger(logger),
		demobox.WithHighlightStyle(v.GetString("style")),
		demobox.WithAsyncHighlight(v.GetBool("async")),
	}
	if c != nil {
		opts = append(opts, demobox.WithCache(c, cache.DefaultTTL))
	}
	return demobox.New(cfg, opts...)
}
