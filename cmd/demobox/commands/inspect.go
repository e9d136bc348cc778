package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/livetemplate/demobox/internal/runtime"
)

func newInspectCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.md>",
		Short: "List the demo boxes a page compiles to",
		Long: `inspect renders a page and mounts every demo box headless, printing
the tabs, the initially selected tab and the files each box carries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, v, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, v *viper.Viper, input string) error {
	abs, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", input)
		}
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	logger := newLogger(v, cmd.ErrOrStderr())
	cfg, err := loadConfig(v, filepath.Dir(abs))
	if err != nil {
		return err
	}
	md := newMarkdown(v, cfg, logger, nil)

	res, err := md.Convert(cmd.Context(), src, abs)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", input, err)
	}

	stash, err := runtime.ParseStash(strings.NewReader(res.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse rendered HTML: %w", err)
	}
	boxes := runtime.FindDemos(stash.Root(), cfg.WrapperComponentName)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d demos\n", input, len(boxes))
	for i, n := range boxes {
		c := runtime.New(runtime.PropsFromNode(n, nil), runtime.Host{Stash: stash})
		c.Mount()
		describeBox(out, i+1, c)
		c.Unmount()
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(out, d.Format())
	}
	return nil
}

func describeBox(w io.Writer, n int, c *runtime.Controller) {
	var tabs []string
	for _, t := range c.Tabs() {
		tabs = append(tabs, string(t))
	}
	fmt.Fprintf(w, "\n#%d\n  tabs:     %s\n  selected: %s\n", n, strings.Join(tabs, ", "), c.Type())

	if names := c.CurrentFiles().Keys(); len(names) > 0 {
		fmt.Fprintf(w, "  files:    %s\n  active:   %s\n", strings.Join(names, ", "), c.ActiveFile())
	}
	fmt.Fprintf(w, "  folded:   %t\n", c.Folded())
}
