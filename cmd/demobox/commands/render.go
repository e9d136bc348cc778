package commands

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/livetemplate/demobox/internal/assets"
)

func newRenderCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file.md>",
		Short: "Render a Markdown file to HTML",
		Example: `  demobox render docs/button.md
  demobox render docs/button.md -o button.html --page
  DEMOBOX_SSG=true demobox render docs/button.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, v, args[0])
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write HTML to this file instead of stdout")
	cmd.Flags().Bool("page", false, "Wrap the output in a standalone HTML page")
	cmd.Flags().Bool("strict", false, "Fail when any demo reports a diagnostic")
	_ = v.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = v.BindPFlag("page", cmd.Flags().Lookup("page"))
	_ = v.BindPFlag("strict", cmd.Flags().Lookup("strict"))
	return cmd
}

func runRender(cmd *cobra.Command, v *viper.Viper, input string) error {
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
	if v.GetBool("strict") && len(res.Diagnostics) > 0 {
		return fmt.Errorf("%s: %d demo diagnostics, first: %w", input, len(res.Diagnostics), res.Diagnostics[0])
	}

	out := []byte(res.HTML)
	if v.GetBool("page") {
		out, err = standalonePage(res.Frontmatter.Title, res.Frontmatter.Description, res.HTML, md.Style())
		if err != nil {
			return err
		}
	}

	if path := v.GetString("output"); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Info("Rendered page", "input", input, "output", path, "demos", res.Demos)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// standalonePage wraps body in the page shell with the page and highlight
// stylesheets inlined.
func standalonePage(title, description, body, style string) ([]byte, error) {
	tmpl, err := assets.PageTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load page template: %w", err)
	}
	pageCSS, err := assets.GetPageCSS()
	if err != nil {
		return nil, err
	}
	chromaCSS, err := assets.GetChromaCSS(style)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Title":       title,
		"Description": description,
		"Content":     template.HTML(body),
		"InlineCSS":   template.CSS(string(pageCSS) + "\n" + string(chromaCSS)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute page template: %w", err)
	}
	return buf.Bytes(), nil
}
