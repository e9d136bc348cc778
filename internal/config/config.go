package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/livetemplate/demobox/internal/attrs"
	"gopkg.in/yaml.v3"
)

// Default component names registered by the wrapper package.
const (
	DefaultWrapperComponentName     = "vitepress-demo-box"
	DefaultPlaceholderComponentName = "vitepress-demo-placeholder"
)

// FileNames lists the config file names LoadFromDir looks for, in order.
var FileNames = []string{"demobox.yaml", "demobox.yml"}

// PlatformName identifies an online sandbox provider.
type PlatformName string

const (
	Stackblitz  PlatformName = "stackblitz"
	Codesandbox PlatformName = "codesandbox"
)

// Template is a sandbox project template. Scope is "global" or a component
// type; Files maps file name to contents.
type Template struct {
	Scope string            `yaml:"scope" json:"scope"`
	Files map[string]string `yaml:"files" json:"files"`
}

// Platform configures one sandbox provider.
type Platform struct {
	Show      bool       `yaml:"show" json:"show"`
	Templates []Template `yaml:"templates,omitempty" json:"templates,omitempty"`
}

// Locale maps a language tag to its UI strings.
type Locale map[string]map[string]string

// PluginConfig is the user-facing configuration as written in demobox.yaml.
type PluginConfig struct {
	DemoDir                  string    `yaml:"demoDir,omitempty"`
	Stackblitz               *Platform `yaml:"stackblitz,omitempty"`
	Codesandbox              *Platform `yaml:"codesandbox,omitempty"`
	WrapperComponentName     string    `yaml:"wrapperComponentName,omitempty"`
	PlaceholderComponentName string    `yaml:"placeholderComponentName,omitempty"`
	AutoImportWrapper        *bool     `yaml:"autoImportWrapper,omitempty"`
	SSG                      bool      `yaml:"ssg,omitempty"`
	CodeFold                 *bool     `yaml:"codeFold,omitempty"`
	CodeMeta                 string    `yaml:"codeMeta,omitempty"`
	VueMeta                  string    `yaml:"vueMeta,omitempty"`
	ReactMeta                string    `yaml:"reactMeta,omitempty"`
	HTMLMeta                 string    `yaml:"htmlMeta,omitempty"`
	Locale                   Locale    `yaml:"locale,omitempty"`
}

// Resolved is the fully merged configuration. It is built once and only read
// afterwards; per-demo overrides return copies.
type Resolved struct {
	DemoDir                  string
	Stackblitz               Platform
	Codesandbox              Platform
	WrapperComponentName     string
	PlaceholderComponentName string
	AutoImportWrapper        bool
	SSG                      bool
	CodeFold                 bool
	CodeMeta                 string
	LangMeta                 map[attrs.ComponentType]string
	Locale                   Locale
}

// DefaultPluginConfig returns the configuration used when no file is present.
func DefaultPluginConfig() *PluginConfig {
	autoImport, fold := true, true
	return &PluginConfig{
		Stackblitz:               &Platform{},
		Codesandbox:              &Platform{},
		WrapperComponentName:     DefaultWrapperComponentName,
		PlaceholderComponentName: DefaultPlaceholderComponentName,
		AutoImportWrapper:        &autoImport,
		CodeFold:                 &fold,
	}
}

// Normalize fills every unset option with its default.
func Normalize(c PluginConfig) Resolved {
	r := Resolved{
		DemoDir:                  c.DemoDir,
		WrapperComponentName:     c.WrapperComponentName,
		PlaceholderComponentName: c.PlaceholderComponentName,
		AutoImportWrapper:        true,
		SSG:                      c.SSG,
		CodeFold:                 true,
		CodeMeta:                 c.CodeMeta,
		LangMeta: map[attrs.ComponentType]string{
			attrs.Vue:   c.VueMeta,
			attrs.React: c.ReactMeta,
			attrs.HTML:  c.HTMLMeta,
		},
		Locale: c.Locale,
	}
	if c.Stackblitz != nil {
		r.Stackblitz = c.Stackblitz.clone()
	}
	if c.Codesandbox != nil {
		r.Codesandbox = c.Codesandbox.clone()
	}
	if r.WrapperComponentName == "" {
		r.WrapperComponentName = DefaultWrapperComponentName
	}
	if r.PlaceholderComponentName == "" {
		r.PlaceholderComponentName = DefaultPlaceholderComponentName
	}
	if c.AutoImportWrapper != nil {
		r.AutoImportWrapper = *c.AutoImportWrapper
	}
	if c.CodeFold != nil {
		r.CodeFold = *c.CodeFold
	}
	return r
}

func (p Platform) clone() Platform {
	out := Platform{Show: p.Show}
	if len(p.Templates) > 0 {
		out.Templates = append([]Template(nil), p.Templates...)
	}
	return out
}

// Defaults returns the attribute defaults inherited by every demo block.
func (r Resolved) Defaults() map[string]attrs.Value {
	return map[string]attrs.Value{
		"ssg":      attrs.BoolValue(r.SSG),
		"codeFold": attrs.BoolValue(r.CodeFold),
	}
}

// Meta resolves the code meta for lang. The first non-empty source wins:
// the per-language attribute, the codeMeta attribute, the per-language
// config value, then the global config value.
func (r Resolved) Meta(lang attrs.ComponentType, a *attrs.Attributes) string {
	if a != nil {
		if m := a.String(lang.MetaKey()); m != "" {
			return m
		}
		if m := a.String("codeMeta"); m != "" {
			return m
		}
	}
	if m := r.LangMeta[lang]; m != "" {
		return m
	}
	return r.CodeMeta
}

// Platform returns a copy of the named platform with show overridden by the
// attribute of the same name when it spells a boolean.
func (r Resolved) Platform(name PlatformName, a *attrs.Attributes) Platform {
	var p Platform
	switch name {
	case Stackblitz:
		p = r.Stackblitz.clone()
	case Codesandbox:
		p = r.Codesandbox.clone()
	}
	if a != nil {
		if show, ok := a.Bool(string(name)); ok {
			p.Show = show
		}
	}
	return p
}

// SSGFor reports whether a demo is rendered in static-site mode. A boolean
// ssg attribute overrides the configured value in either direction.
func (r Resolved) SSGFor(a *attrs.Attributes) bool {
	if a != nil {
		if v, ok := a.Bool("ssg"); ok {
			return v
		}
	}
	return r.SSG
}

// WrapperName returns the wrapper tag for a demo, honouring the attribute.
func (r Resolved) WrapperName(a *attrs.Attributes) string {
	if a != nil {
		if v := a.String("wrapperComponentName"); v != "" {
			return v
		}
	}
	return r.WrapperComponentName
}

// PlaceholderName returns the placeholder tag for a demo, honouring the attribute.
func (r Resolved) PlaceholderName(a *attrs.Attributes) string {
	if a != nil {
		if v := a.String("placeholderComponentName"); v != "" {
			return v
		}
	}
	return r.PlaceholderComponentName
}

var componentNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(?:-[A-Za-z0-9]+)*$`)

// Validate checks that the configuration can be normalized into usable markup.
func (c *PluginConfig) Validate() error {
	for field, name := range map[string]string{
		"wrapperComponentName":     c.WrapperComponentName,
		"placeholderComponentName": c.PlaceholderComponentName,
	} {
		if name != "" && !componentNameRe.MatchString(name) {
			return fmt.Errorf("%s: %q is not a valid component name", field, name)
		}
	}
	for _, p := range []struct {
		name     PlatformName
		platform *Platform
	}{{Stackblitz, c.Stackblitz}, {Codesandbox, c.Codesandbox}} {
		if p.platform == nil {
			continue
		}
		for i, t := range p.platform.Templates {
			switch t.Scope {
			case "", "global", string(attrs.Vue), string(attrs.React), string(attrs.HTML):
			default:
				return fmt.Errorf("%s.templates[%d]: unknown scope %q", p.name, i, t.Scope)
			}
		}
	}
	return nil
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns the default configuration.
func Load(configPath string) (*PluginConfig, error) {
	if configPath == "" {
		return DefaultPluginConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultPluginConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultPluginConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	// A relative demoDir is anchored at the config file.
	if cfg.DemoDir != "" && !filepath.IsAbs(cfg.DemoDir) {
		cfg.DemoDir = filepath.Join(filepath.Dir(configPath), cfg.DemoDir)
	}

	return cfg, nil
}

// LoadFromDir looks for demobox.yaml, then demobox.yml, in the given directory.
// If none is found, returns the default configuration.
func LoadFromDir(dir string) (*PluginConfig, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return DefaultPluginConfig(), nil
}

// Save writes the configuration to a YAML file.
func (c *PluginConfig) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
