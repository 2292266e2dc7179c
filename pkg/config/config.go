/*
Configuration:
-------------
One file, HCL or YAML, every block optional:

	calls {
	  triggers   = ["log", "audit"]
	  methods    = ["Information", "Record"]
	  cache_size = 1000
	}
	windows {
	  raw_lookback      = 100
	  raw_lookahead     = 200
	  verbatim_lookback = 50
	}
	cache {
	  template_ttl = "10m"
	}
	template {
	  policy = "strict"   # or "navigation"
	}

Missing blocks and zero fields take the values from Default().
*/
package config

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/logtmpl/pkg/callsite"
	"github.com/walteh/logtmpl/pkg/msgtmpl"
	"github.com/walteh/logtmpl/pkg/multiline"
)

const (
	PolicyStrict     = "strict"
	PolicyNavigation = "navigation"
)

type Config struct {
	Calls    *CallsBlock        `json:"calls,omitempty" hcl:"calls,block" yaml:"calls,omitempty"`
	Windows  *multiline.Windows `json:"windows,omitempty" hcl:"windows,block" yaml:"windows,omitempty"`
	Cache    *CacheBlock        `json:"cache,omitempty" hcl:"cache,block" yaml:"cache,omitempty"`
	Template *TemplateBlock     `json:"template,omitempty" hcl:"template,block" yaml:"template,omitempty"`
}

type CallsBlock struct {
	Triggers  []string `json:"triggers,omitempty" hcl:"triggers,optional" yaml:"triggers,omitempty"`
	Methods   []string `json:"methods,omitempty" hcl:"methods,optional" yaml:"methods,omitempty"`
	CacheSize int      `json:"cache_size,omitempty" hcl:"cache_size,optional" yaml:"cache_size,omitempty"`
}

type CacheBlock struct {
	// TemplateTTL is a duration such as "10m"; empty keeps entries until cleared.
	TemplateTTL string `json:"template_ttl,omitempty" hcl:"template_ttl,optional" yaml:"template_ttl,omitempty"`
}

type TemplateBlock struct {
	Policy string `json:"policy,omitempty" hcl:"policy,optional" yaml:"policy,omitempty"`
}

func Default() *Config {
	opts := callsite.DefaultOptions()
	w := multiline.DefaultWindows()
	return &Config{
		Calls: &CallsBlock{
			Triggers:  opts.Triggers,
			Methods:   opts.Methods,
			CacheSize: opts.CacheSize,
		},
		Windows:  &w,
		Cache:    &CacheBlock{},
		Template: &TemplateBlock{Policy: PolicyStrict},
	}
}

// Load reads path from fs. Files ending in .yaml or .yml are YAML, anything
// else is HCL. The result has defaults applied and is validated.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{},
		}

		diags = gohcl.DecodeBody(file.Body, ctx, &cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (me *Config) applyDefaults() {
	def := Default()

	if me.Calls == nil {
		me.Calls = def.Calls
	}
	if len(me.Calls.Triggers) == 0 {
		me.Calls.Triggers = def.Calls.Triggers
	}
	if len(me.Calls.Methods) == 0 {
		me.Calls.Methods = def.Calls.Methods
	}
	if me.Calls.CacheSize == 0 {
		me.Calls.CacheSize = def.Calls.CacheSize
	}

	if me.Windows == nil {
		me.Windows = def.Windows
	}
	if me.Windows.RawLookback == 0 {
		me.Windows.RawLookback = def.Windows.RawLookback
	}
	if me.Windows.RawLookahead == 0 {
		me.Windows.RawLookahead = def.Windows.RawLookahead
	}
	if me.Windows.VerbatimLookback == 0 {
		me.Windows.VerbatimLookback = def.Windows.VerbatimLookback
	}

	if me.Cache == nil {
		me.Cache = def.Cache
	}

	if me.Template == nil {
		me.Template = def.Template
	}
	if me.Template.Policy == "" {
		me.Template.Policy = def.Template.Policy
	}
}

// Validate reports every problem at once.
func (me *Config) Validate() error {
	var result *multierror.Error

	if me.Calls == nil || me.Windows == nil || me.Cache == nil || me.Template == nil {
		return errors.New("config has missing blocks, use Default or Load")
	}

	if len(me.Calls.Methods) == 0 {
		result = multierror.Append(result, errors.New("calls.methods must not be empty"))
	}
	if me.Calls.CacheSize <= 0 {
		result = multierror.Append(result, errors.Errorf("calls.cache_size must be positive, got %d", me.Calls.CacheSize))
	}
	if err := me.Windows.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := me.Cache.TTL(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := me.Template.TokenizerPolicy(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func (me *CallsBlock) Options() callsite.Options {
	return callsite.Options{
		Triggers:  me.Triggers,
		Methods:   me.Methods,
		CacheSize: me.CacheSize,
	}
}

func (me *CacheBlock) TTL() (time.Duration, error) {
	if me.TemplateTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(me.TemplateTTL)
	if err != nil {
		return 0, errors.Errorf("cache.template_ttl: %w", err)
	}
	if d < 0 {
		return 0, errors.Errorf("cache.template_ttl must not be negative, got %s", d)
	}
	return d, nil
}

func (me *TemplateBlock) TokenizerPolicy() (msgtmpl.Policy, error) {
	switch me.Policy {
	case PolicyStrict, "":
		return msgtmpl.PolicyDiscard, nil
	case PolicyNavigation:
		return msgtmpl.PolicyPartial, nil
	default:
		return 0, errors.Errorf("template.policy must be %q or %q, got %q", PolicyStrict, PolicyNavigation, me.Policy)
	}
}
