/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acronis/go-apiconsole/config"
)

// Level is a minimal severity of messages that reach the output.
type Level string

// Format selects the encoder of log lines.
type Format string

// Output selects where log lines are written.
type Output string

// FieldMaskFormat tells the masker how a secret field is serialized in a message.
type FieldMaskFormat string

// Supported values.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"

	FormatJSON Format = "json"
	FormatText Format = "text"

	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"

	FieldMaskFormatHTTPHeader FieldMaskFormat = "http_header"
	FieldMaskFormatJSON       FieldMaskFormat = "json"
	FieldMaskFormatURLEncoded FieldMaskFormat = "urlencoded"
)

// Rotation bounds for file output.
const (
	DefaultFileRotationMaxSizeBytes = 250 << 20
	MinFileRotationMaxSizeBytes     = 1 << 20

	DefaultFileRotationMaxBackups = 10
	MinFileRotationMaxBackups     = 1
)

// Config configures the console logger.
//
// Messages are JSON lines on stdout unless Output says otherwise.
// Masking is applied to the message and to string-like fields, so request headers
// and bodies of relayed and queued traffic can be logged without leaking credentials.
type Config struct {
	Level     Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	AddCaller bool             `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`
	Masking   MaskingConfig    `mapstructure:"masking" yaml:"masking" json:"masking"`

	keyPrefix string
}

// FileOutputConfig is used when Output is "file".
// Path may contain {{starttime}} and {{pid}} placeholders.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig controls lumberjack rotation of the log file.
type FileRotationConfig struct {
	MaxSize    config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	Compress   bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// MaskingConfig lists the fields whose values are replaced with "***".
type MaskingConfig struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	UseDefaultRules bool                `mapstructure:"useDefaultRules" yaml:"useDefaultRules" json:"useDefaultRules"`
	Rules           []MaskingRuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

// MaskingRuleConfig describes one secret field.
// Formats generate the usual patterns, Masks add arbitrary ones.
type MaskingRuleConfig struct {
	Field   string            `mapstructure:"field" yaml:"field" json:"field"`
	Formats []FieldMaskFormat `mapstructure:"formats" yaml:"formats" json:"formats"`
	Masks   []MaskConfig      `mapstructure:"masks" yaml:"masks" json:"masks"`
}

// MaskConfig is a raw regexp replacement.
type MaskConfig struct {
	RegExp string `mapstructure:"regexp" yaml:"regexp" json:"regexp"`
	Mask   string `mapstructure:"mask" yaml:"mask" json:"mask"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption customizes NewConfig.
type ConfigOption func(*Config)

// WithKeyPrefix overrides the "log" key prefix.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) {
		c.keyPrefix = keyPrefix
	}
}

// NewConfig returns an empty Config bound to the "log" key prefix.
func NewConfig(options ...ConfigOption) *Config {
	cfg := &Config{keyPrefix: "log"}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// NewDefaultConfig returns a Config filled with the values used when nothing is configured.
// Masking stays off here; it is turned on by the provider defaults.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Level, cfg.Format, cfg.Output = LevelInfo, FormatJSON, OutputStdout
	cfg.File.Rotation.MaxSize = DefaultFileRotationMaxSizeBytes
	cfg.File.Rotation.MaxBackups = DefaultFileRotationMaxBackups
	cfg.Masking.UseDefaultRules = true
	return cfg
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	for key, val := range map[string]interface{}{
		"level":                    string(LevelInfo),
		"format":                   string(FormatJSON),
		"output":                   string(OutputStdout),
		"file.rotation.maxSize":    config.ByteSize(DefaultFileRotationMaxSizeBytes).String(),
		"file.rotation.maxBackups": DefaultFileRotationMaxBackups,
		"masking.enabled":          true,
		"masking.useDefaultRules":  true,
	} {
		dp.SetDefault(key, val)
	}
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Level, err = getChoice(dp, "level", LevelError, LevelWarn, LevelInfo, LevelDebug); err != nil {
		return err
	}
	if c.Format, err = getChoice(dp, "format", FormatJSON, FormatText); err != nil {
		return err
	}
	if c.Output, err = getChoice(dp, "output", OutputStdout, OutputStderr, OutputFile); err != nil {
		return err
	}
	if c.NoColor, err = dp.GetBool("nocolor"); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool("addCaller"); err != nil {
		return err
	}
	if err = c.File.set(dp, c.Output == OutputFile); err != nil {
		return err
	}
	return c.Masking.set(dp)
}

// getChoice reads a case-insensitive value that must be one of choices.
func getChoice[T ~string](dp config.DataProvider, key string, choices ...T) (T, error) {
	set := make([]string, len(choices))
	for i := range choices {
		set[i] = string(choices[i])
	}
	val, err := dp.GetStringFromSet(key, set, true)
	return T(strings.ToLower(val)), err
}

func (fc *FileOutputConfig) set(dp config.DataProvider, required bool) error {
	var err error
	if fc.Path, err = dp.GetString("file.path"); err != nil {
		return err
	}
	if required && fc.Path == "" {
		return dp.WrapKeyErr("file.path", fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}

	rot := &fc.Rotation
	if rot.MaxSize, err = dp.GetByteSize("file.rotation.maxSize"); err != nil {
		return err
	}
	if rot.MaxSize < MinFileRotationMaxSizeBytes {
		return dp.WrapKeyErr("file.rotation.maxSize", fmt.Errorf("should be >= %s", config.ByteSize(MinFileRotationMaxSizeBytes)))
	}
	if rot.MaxBackups, err = dp.GetInt("file.rotation.maxBackups"); err != nil {
		return err
	}
	if rot.MaxBackups < MinFileRotationMaxBackups {
		return dp.WrapKeyErr("file.rotation.maxBackups", fmt.Errorf("should be >= %d", MinFileRotationMaxBackups))
	}
	if rot.MaxAgeDays, err = dp.GetInt("file.rotation.maxAgeDays"); err != nil {
		return err
	}
	if rot.MaxAgeDays < 0 {
		return dp.WrapKeyErr("file.rotation.maxAgeDays", errors.New("should be >= 0"))
	}
	rot.Compress, err = dp.GetBool("file.rotation.compress")
	return err
}

func (mc *MaskingConfig) set(dp config.DataProvider) error {
	var err error
	if mc.Enabled, err = dp.GetBool("masking.enabled"); err != nil {
		return err
	}
	if mc.UseDefaultRules, err = dp.GetBool("masking.useDefaultRules"); err != nil {
		return err
	}
	if err = dp.UnmarshalKey("masking.rules", &mc.Rules); err != nil {
		return err
	}
	for i, rule := range mc.Rules {
		if strings.TrimSpace(rule.Field) == "" {
			return dp.WrapKeyErr(fmt.Sprintf("masking.rules[%d].field", i), errors.New("cannot be empty"))
		}
	}
	return nil
}

// effectiveRules returns the configured rules extended with DefaultMasks when requested.
func (mc *MaskingConfig) effectiveRules() []MaskingRuleConfig {
	if !mc.UseDefaultRules {
		return mc.Rules
	}
	rules := make([]MaskingRuleConfig, 0, len(mc.Rules)+len(DefaultMasks))
	return append(append(rules, mc.Rules...), DefaultMasks...)
}
