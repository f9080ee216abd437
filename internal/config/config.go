package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LocalFile is the per-directory config file looked up from the working
// directory upward.
const LocalFile = ".fitcheck.yaml"

// Global configuration structure.
type Global struct {
	// Column roles
	ObservedColumn string `mapstructure:"observed_column" yaml:"observed_column"`
	ResidualColumn string `mapstructure:"residual_column" yaml:"residual_column"`
	FittedColumn   string `mapstructure:"fitted_column" yaml:"fitted_column"`

	// Fit quality and verdict thresholds
	NearZero          float64 `mapstructure:"near_zero" yaml:"near_zero"`
	BiasThreshold     float64 `mapstructure:"bias_threshold" yaml:"bias_threshold"`
	PoorRelErrStd     float64 `mapstructure:"poor_rel_err_std" yaml:"poor_rel_err_std"`
	MarginalRelErrStd float64 `mapstructure:"marginal_rel_err_std" yaml:"marginal_rel_err_std"`
	MaxAbsRelErrMean  float64 `mapstructure:"max_abs_rel_err_mean" yaml:"max_abs_rel_err_mean"`

	// Data checks and hints
	MaxLevels              int     `mapstructure:"max_levels" yaml:"max_levels"`
	IdentityTolerance      float64 `mapstructure:"identity_tolerance" yaml:"identity_tolerance"`
	CollinearityThreshold  float64 `mapstructure:"collinearity_threshold" yaml:"collinearity_threshold"`
	WeakPredictorThreshold float64 `mapstructure:"weak_predictor_threshold" yaml:"weak_predictor_threshold"`
	SkewThreshold          float64 `mapstructure:"skew_threshold" yaml:"skew_threshold"`
	AutoCategorical        bool    `mapstructure:"auto_categorical" yaml:"auto_categorical"`

	// Output
	HistogramBins int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	OutputFormat  string `mapstructure:"output_format" yaml:"output_format"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogColor      bool   `mapstructure:"log_color" yaml:"log_color"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("observed_column", "Observed")
	v.SetDefault("residual_column", "Fitted_residuals")
	v.SetDefault("fitted_column", "Fitted_Values")
	v.SetDefault("near_zero", 1e-6)
	v.SetDefault("bias_threshold", 0.01)
	v.SetDefault("poor_rel_err_std", 70.0)
	v.SetDefault("marginal_rel_err_std", 35.0)
	v.SetDefault("max_abs_rel_err_mean", 5.0)
	v.SetDefault("max_levels", 10)
	v.SetDefault("identity_tolerance", 1e-6)
	v.SetDefault("collinearity_threshold", 0.3)
	v.SetDefault("weak_predictor_threshold", 0.05)
	v.SetDefault("skew_threshold", 1.0)
	v.SetDefault("auto_categorical", true)
	v.SetDefault("histogram_bins", 10)
	v.SetDefault("output_format", "markdown")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_color", false)
}

// Defaults returns the configuration used when no file or env var is set.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// DefaultPath returns ~/.fitcheck/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".fitcheck", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.fitcheck/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. The config file is cfgFile when
// set, else the nearest .fitcheck.yaml above the working directory, else
// ~/.fitcheck/config.yaml. A missing default file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FITCHECK")
	v.AutomaticEnv()
	setDefaults(v)

	explicit := cfgFile != ""
	if !explicit {
		if local, err := utils.FindUpward("", LocalFile); err == nil {
			cfgFile = local
			explicit = true
		}
	}
	if explicit {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if path, err := DefaultPath(); err == nil {
			v.AddConfigPath(filepath.Dir(path))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			// optional read
			_ = v.ReadInConfig()
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the analysis cannot work with.
func (c *Global) Validate() error {
	if c.ResidualColumn == "" || c.FittedColumn == "" {
		return fmt.Errorf("residual_column and fitted_column must be set")
	}
	if c.NearZero < 0 {
		return fmt.Errorf("near_zero must be >= 0, got %g", c.NearZero)
	}
	if c.MarginalRelErrStd > c.PoorRelErrStd {
		return fmt.Errorf("marginal_rel_err_std (%g) must not exceed poor_rel_err_std (%g)", c.MarginalRelErrStd, c.PoorRelErrStd)
	}
	if c.MaxLevels < 0 || c.HistogramBins < 0 {
		return fmt.Errorf("max_levels and histogram_bins must be >= 0")
	}
	switch c.OutputFormat {
	case "", "markdown", "json", "table":
	default:
		return fmt.Errorf("invalid output_format: %s (use markdown, json or table)", c.OutputFormat)
	}
	return nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"observed_column", "residual_column", "fitted_column",
		"near_zero", "bias_threshold", "poor_rel_err_std", "marginal_rel_err_std", "max_abs_rel_err_mean",
		"max_levels", "identity_tolerance", "collinearity_threshold", "weak_predictor_threshold", "skew_threshold", "auto_categorical",
		"histogram_bins", "output_format", "log_level", "log_color",
	}
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, error) {
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	switch key {
	case "observed_column":
		return c.ObservedColumn, nil
	case "residual_column":
		return c.ResidualColumn, nil
	case "fitted_column":
		return c.FittedColumn, nil
	case "near_zero":
		return f(c.NearZero), nil
	case "bias_threshold":
		return f(c.BiasThreshold), nil
	case "poor_rel_err_std":
		return f(c.PoorRelErrStd), nil
	case "marginal_rel_err_std":
		return f(c.MarginalRelErrStd), nil
	case "max_abs_rel_err_mean":
		return f(c.MaxAbsRelErrMean), nil
	case "max_levels":
		return strconv.Itoa(c.MaxLevels), nil
	case "identity_tolerance":
		return f(c.IdentityTolerance), nil
	case "collinearity_threshold":
		return f(c.CollinearityThreshold), nil
	case "weak_predictor_threshold":
		return f(c.WeakPredictorThreshold), nil
	case "skew_threshold":
		return f(c.SkewThreshold), nil
	case "auto_categorical":
		return strconv.FormatBool(c.AutoCategorical), nil
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins), nil
	case "output_format":
		return c.OutputFormat, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_color":
		return strconv.FormatBool(c.LogColor), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	float := func(dst *float64) error {
		x, err := strconv.ParseFloat(val, 64)
		if err != nil || x < 0 {
			return fmt.Errorf("invalid non-negative number for %s: %v", key, val)
		}
		*dst = x
		return nil
	}
	integer := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid non-negative int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	boolean := func(dst *bool) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		*dst = b
		return nil
	}
	switch key {
	case "observed_column":
		c.ObservedColumn = val
	case "residual_column":
		c.ResidualColumn = val
	case "fitted_column":
		c.FittedColumn = val
	case "near_zero":
		return float(&c.NearZero)
	case "bias_threshold":
		return float(&c.BiasThreshold)
	case "poor_rel_err_std":
		return float(&c.PoorRelErrStd)
	case "marginal_rel_err_std":
		return float(&c.MarginalRelErrStd)
	case "max_abs_rel_err_mean":
		return float(&c.MaxAbsRelErrMean)
	case "max_levels":
		return integer(&c.MaxLevels)
	case "identity_tolerance":
		return float(&c.IdentityTolerance)
	case "collinearity_threshold":
		return float(&c.CollinearityThreshold)
	case "weak_predictor_threshold":
		return float(&c.WeakPredictorThreshold)
	case "skew_threshold":
		return float(&c.SkewThreshold)
	case "auto_categorical":
		return boolean(&c.AutoCategorical)
	case "log_color":
		return boolean(&c.LogColor)
	case "histogram_bins":
		return integer(&c.HistogramBins)
	case "output_format":
		switch strings.ToLower(val) {
		case "markdown", "md":
			c.OutputFormat = "markdown"
		case "json":
			c.OutputFormat = "json"
		case "table":
			c.OutputFormat = "table"
		default:
			return fmt.Errorf("invalid output_format: %s (use markdown, json or table)", val)
		}
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
