package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.ResidualColumn != "Fitted_residuals" || c.FittedColumn != "Fitted_Values" || c.ObservedColumn != "Observed" {
		t.Fatalf("unexpected role defaults: %+v", c)
	}
	if c.PoorRelErrStd != 70 || c.MarginalRelErrStd != 35 || c.NearZero != 1e-6 || c.BiasThreshold != 0.01 {
		t.Fatalf("unexpected threshold defaults: %+v", c)
	}
	if c.MaxLevels != 10 || c.HistogramBins != 10 || !c.AutoCategorical || c.OutputFormat != "markdown" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Defaults()
	if err := c.Set("poor_rel_err_std", "60"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("residual_column", "resid"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("output_format", "JSON"); err != nil {
		t.Fatal(err)
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.PoorRelErrStd != 60 || got.ResidualColumn != "resid" || got.OutputFormat != "json" {
		t.Fatalf("round trip lost values: %+v", got)
	}
	if got.FittedColumn != "Fitted_Values" {
		t.Fatalf("default not preserved: %q", got.FittedColumn)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_levels: 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FITCHECK_MAX_LEVELS", "12")
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxLevels != 12 {
		t.Fatalf("env override not applied: %d", got.MaxLevels)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("marginal_rel_err_std: 90\npoor_rel_err_std: 70\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}

func TestSetGet(t *testing.T) {
	c := Defaults()
	for _, key := range Keys() {
		if _, err := c.Get(key); err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
	}
	cases := []struct {
		key, val string
		ok       bool
	}{
		{"near_zero", "0.001", true},
		{"near_zero", "-1", false},
		{"max_levels", "x", false},
		{"auto_categorical", "false", true},
		{"log_level", "loud", false},
		{"log_color", "true", true},
		{"log_color", "maybe", false},
		{"output_format", "md", true},
		{"nope", "1", false},
	}
	for _, tc := range cases {
		err := c.Set(tc.key, tc.val)
		if (err == nil) != tc.ok {
			t.Fatalf("Set(%s, %s) err=%v, want ok=%v", tc.key, tc.val, err, tc.ok)
		}
	}
	if v, _ := c.Get("near_zero"); v != "0.001" {
		t.Fatalf("near_zero = %s", v)
	}
	if v, _ := c.Get("output_format"); v != "markdown" {
		t.Fatalf("output_format = %s", v)
	}
	if v, _ := c.Get("log_color"); v != "true" {
		t.Fatalf("log_color = %s", v)
	}
}
