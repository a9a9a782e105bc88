package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sampleConfig struct {
	Name    string `split_words:"true" required:"true"`
	Retries int    `split_words:"true" default:"3"`
}

func (c *sampleConfig) Validate() error {
	if c.Retries > 10 {
		return errors.New("retries must be <= 10")
	}
	return nil
}

func TestProcessReadsPrefixedEnv(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "concierge")

	conf, err := Process[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if conf.Name != "concierge" || conf.Retries != 3 {
		t.Fatalf("unexpected config: %+v", conf)
	}
}

func TestProcessRunsValidator(t *testing.T) {
	t.Setenv("CFGVAL_NAME", "concierge")
	t.Setenv("CFGVAL_RETRIES", "11")

	if _, err := Process[sampleConfig]("CFGVAL"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestProcessRequiredMissing(t *testing.T) {
	if _, err := Process[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestExportEnvironmentKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "CFGFILE_NAME=from-file\nCFGFILE_RETRIES=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGFILE_NAME", "from-env")
	t.Setenv("CFGFILE_RETRIES", "")
	os.Unsetenv("CFGFILE_RETRIES")

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}

	if got := os.Getenv("CFGFILE_NAME"); got != "from-env" {
		t.Fatalf("CFGFILE_NAME = %q, want from-env", got)
	}
	if got := os.Getenv("CFGFILE_RETRIES"); got != "7" {
		t.Fatalf("CFGFILE_RETRIES = %q, want 7", got)
	}
}
