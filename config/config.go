// Package config loads findmerges settings from a YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"

	shlex "github.com/flynn/go-shlex"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings of a mining run.
type Config struct {
	OutputDir  string `yaml:"output_dir" validate:"required"`
	ScratchDir string `yaml:"scratch_dir" validate:"required"`

	Workers            int   `yaml:"workers" validate:"gte=1,lte=256"`
	MaxMergesPerBranch int   `yaml:"max_merges_per_branch" validate:"gte=0"`
	Seed               int64 `yaml:"seed"`

	Backend           string `yaml:"backend" validate:"oneof=git gogit hg"`
	GitCommand        string `yaml:"git_command"`
	FetchPullRequests bool   `yaml:"fetch_pull_requests"`
	SSHKeyFile        string `yaml:"ssh_key_file" validate:"omitempty,file"`
	KeepClones        bool   `yaml:"keep_clones"`

	IncludeBase bool `yaml:"include_base"`
	CacheSize   int  `yaml:"cache_size" validate:"gte=0"`

	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile string `yaml:"metrics_file"`
	AppdashAddr string `yaml:"appdash_addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		OutputDir:          "merges",
		ScratchDir:         DefaultScratchDir(),
		Workers:            1,
		MaxMergesPerBranch: 2000,
		Seed:               0,
		Backend:            "gogit",
		GitCommand:         "git",
		FetchPullRequests:  true,
		CacheSize:          256,
		LogLevel:           "info",
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path means defaults only. Unknown keys are errors.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && err != io.EOF {
			return Config{}, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err)
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks every field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidConfig, f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if _, err := c.GitArgs(); err != nil {
		return fmt.Errorf("%w: git_command: %s", ErrInvalidConfig, err)
	}
	return nil
}

// GitArgs splits GitCommand into the program and its leading arguments.
func (c Config) GitArgs() ([]string, error) {
	args, err := shlex.Split(c.GitCommand)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}

// LoadEnv loads environment variables from the given .env files, or from
// ./.env if none are given. Missing files are ignored; variables already
// set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// DefaultScratchDir is where clones are made: under /scratch/$USER if
// /scratch exists, else under the temporary directory.
func DefaultScratchDir() string {
	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	} else if v := os.Getenv("USER"); v != "" {
		name = v
	}
	root := os.TempDir()
	if fi, err := os.Stat("/scratch"); err == nil && fi.IsDir() {
		root = "/scratch"
	}
	return filepath.Join(root, name, "ast-merge-eval-data")
}
