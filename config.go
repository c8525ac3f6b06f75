package main

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".lexical-to-mdx"

// Environment overrides, read after .env is loaded
const (
	envAPIBaseURL = "LEXICAL_TO_MDX_API_BASE_URL"
	envBucket     = "LEXICAL_TO_MDX_BUCKET"
	envEndpoint   = "LEXICAL_TO_MDX_ENDPOINT"
)

//go:embed config/settings.yaml
var defaultSettings string

// PublishSettings configures the S3-compatible asset bucket
type PublishSettings struct {
	Bucket       string `yaml:"bucket"`
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
	CacheControl string `yaml:"cache_control"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	InputFile       string          `yaml:"input_file"`
	OutputDirectory string          `yaml:"output_directory"`
	AssetsDirectory string          `yaml:"assets_directory"`
	AssetLinkPrefix string          `yaml:"asset_link_prefix"`
	APIBaseURL      string          `yaml:"api_base_url"`
	PublishedStatus string          `yaml:"published_status"`
	Concurrency     int             `yaml:"concurrency"`
	RequestTimeout  time.Duration   `yaml:"request_timeout"`
	Publish         PublishSettings `yaml:"publish"`
}

// ConfigOverrides holds command-line overrides applied on top of the settings file
type ConfigOverrides struct {
	SettingsPath    *string
	InputFile       *string
	OutputDirectory *string
	AssetsDirectory *string
	APIBaseURL      *string
}

// GetConfigPath returns the full path to a config file
func GetConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// LoadSettings resolves settings from the embedded defaults, the settings
// file, the environment and the overrides, in that order.
func LoadSettings(overrides *ConfigOverrides) (*Settings, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	settings, err := parseSettings([]byte(defaultSettings))
	if err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}

	if overrides != nil && overrides.SettingsPath != nil {
		// Explicit settings file must exist
		data, err := os.ReadFile(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("reading settings %s: %w", *overrides.SettingsPath, err)
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", *overrides.SettingsPath, err)
		}
	} else if data, err := os.ReadFile(GetConfigPath("settings.yaml")); err == nil {
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", GetConfigPath("settings.yaml"), err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	settings.applyEnv()
	settings.applyOverrides(overrides)

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(envAPIBaseURL); v != "" {
		s.APIBaseURL = v
	}
	if v := os.Getenv(envBucket); v != "" {
		s.Publish.Bucket = v
	}
	if v := os.Getenv(envEndpoint); v != "" {
		s.Publish.Endpoint = v
	}
}

func (s *Settings) applyOverrides(o *ConfigOverrides) {
	if o == nil {
		return
	}
	if o.InputFile != nil {
		s.InputFile = *o.InputFile
	}
	if o.OutputDirectory != nil {
		s.OutputDirectory = *o.OutputDirectory
	}
	if o.AssetsDirectory != nil {
		s.AssetsDirectory = *o.AssetsDirectory
	}
	if o.APIBaseURL != nil {
		s.APIBaseURL = *o.APIBaseURL
	}
}

// Validate checks the settings needed by the convert command
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.InputFile, validation.Required),
		validation.Field(&s.OutputDirectory, validation.Required),
		validation.Field(&s.AssetsDirectory, validation.Required),
		validation.Field(&s.PublishedStatus, validation.Required),
		validation.Field(&s.APIBaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&s.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&s.RequestTimeout, validation.Min(time.Duration(0))),
	)
}

// ValidatePublish checks the settings needed by publish-assets
func (p *PublishSettings) ValidatePublish() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Bucket, validation.Required),
		validation.Field(&p.Endpoint, validation.By(func(value any) error {
			if value.(string) == "" {
				return nil
			}
			return absoluteURL(value)
		})),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_absolute_url", "must be an absolute URL")
	}
	return nil
}

// ensureConfigExists creates the config directory and writes settings.yaml if needed
func ensureConfigExists() (string, error) {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := GetConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return "", fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return settingsFile, nil
}

// assetLink joins the asset link prefix and a filename
func (s *Settings) assetLink(filename string) string {
	prefix := s.AssetLinkPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + filename
}
