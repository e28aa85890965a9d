package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"caseprep/internal/blob"
	"caseprep/internal/crypto"
	"caseprep/internal/embedding"
	apperr "caseprep/internal/errors"
)

// StoreConfig locates the sealed artifacts. Locations are local paths,
// file:// URIs or s3://bucket/key objects.
type StoreConfig struct {
	Index     string          `yaml:"index"`
	Metadata  string          `yaml:"metadata"`
	Casebook  string          `yaml:"casebook,omitempty"`
	DefaultN  int             `yaml:"default_n"`
	Overfetch OverfetchConfig `yaml:"overfetch"`
}

// OverfetchConfig sizes the candidate window: max(fixed, factor*n).
type OverfetchConfig struct {
	Fixed  int `yaml:"fixed"`
	Factor int `yaml:"factor"`
}

// KeyConfig selects the cipher and where its key comes from.
// Source is env://VAR, file:///path or keyring://service/key; the key itself
// never appears in the config file.
type KeyConfig struct {
	Cipher string `yaml:"cipher"`
	Source string `yaml:"source"`
}

// EmbedderConfig selects and configures the query embedder.
type EmbedderConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimension   int    `yaml:"dimension,omitempty"`
}

// ObjectStorageConfig holds S3-compatible connection details. Credentials
// are read from the named environment variables.
type ObjectStorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region,omitempty"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store         StoreConfig         `yaml:"store"`
	Key           KeyConfig           `yaml:"key"`
	Embedder      EmbedderConfig      `yaml:"embedder"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	Log           LogConfig           `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, apperr.Wrap(err, apperr.CodeConfigLoadReadFailure, "config: reading "+path)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfigParseInvalid, "config: parsing "+path)
	}
	applyConfigDefaults(&cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, apperr.Wrap(errors.Join(errs...), apperr.CodeConfigValidateInvalid, "config: validating "+path)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/caseprep/config.yaml.
// If neither exists, it writes defaults to ~/.config/caseprep/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.CodeConfigLoadReadFailure, "config: locating home directory")
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(err, apperr.CodeConfigSaveFailure, "config: creating "+filepath.Dir(path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeConfigSaveFailure, "config: encoding")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(err, apperr.CodeConfigSaveFailure, "config: writing "+path)
	}
	return nil
}

// Validate checks the configuration for logical errors, collecting every
// problem rather than stopping at the first.
func (c *AppConfig) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateKey()...)
	errs = append(errs, c.validateEmbedder()...)

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, invalid("config: log.level %q is not a valid level", c.Log.Level))
		}
	}
	return errs
}

func (c *AppConfig) validateStore() []error {
	var errs []error

	for _, loc := range []struct{ name, value string }{
		{"store.index", c.Store.Index},
		{"store.metadata", c.Store.Metadata},
		{"store.casebook", c.Store.Casebook},
	} {
		if loc.value == "" {
			if loc.name != "store.casebook" {
				errs = append(errs, invalid("config: %s must not be empty", loc.name))
			}
			continue
		}
		if strings.HasPrefix(loc.value, "s3://") && c.ObjectStorage.Endpoint == "" {
			errs = append(errs, invalid("config: %s is %q but object_storage.endpoint is not set", loc.name, loc.value))
		}
	}
	if c.Store.DefaultN < 1 {
		errs = append(errs, invalid("config: store.default_n must be at least 1, got %d", c.Store.DefaultN))
	}
	if c.Store.Overfetch.Fixed < 0 || c.Store.Overfetch.Factor < 0 {
		errs = append(errs, invalid("config: store.overfetch values must not be negative"))
	}
	return errs
}

func (c *AppConfig) validateKey() []error {
	var errs []error

	validCiphers := map[string]bool{crypto.CipherFernet: true, crypto.CipherSecretbox: true}
	if !validCiphers[c.Key.Cipher] {
		errs = append(errs, invalid("config: key.cipher must be one of [fernet, secretbox], got %q", c.Key.Cipher))
	}
	validSource := false
	for _, scheme := range []string{"env://", "file://", "keyring://"} {
		if strings.HasPrefix(c.Key.Source, scheme) && len(c.Key.Source) > len(scheme) {
			validSource = true
		}
	}
	if !validSource {
		// never echo the value: a pasted key would end up in logs
		errs = append(errs, invalid("config: key.source must be an env://, file:// or keyring:// reference"))
	}
	return errs
}

func (c *AppConfig) validateEmbedder() []error {
	var errs []error

	validProviders := map[string]bool{
		embedding.ProviderOpenAI:  true,
		embedding.ProviderOllama:  true,
		embedding.ProviderHashing: true,
	}
	if !validProviders[c.Embedder.Provider] {
		errs = append(errs, invalid("config: embedder.provider must be one of [openai, ollama, hashing], got %q", c.Embedder.Provider))
	}
	if c.Embedder.TimeoutSecs < 0 {
		errs = append(errs, invalid("config: embedder.timeout_secs must not be negative"))
	}
	if c.Embedder.Dimension < 0 {
		errs = append(errs, invalid("config: embedder.dimension must not be negative"))
	}
	return errs
}

// EmbeddingSpec converts the embedder section for the embedding registry.
func (c *AppConfig) EmbeddingSpec() embedding.Spec {
	return embedding.Spec{
		Provider:  c.Embedder.Provider,
		Model:     c.Embedder.Model,
		BaseURL:   c.Embedder.BaseURL,
		APIKeyEnv: c.Embedder.APIKeyEnv,
		Timeout:   time.Duration(c.Embedder.TimeoutSecs) * time.Second,
		Dimension: c.Embedder.Dimension,
	}
}

// ObjectStore returns client options, or ok=false when object storage is not configured.
func (c *AppConfig) ObjectStore() (cfg blob.ObjectStoreConfig, ok bool) {
	o := c.ObjectStorage
	if o.Endpoint == "" {
		return blob.ObjectStoreConfig{}, false
	}
	return blob.ObjectStoreConfig{
		Endpoint:  o.Endpoint,
		AccessKey: os.Getenv(o.AccessKeyEnv),
		SecretKey: os.Getenv(o.SecretKeyEnv),
		Region:    o.Region,
		UseSSL:    o.UseSSL,
	}, true
}

func invalid(format string, args ...any) error {
	return apperr.Errorf(apperr.CodeConfigValidateInvalid, format, args...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "caseprep", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Store: StoreConfig{
			Index:     "data/faiss_index.encrypted",
			Metadata:  "data/metadata.encrypted",
			DefaultN:  3,
			Overfetch: OverfetchConfig{Fixed: 20, Factor: 4},
		},
		Key: KeyConfig{Cipher: crypto.CipherFernet, Source: "env://CASEPREP_DECRYPTION_KEY"},
		Embedder: EmbedderConfig{
			Provider:    embedding.DefaultProvider,
			Model:       embedding.DefaultModel,
			TimeoutSecs: 30,
		},
		ObjectStorage: ObjectStorageConfig{AccessKeyEnv: "CASEPREP_S3_ACCESS_KEY", SecretKeyEnv: "CASEPREP_S3_SECRET_KEY"},
		Log:           LogConfig{Level: "info"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Store.DefaultN == 0 {
		cfg.Store.DefaultN = def.Store.DefaultN
	}
	if cfg.Store.Overfetch == (OverfetchConfig{}) {
		cfg.Store.Overfetch = def.Store.Overfetch
	}
	if cfg.Key.Cipher == "" {
		cfg.Key.Cipher = def.Key.Cipher
	}
	if cfg.Key.Source == "" {
		cfg.Key.Source = def.Key.Source
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = def.Embedder.Provider
	}
	if cfg.Embedder.Model == "" && cfg.Embedder.Provider != embedding.ProviderHashing {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.ObjectStorage.AccessKeyEnv == "" {
		cfg.ObjectStorage.AccessKeyEnv = def.ObjectStorage.AccessKeyEnv
	}
	if cfg.ObjectStorage.SecretKeyEnv == "" {
		cfg.ObjectStorage.SecretKeyEnv = def.ObjectStorage.SecretKeyEnv
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}
