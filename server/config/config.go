package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the promptvalley configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Transfer TransferConfig `yaml:"transfer"`
	Media    MediaConfig    `yaml:"media"`
	HTTP     HTTPConfig     `yaml:"http"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`      // "json" or "console"
	FilePath   string `yaml:"file_path"`   // Path to log file
	Console    bool   `yaml:"console"`     // Whether to log to console
	MaxSize    int    `yaml:"max_size"`    // Max file size in MB
	MaxBackups int    `yaml:"max_backups"` // Max number of rotated files
	MaxAge     int    `yaml:"max_age"`     // Max age in days
	Compress   bool   `yaml:"compress"`    // Gzip rotated files
	Cleanup    bool   `yaml:"cleanup"`     // Truncate log file on startup
}

// DatabaseConfig points at the SQLite catalog database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig selects the object storage backend
type StorageConfig struct {
	Backend   string      `yaml:"backend"`    // "memory", "filesystem" or "minio"
	PublicURL string      `yaml:"public_url"` // base for public object URLs
	DataPath  string      `yaml:"data_path"`  // root directory of the filesystem backend
	Minio     MinioConfig `yaml:"minio"`
}

// MinioConfig holds connection settings for any S3 compatible endpoint
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
}

// TransferConfig tunes bulk import/export
type TransferConfig struct {
	PageSize        int `yaml:"page_size"`
	ValidationChunk int `yaml:"validation_chunk"`
}

// MediaConfig tunes the media library
type MediaConfig struct {
	DeleteConcurrency int `yaml:"delete_concurrency"`
	ListLimit         int `yaml:"list_limit"`
}

// HTTPConfig controls the API listener
type HTTPConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// SheetsConfig configures Google Sheets as an import source
type SheetsConfig struct {
	APIKey          string `yaml:"api_key"`
	AccessToken     string `yaml:"access_token"`
	CredentialsFile string `yaml:"credentials_file"`
	Range           string `yaml:"range"`
}

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			FilePath:   "logs/promptvalley.log",
			Console:    true,
			MaxSize:    100, // 100MB
			MaxBackups: 3,
			MaxAge:     7, // 7 days
			Compress:   false,
			Cleanup:    false,
		},
		Database: DatabaseConfig{
			Path: "./data/promptvalley.db",
		},
		Storage: StorageConfig{
			Backend:   STORAGE_BACKEND_MEMORY,
			PublicURL: "http://localhost:2847",
			DataPath:  DEFAULT_OBJECTS_PATH,
			Minio: MinioConfig{
				Region: DEFAULT_STORAGE_REGION,
			},
		},
		Transfer: TransferConfig{
			PageSize:        DEFAULT_EXPORT_PAGE_SIZE,
			ValidationChunk: DEFAULT_VALIDATION_CHUNK_SIZE,
		},
		Media: MediaConfig{
			DeleteConcurrency: DEFAULT_DELETE_CONCURRENCY,
			ListLimit:         DEFAULT_LIST_LIMIT,
		},
		HTTP: HTTPConfig{
			Address: DEFAULT_SERVER_ADDRESS,
			Port:    HTTP_SERVER_PORT,
		},
		Sheets: SheetsConfig{
			Range: DEFAULT_SHEET_RANGE,
		},
	}
}

// LoadConfig loads configuration from a file on top of the defaults, then
// applies .env files found next to it and PROMPTVALLEY_* environment variables
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).AddContext("path", filename)
	}

	config := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).AddContext("path", filename)
	}

	if err := LoadEnvFiles(filepath.Dir(filename)); err != nil {
		return nil, err
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads filename when it exists and falls back to the
// defaults (plus environment) otherwise
func LoadConfigOrDefault(filename string) (*Config, error) {
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			return LoadConfig(filename)
		}
	}

	if err := LoadEnvFiles("."); err != nil {
		return nil, err
	}
	config := LoadDefaultConfig()
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}
	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err).AddContext("path", filename)
	}

	return nil
}

// LoadEnvFiles loads .env and .env.local from dir when present. Variables
// already set in the process environment win.
func LoadEnvFiles(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.New(ErrEnvFileLoadFailed, "failed to load env file", err).AddContext("path", path)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints from PROMPTVALLEY_* variables
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(ENV_PREFIX + key); ok && v != "" {
			*dst = v
		}
	}

	setString("LOG_LEVEL", &c.Log.Level)
	setString("DATABASE_PATH", &c.Database.Path)
	setString("STORAGE_BACKEND", &c.Storage.Backend)
	setString("STORAGE_PUBLIC_URL", &c.Storage.PublicURL)
	setString("STORAGE_DATA_PATH", &c.Storage.DataPath)
	setString("MINIO_ENDPOINT", &c.Storage.Minio.Endpoint)
	setString("MINIO_ACCESS_KEY", &c.Storage.Minio.AccessKey)
	setString("MINIO_SECRET_KEY", &c.Storage.Minio.SecretKey)
	setString("MINIO_REGION", &c.Storage.Minio.Region)
	setString("SHEETS_API_KEY", &c.Sheets.APIKey)
	setString("SHEETS_ACCESS_TOKEN", &c.Sheets.AccessToken)
	setString("SHEETS_CREDENTIALS_FILE", &c.Sheets.CredentialsFile)

	if v, ok := os.LookupEnv(ENV_PREFIX + "MINIO_USE_SSL"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Storage.Minio.UseSSL = b
		}
	}
	if v, ok := os.LookupEnv(ENV_PREFIX + "HTTP_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.HTTP.Port = port
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New(ErrDatabasePathRequired, "database.path is required", nil)
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if !IsValidPort(c.HTTP.Port) {
		return errors.Newf(ErrInvalidPort, "http.port %d is out of range", c.HTTP.Port)
	}

	if c.Transfer.PageSize <= 0 || c.Transfer.ValidationChunk <= 0 {
		return errors.New(ErrInvalidPageSize, "transfer.page_size and transfer.validation_chunk must be positive", nil)
	}

	if c.Media.DeleteConcurrency <= 0 {
		return errors.New(ErrInvalidConcurrency, "media.delete_concurrency must be positive", nil)
	}

	return nil
}

// Validate validates the storage configuration
func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case STORAGE_BACKEND_MEMORY:
		return nil
	case STORAGE_BACKEND_FILESYSTEM:
		if s.DataPath == "" {
			return errors.New(ErrDataPathRequired, "storage.data_path is required for the filesystem backend", nil)
		}
		return nil
	case STORAGE_BACKEND_MINIO:
		if s.Minio.Endpoint == "" {
			return errors.New(ErrMinioEndpointRequired, "storage.minio.endpoint is required for the minio backend", nil)
		}
		return nil
	default:
		return errors.New(ErrStorageBackendInvalid, "unknown storage backend", nil).AddContext("backend", s.Backend)
	}
}

// GetHTTPAddress returns host:port for the API listener
func (c *Config) GetHTTPAddress() string {
	return c.HTTP.Address + ":" + strconv.Itoa(c.HTTP.Port)
}
