package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration
type Config struct {
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	SQLitePath string `yaml:"sqlite_path"`
	BackupZip  string `yaml:"backup_zip"`
	ImagesFile string `yaml:"images_file"`
	LogDir     string `yaml:"log_dir"`
	LogLevel   string `yaml:"log_level"`
	ReportPath string `yaml:"report_path"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. $XDG_CONFIG_HOME/momcheck/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver: DriverPostgres,
		DBHost:   "localhost",
		DBPort:   5432,
		DBUser:   "postgres",
		DBName:   "momcheck",
		LogDir:   "logs",
		LogLevel: "info",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	_ = loadYAMLConfig(cfg)

	// Override with environment variables
	if driver := os.Getenv("MOMCHECK_DB_DRIVER"); driver != "" {
		cfg.DBDriver = driver
	}
	if host := os.Getenv("MOMCHECK_DB_HOST"); host != "" {
		cfg.DBHost = host
	}
	if port := os.Getenv("MOMCHECK_DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid MOMCHECK_DB_PORT %q: %w", port, err)
		}
		cfg.DBPort = p
	}
	if user := os.Getenv("MOMCHECK_DB_USER"); user != "" {
		cfg.DBUser = user
	}
	if password := getEnvOrFile("MOMCHECK_DB_PASSWORD", "MOMCHECK_DB_PASSWORD_FILE"); password != "" {
		cfg.DBPassword = password
	}
	if name := os.Getenv("MOMCHECK_DB_NAME"); name != "" {
		cfg.DBName = name
	}
	if path := os.Getenv("MOMCHECK_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}
	if zip := os.Getenv("MOMCHECK_BACKUP_ZIP"); zip != "" {
		cfg.BackupZip = zip
	}
	if images := os.Getenv("MOMCHECK_IMAGES_FILE"); images != "" {
		cfg.ImagesFile = images
	}
	if logDir := os.Getenv("MOMCHECK_LOG_DIR"); logDir != "" {
		cfg.LogDir = logDir
	}
	if logLevel := os.Getenv("MOMCHECK_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if reportPath := os.Getenv("MOMCHECK_REPORT_PATH"); reportPath != "" {
		cfg.ReportPath = reportPath
	}

	// Set defaults if not configured
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(xdg.DataHome, "momcheck", "mom.sqlite3")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration can be used to open a database
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBHost == "" {
			return fmt.Errorf("db_host is required for the postgres driver")
		}
		if c.DBName == "" {
			return fmt.Errorf("db_name is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported db_driver %q (expected %s or %s)", c.DBDriver, DriverPostgres, DriverSQLite)
	}
	return nil
}

// PostgresDSN returns a connection string for the configured database.
// An empty dbName targets the configured database.
func (c *Config) PostgresDSN(dbName string) string {
	if dbName == "" {
		dbName = c.DBName
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		quoteDSN(c.DBHost), c.DBPort, quoteDSN(c.DBUser), quoteDSN(c.DBPassword), quoteDSN(dbName))
}

func quoteDSN(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// configFilePath returns the YAML config location under the XDG config home
func configFilePath() string {
	return filepath.Join(xdg.ConfigHome, "momcheck", "config.yaml")
}

// loadYAMLConfig loads configuration from $XDG_CONFIG_HOME/momcheck/config.yaml
func loadYAMLConfig(cfg *Config) error {
	data, err := os.ReadFile(configFilePath())
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop at home or at the filesystem root
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
