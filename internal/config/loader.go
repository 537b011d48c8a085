package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Database DatabaseConfig `mapstructure:"database"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Security SecurityConfig `mapstructure:"security"`
	Features FeaturesConfig `mapstructure:"features"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	OpenBrowser  bool          `mapstructure:"open_browser"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) URL() string {
	return fmt.Sprintf("http://%s/", s.Address())
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// PortalConfig holds the recharge portal address and operator credentials.
// Password may be sealed with recargactl seal-password (enc: prefix).
type PortalConfig struct {
	URL         string        `mapstructure:"url"`
	Login       string        `mapstructure:"login"`
	Password    string        `mapstructure:"password"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

type BrowserConfig struct {
	ChromePath  string `mapstructure:"chrome_path"`
	Headless    bool   `mapstructure:"headless"`
	UserDataDir string `mapstructure:"user_data_dir"`
}

type PrinterConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MarginOption       string        `mapstructure:"margin_option"`
	ConfigureMargins   bool          `mapstructure:"configure_margins"`
	WindowTimeout      time.Duration `mapstructure:"window_timeout"`
	WindowPollInterval time.Duration `mapstructure:"window_poll_interval"`
}

type LedgerConfig struct {
	FilePath          string `mapstructure:"file_path"`
	RecordCashLocally bool   `mapstructure:"record_cash_locally"`
}

type SheetsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Location        string `mapstructure:"location"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type TasksConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type SecurityConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	CSRFEnabled bool   `mapstructure:"csrf_enabled"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	EnableMetrics        bool   `mapstructure:"enable_metrics"`
}

const fallbackSecretKey = "uma-chave-secreta-de-fallback"

// envBindings keeps the variable names operators already export for the portal.
var envBindings = map[string]string{
	"portal.login":            "MCARD_LOGIN",
	"portal.password":         "MCARD_SENHA",
	"portal.url":              "MCARD_URL",
	"security.secret_key":     "SECRET_KEY",
	"sheets.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.open_browser", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("portal.step_timeout", 15*time.Second)

	v.SetDefault("printer.enabled", true)
	v.SetDefault("printer.margin_option", "1")
	v.SetDefault("printer.configure_margins", true)
	v.SetDefault("printer.window_timeout", 15*time.Second)
	v.SetDefault("printer.window_poll_interval", 300*time.Millisecond)

	v.SetDefault("ledger.file_path", "recargas.txt")
	v.SetDefault("ledger.record_cash_locally", false)

	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.location", "America/Sao_Paulo")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("tasks.max_entries", 1000)
	v.SetDefault("tasks.ttl", 24*time.Hour)

	v.SetDefault("security.secret_key", fallbackSecretKey)
	v.SetDefault("security.csrf_enabled", true)

	v.SetDefault("features.request_id_header", "X-Request-ID")
	v.SetDefault("features.enable_request_logging", true)
	v.SetDefault("features.enable_metrics", true)
}

// Load reads the YAML file at path (optional) and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RECARGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "RECARGA_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() []string {
	var problems []string
	if c.Portal.URL == "" {
		problems = append(problems, "portal.url (MCARD_URL) is required")
	}
	if c.Portal.Login == "" {
		problems = append(problems, "portal.login (MCARD_LOGIN) is required")
	}
	if c.Tasks.MaxEntries <= 0 {
		problems = append(problems, "tasks.max_entries must be positive")
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		problems = append(problems, "sheets.spreadsheet_id is required when sheets are enabled")
	}
	return problems
}

func (c *Config) UsesFallbackSecret() bool {
	return c.Security.SecretKey == fallbackSecretKey
}
