// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Pricing      PricingConfig           `mapstructure:"pricing"`
	Invoicing    InvoicingConfig         `mapstructure:"invoicing"`
	Loyalty      LoyaltyConfig           `mapstructure:"loyalty"`
	Search       SearchConfig            `mapstructure:"search"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Alerts       AlertsConfig            `mapstructure:"alerts"`
	Messaging    MessagingConfig         `mapstructure:"messaging"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain settings ---

type PricingConfig struct {
	// Team size assumed by the time estimate when the job does not name one.
	DefaultTeamSize int `mapstructure:"default_team_size"`
	// Admin overrides below this are rejected.
	MinOverridePrice int `mapstructure:"min_override_price"`
}

type InvoicingConfig struct {
	VATRate int `mapstructure:"vat_rate"`
	DueDays int `mapstructure:"due_days"`

	// Public prefix of the generated PDFs linked from invoice emails.
	PDFBaseURL string `mapstructure:"pdf_base_url"`
}

type LoyaltyConfig struct {
	PointsPerCZK float64 `mapstructure:"points_per_czk"`
}

type SearchConfig struct {
	InvoiceIndex string `mapstructure:"invoice_index"`
}

type CacheConfig struct {
	ClientBookingsTTL int `mapstructure:"client_bookings_ttl"` // seconds
}

type AlertsConfig struct {
	// Receives the SMS summary of urgent job alerts. Empty disables it.
	AdminPhone string `mapstructure:"admin_phone"`
}

type MessagingConfig struct {
	RabbitMQURL string `mapstructure:"rabbitmq_url"`
	Exchange    string `mapstructure:"exchange"`
}

// IntegrationConfig holds settings for outbound email and SMS.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			ReplyTo   string `mapstructure:"reply_to"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
