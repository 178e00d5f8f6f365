package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Exchange Exchange `mapstructure:"exchange"`
	Fetch    Fetch    `mapstructure:"fetch"`
	Store    Store    `mapstructure:"store"`
	Email    Email    `mapstructure:"email"`
	Telegram Telegram `mapstructure:"telegram"`
	Snapshot Snapshot `mapstructure:"snapshot"`
	Logger   Logger   `mapstructure:"logger"`
	UI       UI       `mapstructure:"ui"`
}

// Exchange holds the HTTP settings shared by the exchange adapters.
type Exchange struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	UserAgent   string        `mapstructure:"user_agent"`
	NSE         NSE           `mapstructure:"nse"`
	BSE         BSE           `mapstructure:"bse"`
}

// NSE holds the endpoints for Exchange-A.
type NSE struct {
	HomeURL          string `mapstructure:"home_url"`
	DealsPageURL     string `mapstructure:"deals_page_url"`
	BulkURL          string `mapstructure:"bulk_url"`
	BlockURL         string `mapstructure:"block_url"`
	UseHistoricalAPI bool   `mapstructure:"use_historical_api"`
	HistoricalURL    string `mapstructure:"historical_url"`
}

// BSE holds the endpoints for Exchange-B.
type BSE struct {
	BulkURL  string `mapstructure:"bulk_url"`
	BlockURL string `mapstructure:"block_url"`
}

// Fetch holds record filtering options.
type Fetch struct {
	TodayOnly bool `mapstructure:"today_only"`
	// Timezone decides the calendar day of a run. Exchange disclosures are
	// dated in exchange local time.
	Timezone string `mapstructure:"timezone"`
}

// Location loads the configured run timezone.
func (f *Fetch) Location() (*time.Location, error) {
	if f.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(f.Timezone)
}

// Store holds the configuration for the table store.
type Store struct {
	Driver      string        `mapstructure:"driver"`
	SupabaseURL string        `mapstructure:"supabase_url"`
	SupabaseKey string        `mapstructure:"supabase_key"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	BatchSize   int           `mapstructure:"batch_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Email holds the configuration for the email report.
type Email struct {
	Provider       string        `mapstructure:"provider"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	MailgunDomain  string        `mapstructure:"mailgun_domain"`
	MailgunAPIKey  string        `mapstructure:"mailgun_api_key"`
	MailgunAPIBase string        `mapstructure:"mailgun_api_base"`
	SenderName     string        `mapstructure:"sender_name"`
	To             []string      `mapstructure:"to"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Telegram holds the configuration for the chat alert.
type Telegram struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIURL   string        `mapstructure:"api_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Snapshot holds the configuration for local CSV snapshots.
type Snapshot struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// UI holds the configuration for the local store viewer.
type UI struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// envBindings maps config keys to the environment names the job has always used.
var envBindings = map[string]string{
	"store.driver":          "STORE_DRIVER",
	"store.supabase_url":    "SUPABASE_URL",
	"store.supabase_key":    "SUPABASE_KEY",
	"email.provider":        "EMAIL_PROVIDER",
	"email.user":            "EMAIL_USER",
	"email.password":        "EMAIL_PASSWORD",
	"email.to":              "EMAIL_TO",
	"email.mailgun_domain":  "MAILGUN_DOMAIN",
	"email.mailgun_api_key": "MAILGUN_API_KEY",
	"telegram.bot_token":    "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":      "TELEGRAM_CHAT_ID",
	"logger.level":          "LOG_LEVEL",
}

// LoadConfig reads configuration from an optional config file, a .env file
// and environment variables.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is the normal case in scheduled environments.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	config.Email.To = splitList(config.Email.To)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.timeout", 30*time.Second)
	v.SetDefault("exchange.min_interval", time.Second)
	v.SetDefault("exchange.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("exchange.nse.home_url", "https://www.nseindia.com")
	v.SetDefault("exchange.nse.deals_page_url", "https://www.nseindia.com/report-detail/display-bulk-and-block-deals")
	v.SetDefault("exchange.nse.bulk_url", "https://archives.nseindia.com/content/equities/bulk.csv")
	v.SetDefault("exchange.nse.block_url", "https://archives.nseindia.com/content/equities/block.csv")
	v.SetDefault("exchange.nse.historical_url", "https://www.nseindia.com/api/historical")
	v.SetDefault("exchange.bse.bulk_url", "https://www.bseindia.com/markets/equity/EQReports/bulk_deals.aspx?expandable=3")
	v.SetDefault("exchange.bse.block_url", "https://www.bseindia.com/markets/equity/EQReports/block_deals.aspx?expandable=3")

	v.SetDefault("fetch.today_only", false)
	v.SetDefault("fetch.timezone", "Asia/Kolkata")

	v.SetDefault("store.driver", "supabase")
	v.SetDefault("store.sqlite_path", "deals.db")
	v.SetDefault("store.batch_size", 100)
	v.SetDefault("store.timeout", 30*time.Second)

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.sender_name", "Bulk Deal Tracker")
	v.SetDefault("email.timeout", 30*time.Second)

	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", 30*time.Second)

	v.SetDefault("snapshot.enabled", true)
	v.SetDefault("snapshot.dir", ".")

	v.SetDefault("ui.port", 8080)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "deals_automation.log")
}

// splitList flattens comma separated entries, as EMAIL_TO is a single
// comma separated variable.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
