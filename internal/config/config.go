package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App          App          `mapstructure:",squash"`
	Server       Server       `mapstructure:",squash"`
	Database     Database     `mapstructure:",squash"`
	AmazonAds    AmazonAds    `mapstructure:",squash"`
	Vault        Vault        `mapstructure:",squash"`
	Storage      Storage      `mapstructure:",squash"`
	ReportPoller ReportPoller `mapstructure:",squash"`
	Backoff      Backoff      `mapstructure:",squash"`
	Auth         Auth         `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type AmazonAds struct {
	ClientID     string `mapstructure:"amazon_ads_client_id"`
	ClientSecret string `mapstructure:"amazon_ads_client_secret"`
	RedirectURI  string `mapstructure:"amazon_ads_redirect_uri"`
	AuthHost     string `mapstructure:"amazon_ads_auth_host"`
	TokenHost    string `mapstructure:"amazon_ads_token_host"`
	APIHost      string `mapstructure:"amazon_ads_api_host"`
}

type Vault struct {
	SecretKey string `mapstructure:"secret_key"`
	// Chaves antigas ainda aceitas para descriptografar envelopes emitidos
	// antes da rotação. Formato: "versao=segredo" separado por vírgula
	RetiredKeys []string `mapstructure:"vault_retired_keys"`
	KeyVersion  int      `mapstructure:"vault_key_version"`
}

type Storage struct {
	Endpoint  string `mapstructure:"storage_endpoint"`
	AccessKey string `mapstructure:"storage_access_key"`
	SecretKey string `mapstructure:"storage_secret_key"`
	Bucket    string `mapstructure:"storage_bucket"`
	UseSSL    bool   `mapstructure:"storage_use_ssl"`
}

type ReportPoller struct {
	CronSchedule      string        `mapstructure:"report_poller_cron"`
	MaxConcurrentJobs int           `mapstructure:"report_poller_max_concurrent_jobs"`
	MaxWait           time.Duration `mapstructure:"report_poll_max_wait"`
	BatchLimit        int           `mapstructure:"report_poller_batch_limit"`
	DedupWindow       time.Duration `mapstructure:"report_dedup_window"`
	Enabled           bool          `mapstructure:"report_poller_enabled"`
}

type Backoff struct {
	InitialDelay time.Duration `mapstructure:"backoff_initial_delay"`
	MaxDelay     time.Duration `mapstructure:"backoff_max_delay"`
	Multiplier   float64       `mapstructure:"backoff_multiplier"`
	JitterRatio  float64       `mapstructure:"backoff_jitter_ratio"`
	RatePerSec   float64       `mapstructure:"backoff_rate_per_sec"`
	RateBurst    int           `mapstructure:"backoff_rate_burst"`
}

type Auth struct {
	Secret string `mapstructure:"auth_secret"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/buff?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("AMAZON_ADS_CLIENT_ID", "your_client_id")
	viper.SetDefault("AMAZON_ADS_CLIENT_SECRET", "your_client_secret")
	viper.SetDefault("AMAZON_ADS_REDIRECT_URI", "http://localhost:8000/v1/connections/callback")
	viper.SetDefault("AMAZON_ADS_AUTH_HOST", "https://www.amazon.com/ap/oa")
	viper.SetDefault("AMAZON_ADS_TOKEN_HOST", "https://api.amazon.com/auth/o2/token")
	viper.SetDefault("AMAZON_ADS_API_HOST", "https://advertising-api.amazon.com")

	viper.SetDefault("SECRET_KEY", "your_secret_key")
	viper.SetDefault("VAULT_KEY_VERSION", 1)
	viper.SetDefault("VAULT_RETIRED_KEYS", "")

	viper.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	viper.SetDefault("STORAGE_ACCESS_KEY", "minioadmin")
	viper.SetDefault("STORAGE_SECRET_KEY", "minioadmin")
	viper.SetDefault("STORAGE_BUCKET", "amazon-ads-data")
	viper.SetDefault("STORAGE_USE_SSL", false)

	// Defaults do processador de relatórios pendentes
	viper.SetDefault("REPORT_POLLER_CRON", "*/10 * * * *")   // A cada 10 minutos
	viper.SetDefault("REPORT_POLLER_MAX_CONCURRENT_JOBS", 3) // 3 jobs concorrentes
	viper.SetDefault("REPORT_POLLER_BATCH_LIMIT", 20)        // 20 relatórios por varredura
	viper.SetDefault("REPORT_POLL_MAX_WAIT", "3h")           // Tempo máximo de polling por job
	viper.SetDefault("REPORT_DEDUP_WINDOW", "15m")           // Janela de deduplicação local
	viper.SetDefault("REPORT_POLLER_ENABLED", false)

	// Defaults da política de backoff compartilhada por conta
	viper.SetDefault("BACKOFF_INITIAL_DELAY", "5s")
	viper.SetDefault("BACKOFF_MAX_DELAY", "5m")
	viper.SetDefault("BACKOFF_MULTIPLIER", 2.0)
	viper.SetDefault("BACKOFF_JITTER_RATIO", 0.2)
	viper.SetDefault("BACKOFF_RATE_PER_SEC", 1.0)
	viper.SetDefault("BACKOFF_RATE_BURST", 2)

	viper.SetDefault("AUTH_SECRET", "your_auth_secret")

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// loadEnvFile carrega o arquivo .env procurando em localizações conhecidas
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
