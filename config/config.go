package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Port     int    `mapstructure:"PORT"`

	// Dev backend storage. DB_TYPE is one of sqlite, postgres, mysql.
	DBType          string `mapstructure:"DB_TYPE"`
	DSN             string `mapstructure:"DSN"`
	SkipAutoMigrate bool   `mapstructure:"SKIP_AUTO_MIGRATE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	// RedisAddr switches the login lockout store to Redis when set.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	TelegramBotUsername string `mapstructure:"TELEGRAM_BOT_USERNAME"`
	TelegramBotID       string `mapstructure:"TELEGRAM_BOT_ID"`
	TelegramBotToken    string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramWidgetSrc   string `mapstructure:"TELEGRAM_WIDGET_SRC"`

	// Environment resolution. ProdHosts is the exact allow-list of
	// deployment hostnames; anything that is not a loopback alias and not
	// in the list is treated as unrecognized.
	ProdHosts  []string `mapstructure:"PROD_HOSTS"`
	DevAPIURL  string   `mapstructure:"DEV_API_URL"`
	ProdAPIURL string   `mapstructure:"PROD_API_URL"`
	DevDomain  string   `mapstructure:"DEV_DOMAIN"`
	ProdDomain string   `mapstructure:"PROD_DOMAIN"`

	// Exchange paths for the widget and popup strategies. Both default to
	// the telegram login endpoint, which serves either credential shape.
	WidgetLoginPath string `mapstructure:"WIDGET_LOGIN_PATH"`
	PopupLoginPath  string `mapstructure:"POPUP_LOGIN_PATH"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "authgate.db")
	viper.SetDefault("SKIP_AUTO_MIGRATE", false)
	viper.SetDefault("JWT_SECRET", "dev-only-secret")
	viper.SetDefault("TELEGRAM_BOT_USERNAME", "SignUp_MarsBot")
	viper.SetDefault("TELEGRAM_BOT_ID", "6412343716")
	viper.SetDefault("TELEGRAM_WIDGET_SRC", "https://telegram.org/js/telegram-widget.js?22")
	viper.SetDefault("PROD_HOSTS", []string{
		"one063development.onrender.com",
		"ecommerce-client-1063.onrender.com",
	})
	viper.SetDefault("DEV_API_URL", "http://localhost:8000")
	viper.SetDefault("PROD_API_URL", "https://one063development.onrender.com")
	viper.SetDefault("DEV_DOMAIN", "localhost:5173")
	viper.SetDefault("PROD_DOMAIN", "one063development.onrender.com")
	viper.SetDefault("WIDGET_LOGIN_PATH", "/api/v1/auth/telegram-login")
	viper.SetDefault("POPUP_LOGIN_PATH", "/api/v1/auth/telegram-login")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
