package pomomo

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	SettingsFile    string
	BotName         string
	BotToken        string
	NotifyChannelID string
	TickInterval    time.Duration
}

func LoadConfig(isProd bool) (Config, error) {
	if isProd {
		_ = godotenv.Load(".env")
	} else {
		_ = godotenv.Load(".env.dev")
	}

	config := Config{
		DatabaseURL:     os.Getenv("POMOMO_DB_PATH"),
		HTTPAddr:        os.Getenv("POMOMO_HTTP_ADDR"),
		LogLevel:        os.Getenv("POMOMO_LOG_LEVEL"),
		SettingsFile:    os.Getenv("POMOMO_SETTINGS_FILE"),
		BotName:         os.Getenv("POMOMO_BOT_NAME"),
		BotToken:        os.Getenv("POMOMO_BOT_TOKEN"),
		NotifyChannelID: os.Getenv("POMOMO_NOTIFY_CHANNEL_ID"),
		TickInterval:    time.Second,
	}

	if config.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required environment variable: POMOMO_DB_PATH")
	}
	if config.BotToken != "" && config.NotifyChannelID == "" {
		return Config{}, fmt.Errorf("POMOMO_NOTIFY_CHANNEL_ID is required when POMOMO_BOT_TOKEN is set")
	}

	if tick := os.Getenv("POMOMO_TICK"); tick != "" {
		d, err := time.ParseDuration(tick)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid POMOMO_TICK %q", tick)
		}
		config.TickInterval = d
	}

	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.BotName == "" {
		config.BotName = "Pomomo"
	}

	return config, nil
}
