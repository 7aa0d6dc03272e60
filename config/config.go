package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "VIVI"

//Database backends understood by db.Init
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeRethink  = "rethinkdb"
)

//Config holds every setting the bot needs at startup
type Config struct {
	Discord   DiscordConfig
	Bot       BotConfig
	DB        DBConfig
	PSS       PSSConfig
	ChatLog   ChatLogConfig
	Assistant AssistantConfig
	LogLevel  string
}

//DiscordConfig contains the credentials for the discord gateway
type DiscordConfig struct {
	Token  string
	DevUID string
}

//BotConfig contains command surface settings
type BotConfig struct {
	Prefix string
}

//DBConfig selects and configures the persistence backend
type DBConfig struct {
	Type        string
	SQLitePath  string
	PostgresURL string
	RethinkAddr string
	RethinkName string
}

//PSSConfig contains the settings for the Pixel Starships API client
type PSSConfig struct {
	APIURL            string
	DeviceKey         string
	DeviceType        string
	ChecksumKey       string
	RequestsPerSecond float64
}

//ChatLogConfig configures the chat relay poller
type ChatLogConfig struct {
	Enabled        bool
	Interval       time.Duration
	PacingFraction float64
	MaxRetries     int
}

//AssistantConfig contains the timeouts used by interactive configuration prompts
type AssistantConfig struct {
	TextTimeout     time.Duration
	ReactionTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.prefix", "!")
	v.SetDefault("db.type", DBTypeSQLite)
	v.SetDefault("db.sqlite_path", "vivibot.db")
	v.SetDefault("db.rethink_name", "vivibot")
	v.SetDefault("pss.api_url", "https://api.pixelstarships.com")
	v.SetDefault("pss.device_type", "DeviceTypeMac")
	v.SetDefault("pss.requests_per_second", 2.0)
	v.SetDefault("chatlog.enabled", true)
	v.SetDefault("chatlog.interval", "100s")
	v.SetDefault("chatlog.pacing_fraction", 0.8)
	v.SetDefault("chatlog.max_retries", 3)
	v.SetDefault("assistant.text_timeout", "120s")
	v.SetDefault("assistant.reaction_timeout", "60s")
	v.SetDefault("log.level", "info")
}

//Load reads configuration from an optional .env file, an optional yaml config file and the environment, in that
//order of increasing precedence. An empty configPath looks for ./config.yaml.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.Warnf("Failed to load .env file due to error %v", err)
	}
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debug("No config file found, using environment variables and defaults")
	}

	cfg := &Config{
		Discord: DiscordConfig{
			Token:  v.GetString("discord.token"),
			DevUID: v.GetString("discord.dev_uid"),
		},
		Bot: BotConfig{
			Prefix: v.GetString("bot.prefix"),
		},
		DB: DBConfig{
			Type:        strings.ToLower(v.GetString("db.type")),
			SQLitePath:  v.GetString("db.sqlite_path"),
			PostgresURL: v.GetString("db.postgres_url"),
			RethinkAddr: v.GetString("db.rethink_addr"),
			RethinkName: v.GetString("db.rethink_name"),
		},
		PSS: PSSConfig{
			APIURL:            strings.TrimRight(v.GetString("pss.api_url"), "/"),
			DeviceKey:         v.GetString("pss.device_key"),
			DeviceType:        v.GetString("pss.device_type"),
			ChecksumKey:       v.GetString("pss.checksum_key"),
			RequestsPerSecond: v.GetFloat64("pss.requests_per_second"),
		},
		ChatLog: ChatLogConfig{
			Enabled:        v.GetBool("chatlog.enabled"),
			Interval:       v.GetDuration("chatlog.interval"),
			PacingFraction: v.GetFloat64("chatlog.pacing_fraction"),
			MaxRetries:     v.GetInt("chatlog.max_retries"),
		},
		Assistant: AssistantConfig{
			TextTimeout:     v.GetDuration("assistant.text_timeout"),
			ReactionTimeout: v.GetDuration("assistant.reaction_timeout"),
		},
		LogLevel: v.GetString("log.level"),
	}
	return cfg, nil
}

//Validate checks that every setting required to run the bot is present
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("`%v_DISCORD_TOKEN` was not set", envPrefix)
	}
	switch c.DB.Type {
	case DBTypeSQLite:
		if c.DB.SQLitePath == "" {
			return errors.New("sqlite database selected but no path was provided")
		}
	case DBTypePostgres:
		if c.DB.PostgresURL == "" {
			return fmt.Errorf("`%v_DB_POSTGRES_URL` is required when using postgres", envPrefix)
		}
	case DBTypeRethink:
		if c.DB.RethinkAddr == "" {
			return fmt.Errorf("`%v_DB_RETHINK_ADDR` is required when using rethinkdb", envPrefix)
		}
	default:
		return fmt.Errorf("unknown database type %q", c.DB.Type)
	}
	if c.ChatLog.Enabled {
		if c.ChatLog.Interval <= 0 {
			return fmt.Errorf("chat log interval must be positive, got %v", c.ChatLog.Interval)
		}
		if c.ChatLog.PacingFraction < 0 || c.ChatLog.PacingFraction >= 1 {
			return fmt.Errorf("chat log pacing fraction must be in [0, 1), got %v", c.ChatLog.PacingFraction)
		}
	}
	return nil
}

//ChatLogReady returns true if the chat relay is enabled and the game API checksum key is present. A missing device
//key is generated by the game API client.
func (c *Config) ChatLogReady() bool {
	return c.ChatLog.Enabled && c.PSS.ChecksumKey != ""
}

//ApplyLogLevel configures logrus from the configured level, falling back to info
func (c *Config) ApplyLogLevel() {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("Unknown log level `%v`, falling back to info", c.LogLevel)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
