package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"snap2sell/logging"
)

// Config is the resolved client configuration.
type Config struct {
	API     API
	Storage Storage
	Redis   Redis
	Mongo   Mongo
	Cart    Cart
	Server  Server
	Logger  logging.Config
	Viper   *viper.Viper
}

type API struct {
	BaseURL string
	Timeout time.Duration
	Rate    float64
	Burst   int
}

type Storage struct {
	Driver string // file, redis, mongo, memory
	Path   string
	Secret string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Mongo struct {
	URI        string
	Database   string
	Collection string
}

type Cart struct {
	PollInterval time.Duration
}

type Server struct {
	Addr           string
	AllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate", 10.0)
	v.SetDefault("api.burst", 20)
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", filepath.Join(home, ".snap2sell", "state.json"))
	v.SetDefault("storage.secret", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "snap2sell")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "snap2sell")
	v.SetDefault("mongo.collection", "client_state")
	v.SetDefault("cart.poll_interval", 500*time.Millisecond)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.output_file", "")
}

// Load reads .env (if present), then an optional config file, then SNAP2SELL_* env vars.
// An empty configPath searches ./config.yaml and ~/.snap2sell/config.yaml; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	// .env is optional; system environment still applies
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SNAP2SELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.snap2sell")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	baseURL := v.GetString("api.base_url")
	// the SPA build used these names; honour them when the prefixed one is unset
	if os.Getenv("SNAP2SELL_API_BASE_URL") == "" {
		for _, k := range []string{"API_BASE_URL", "VITE_API_URL"} {
			if val := os.Getenv(k); val != "" {
				baseURL = val
				break
			}
		}
	}

	return &Config{
		API: API{
			BaseURL: strings.TrimRight(baseURL, "/"),
			Timeout: v.GetDuration("api.timeout"),
			Rate:    v.GetFloat64("api.rate"),
			Burst:   v.GetInt("api.burst"),
		},
		Storage: Storage{
			Driver: strings.ToLower(v.GetString("storage.driver")),
			Path:   v.GetString("storage.path"),
			Secret: v.GetString("storage.secret"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Mongo: Mongo{
			URI:        v.GetString("mongo.uri"),
			Database:   v.GetString("mongo.database"),
			Collection: v.GetString("mongo.collection"),
		},
		Cart: Cart{
			PollInterval: v.GetDuration("cart.poll_interval"),
		},
		Server: Server{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Logger: logging.Config{
			Level:      v.GetString("logger.level"),
			Format:     v.GetString("logger.format"),
			OutputFile: v.GetString("logger.output_file"),
		},
		Viper: v,
	}
}
