package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env      string
	LogLevel string

	Database   DatabaseConfigs
	ApiServer  APIServerConfigs
	Auth       AuthConfigs
	Redis      RedisConfigs
	Kafka      KafkaConfigs
	Prometheus ServerConfigs
	Raffle     RaffleConfigs
}

type DatabaseConfigs struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver   string
	Host     string
	Port     string
	Database string
	User     string
	Password string
	LogLevel string
}

func (d *DatabaseConfigs) ConnectionString() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host,
			d.Port,
			d.User,
			d.Password,
			d.Database,
		)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}
}

type ServerConfigs struct {
	Host      string
	Port      string
	AllowCORS []string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type APIServerConfigs struct {
	ServerConfigs

	MaxLimit     int
	DefaultLimit int
}

type AuthConfigs struct {
	TokenSecret string
	AccessToken TokenConfigs
}

type TokenConfigs struct {
	Name       string
	Expiration time.Duration
}

type RedisConfigs struct {
	Addr      string
	ResultTTL time.Duration
}

type KafkaConfigs struct {
	Addr     string
	ClientID string
	Topic    string
}

type RaffleConfigs struct {
	// MaxQuantityPerPurchase bounds the quantity of a single allocation.
	MaxQuantityPerPurchase int

	// DrawDelay is the countdown between closing a raffle and the earliest
	// time its draw can be requested.
	DrawDelay time.Duration

	// DrawingTimeout is how long a raffle may stay in drawing before the
	// liveness sweep rolls it back to closing.
	DrawingTimeout time.Duration

	SweepInterval time.Duration

	// SeedFormula selects the draw.Formula used for new draws.
	SeedFormula string

	// BLSSecretKey is the hex encoded bn256 scalar used by the bls formula.
	BLSSecretKey string
}

func Default() Configs {
	return Configs{
		Env:      "local",
		LogLevel: "info",
		Database: DatabaseConfigs{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     "3306",
			Database: "raffle",
			User:     "root",
			LogLevel: "error",
		},
		ApiServer: APIServerConfigs{
			ServerConfigs: ServerConfigs{Host: "", Port: "8080", AllowCORS: []string{"*"}},
			MaxLimit:      500,
			DefaultLimit:  100,
		},
		Auth: AuthConfigs{
			AccessToken: TokenConfigs{Name: "access_token", Expiration: 24 * time.Hour},
		},
		Redis: RedisConfigs{Addr: "localhost:6379", ResultTTL: time.Hour},
		Kafka: KafkaConfigs{Addr: "localhost:9092", ClientID: "raffle", Topic: "raffle"},
		Prometheus: ServerConfigs{
			Port: "9090",
		},
		Raffle: RaffleConfigs{
			MaxQuantityPerPurchase: 100,
			DrawDelay:              3 * time.Minute,
			DrawingTimeout:         5 * time.Minute,
			SweepInterval:          time.Minute,
			SeedFormula:            "sha256-timestamp-sum",
		},
	}
}

// Load reads the TOML file at path on top of the default configurations, then
// applies the environment overrides. An empty path only applies defaults and
// environment.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, fmt.Errorf("cannot decode config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Configs) {
	overwrite := map[string]*string{
		"ENV":             &cfg.Env,
		"LOG_LEVEL":       &cfg.LogLevel,
		"DB_DRIVER":       &cfg.Database.Driver,
		"DB_HOST":         &cfg.Database.Host,
		"DB_PORT":         &cfg.Database.Port,
		"DB_NAME":         &cfg.Database.Database,
		"DB_USER":         &cfg.Database.User,
		"DB_PASSWORD":     &cfg.Database.Password,
		"API_PORT":        &cfg.ApiServer.Port,
		"TOKEN_SECRET":    &cfg.Auth.TokenSecret,
		"REDIS_ADDRESS":   &cfg.Redis.Addr,
		"KAFKA_ADDRESS":   &cfg.Kafka.Addr,
		"SEED_FORMULA":    &cfg.Raffle.SeedFormula,
		"BLS_SECRET_KEY":  &cfg.Raffle.BLSSecretKey,
		"PROMETHEUS_PORT": &cfg.Prometheus.Port,
	}

	for key, target := range overwrite {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		*target = value
	}

	if value, ok := os.LookupEnv("API_ALLOW_CORS"); ok {
		cfg.ApiServer.AllowCORS = strings.Split(value, ",")
	}

	if value, ok := os.LookupEnv("RAFFLE_DRAW_DELAY"); ok {
		if d, err := time.ParseDuration(value); err == nil {
			cfg.Raffle.DrawDelay = d
		}
	}
}
