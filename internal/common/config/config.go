package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

type MQ struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
}

type HTTP struct {
	Port          int `yaml:"port"`
	MaxConcurrent int `yaml:"max_concurrent"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Orders struct {
	// Store selects the persistence backend: "postgres" or "memory".
	Store             string `yaml:"store"`
	StrictTransitions bool   `yaml:"strict_transitions"`
	PublishEvents     bool   `yaml:"publish_events"`
	// SeedFile optionally loads restaurants, dishes and tables at startup.
	SeedFile string `yaml:"seed_file"`
}

type App struct {
	Database DB     `yaml:"database"`
	Rabbit   MQ     `yaml:"rabbitmq"`
	HTTP     HTTP   `yaml:"http"`
	Auth     Auth   `yaml:"auth"`
	Orders   Orders `yaml:"orders"`
}

func defaults() App {
	return App{
		Database: DB{Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
		HTTP:     HTTP{Port: 3000, MaxConcurrent: 50},
		Orders:   Orders{Store: "postgres", PublishEvents: true},
	}
}

// Load reads the configuration with Read and validates it.
func Load(path string) (App, error) {
	a, err := Read(path)
	if err != nil {
		return App{}, err
	}
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

// Read reads the YAML file at path, then applies a .env file from the
// working directory (if any) and environment overrides on top. The result
// is not validated, so callers that layer flags on top must call Validate.
func Read(path string) (App, error) {
	a := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &a); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&a)
	return a, nil
}

// Overrides carries command line values. Zero values leave the
// configuration untouched.
type Overrides struct {
	Port          int
	MaxConcurrent int
	SeedFile      string
}

func (a *App) Apply(o Overrides) {
	if o.Port != 0 {
		a.HTTP.Port = o.Port
	}
	if o.MaxConcurrent != 0 {
		a.HTTP.MaxConcurrent = o.MaxConcurrent
	}
	if o.SeedFile != "" {
		a.Orders.SeedFile = o.SeedFile
	}
}

func (a App) Validate() error {
	switch a.Orders.Store {
	case "postgres":
		if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
			return errors.New("invalid config: database host/user/database are required for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid config: unknown orders.store %q", a.Orders.Store)
	}
	if a.Orders.PublishEvents && a.Rabbit.Host == "" {
		return errors.New("invalid config: missing rabbitmq host while orders.publish_events is on")
	}
	if a.HTTP.Port < 1 || a.HTTP.Port > 65535 {
		return fmt.Errorf("invalid config: http.port %d out of range", a.HTTP.Port)
	}
	if a.HTTP.MaxConcurrent <= 0 {
		return errors.New("invalid config: http.max_concurrent must be positive")
	}
	if a.Auth.JWTSecret == "" {
		return errors.New("invalid config: auth.jwt_secret is required")
	}
	return nil
}

func applyEnv(a *App) {
	setString(&a.Database.Host, "POSTGRES_HOST")
	setInt(&a.Database.Port, "POSTGRES_PORT")
	setString(&a.Database.User, "POSTGRES_USER")
	setString(&a.Database.Pass, "POSTGRES_PASSWORD")
	setString(&a.Database.Name, "POSTGRES_DBNAME")

	setString(&a.Rabbit.Host, "RABBITMQ_HOST")
	setInt(&a.Rabbit.Port, "RABBITMQ_PORT")
	setString(&a.Rabbit.User, "RABBITMQ_USER")
	setString(&a.Rabbit.Pass, "RABBITMQ_PASSWORD")
	setString(&a.Rabbit.VHost, "RABBITMQ_VHOST")

	setString(&a.Auth.JWTSecret, "JWT_SECRET")
	setString(&a.Orders.Store, "ORDER_STORE")
	setString(&a.Orders.SeedFile, "ORDER_SEED_FILE")
	if v, ok := os.LookupEnv("ORDER_STRICT_TRANSITIONS"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			a.Orders.StrictTransitions = b
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
