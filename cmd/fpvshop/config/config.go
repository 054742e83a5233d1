package config

import (
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	RunAddress           string        `env:"RUN_ADDRESS"`
	DatabaseURI          string        `env:"DATABASE_URI"`
	PaymentSystemAddress string        `env:"PAYMENT_SYSTEM_ADDRESS"`
	JWTSecret            string        `env:"JWT_SECRET,notEmpty"`
	AdminLogin           string        `env:"ADMIN_LOGIN"`
	SpinTimezone         string        `env:"SPIN_TIMEZONE" envDefault:"UTC"`
	SpinStoreRetries     int           `env:"SPIN_STORE_RETRIES" envDefault:"2"`
	ConfirmInterval      time.Duration `env:"CONFIRM_INTERVAL" envDefault:"10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	RedisDB              int           `env:"REDIS_DB" envDefault:"0"`
}

// New читает флаги командной строки, затем переменные окружения.
// Переменные окружения имеют приоритет над флагами.
func New() (*Config, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("fpvshop", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "адрес подключения к базе данных")
	fs.StringVar(&cfg.PaymentSystemAddress, "r", "", "адрес системы подтверждения оплаты")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}
	if cfg.SpinStoreRetries < 0 {
		cfg.SpinStoreRetries = 0
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location возвращает часовой пояс, в котором считаются сутки для колеса.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SpinTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SPIN_TIMEZONE %q: %w", c.SpinTimezone, err)
	}
	return loc, nil
}
