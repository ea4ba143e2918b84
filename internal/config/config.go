package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int           `mapstructure:"port"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
		CorsAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string      `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string      `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Attendance struct {
		GraceMinutes   int           `mapstructure:"grace_minutes"`
		SweepInterval  time.Duration `mapstructure:"sweep_interval"`
		SweepBatchSize int           `mapstructure:"sweep_batch_size"`
		TxTimeout      time.Duration `mapstructure:"tx_timeout"`
		Timezone       string        `mapstructure:"timezone"`
	} `mapstructure:"attendance"`

	Reports struct {
		Bucket    string `mapstructure:"bucket"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"reports"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	v.AutomaticEnv()

	// Binary works without config file
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("jwt.expiration_hours", 12)
	v.SetDefault("jwt.issuer", "retail-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "retail_db")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("redis.addr", "")
	v.SetDefault("attendance.grace_minutes", 5)
	v.SetDefault("attendance.sweep_interval", 2*time.Minute)
	v.SetDefault("attendance.sweep_batch_size", 500)
	v.SetDefault("attendance.tx_timeout", 10*time.Second)
	v.SetDefault("attendance.timezone", "Asia/Kolkata")
	v.SetDefault("reports.region", "auto")

	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not found in environment or config")
		}
	}

	if grace := os.Getenv("ATTENDANCE_GRACE_MINUTES"); grace != "" {
		if n, err := strconv.Atoi(grace); err == nil && n >= 0 {
			cfg.Attendance.GraceMinutes = n
		}
	}

	if bucket := os.Getenv("REPORTS_BUCKET"); bucket != "" {
		cfg.Reports.Bucket = bucket
	}
	if endpoint := os.Getenv("REPORTS_ENDPOINT"); endpoint != "" {
		cfg.Reports.Endpoint = endpoint
	}
	if key := os.Getenv("REPORTS_ACCESS_KEY"); key != "" {
		cfg.Reports.AccessKey = key
	}
	if secret := os.Getenv("REPORTS_SECRET_KEY"); secret != "" {
		cfg.Reports.SecretKey = secret
	}

	return &cfg
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.Database.User + ":" + c.Database.Password + "@" +
		c.Database.Host + ":" + strconv.Itoa(c.Database.Port) + "/" + c.Database.Name
}
