// Package config carga la configuración del servicio con viper: archivo
// .env.<env> opcional en la raíz del proyecto más variables de entorno,
// que siempre tienen precedencia.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level  string
	Format string
	App    string
}

type DatabaseConfig struct {
	// DSN completo; si está, pisa los campos sueltos.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Init registra defaults y lee el archivo .env.<env> si existe.
func Init(env string) error {
	if env == "" {
		env = "dev"
	}

	root, err := findProjectRoot()
	if err == nil {
		viper.SetConfigName(fmt.Sprintf(".env.%s", env))
		viper.SetConfigType("env")
		viper.AddConfigPath(root)
		_ = viper.ReadInConfig() // el archivo es opcional
	}

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "person_registry")
	viper.SetDefault("DB_NAME", "person_registry_dev")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("APP_NAME", "person-registry")

	return nil
}

// Load materializa la configuración desde viper.
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			DSN:      viper.GetString("DB_DSN"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			App:    viper.GetString("APP_NAME"),
		},
	}, nil
}

// ConnectionString arma el DSN de Postgres. Devuelve "" cuando no hay
// base configurada (el servicio cae a repositorios in-memory).
func (c *DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Password == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// findProjectRoot sube directorios hasta encontrar go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
