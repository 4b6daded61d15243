package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the console's runtime configuration. It is loaded once at
// startup and passed explicitly; nothing reads the environment ad hoc.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (local; default), TEST, QA, PROD
	AppName  string
	Build    string

	API struct {
		BaseURL        string
		RequestTimeout time.Duration
	}

	Quiz struct {
		// DefaultDuration is used when a test has no configured duration;
		// blocking the student on missing metadata is worse than a default.
		DefaultDuration time.Duration
	}

	RollbarToken string
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "dev")
	v.SetDefault("apiBaseUrl", "http://localhost:8080/api")
	v.SetDefault("apiRequestTimeout", 30*time.Second)
	v.SetDefault("quizDefaultDuration", 5*time.Minute)
	v.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.API.BaseURL = strings.TrimRight(v.GetString("apiBaseUrl"), "/")
	conf.API.RequestTimeout = v.GetDuration("apiRequestTimeout")
	conf.Quiz.DefaultDuration = v.GetDuration("quizDefaultDuration")
	return conf
}
