package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		Env          string `mapstructure:"env"`
		Build        string `mapstructure:"build"`
		AppName      string `mapstructure:"appName"`
		SecretKey    string `mapstructure:"secretKey"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Proctor  ProctorConfig  `mapstructure:"proctor"`
		Detector DetectorConfig `mapstructure:"detector"`
		MQTT     MQTTConfig     `mapstructure:"mqtt"`
	}

	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugHost          string        `mapstructure:"debugHost"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		AllowedOrigins     []string      `mapstructure:"allowedOrigins"`
		SendBuffer         int           `mapstructure:"sendBuffer"`
		PingInterval       time.Duration `mapstructure:"pingInterval"`
		WriteTimeout       time.Duration `mapstructure:"writeTimeout"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | sqlite3 | memory
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"` // file path for sqlite3
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	ProctorConfig struct {
		WarningThreshold int           `mapstructure:"warningThreshold"`
		StoreTimeout     time.Duration `mapstructure:"storeTimeout"`
		SessionRetention time.Duration `mapstructure:"sessionRetention"` // graded sessions are dropped after this
	}

	DetectorConfig struct {
		URL     string        `mapstructure:"url"` // empty: console detector
		Timeout time.Duration `mapstructure:"timeout"`
	}

	MQTTConfig struct {
		Broker      string `mapstructure:"broker"` // empty: events are not published
		ClientID    string `mapstructure:"clientID"`
		TopicPrefix string `mapstructure:"topicPrefix"`
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig loads the configuration from defaults, an optional config/.env.<env> file and the environment.
// Environment variables are prefixed by the environment name, e.g. DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Proctor")
	v.SetDefault("secretKey", "3k$w+9vnx0q^4d=b!ye7p-z&_t2m8@hr(c6u)jsl1fo5#gai")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.sendBuffer", 32)
	v.SetDefault("server.pingInterval", 30*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "proctor")
	v.SetDefault("database.user", "proctor")
	v.SetDefault("database.password", "proctor")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("proctor.warningThreshold", 3)
	v.SetDefault("proctor.storeTimeout", 5*time.Second)
	v.SetDefault("proctor.sessionRetention", time.Hour)

	v.SetDefault("detector.url", "")
	v.SetDefault("detector.timeout", 3*time.Second)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientID", "proctor-api")
	v.SetDefault("mqtt.topicPrefix", "proctor")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (conf *Config) validate() error {
	if conf.Proctor.WarningThreshold < 1 {
		return fmt.Errorf("proctor.warningThreshold must be positive (got %d)", conf.Proctor.WarningThreshold)
	}
	if conf.Server.SendBuffer < 1 {
		return fmt.Errorf("server.sendBuffer must be positive (got %d)", conf.Server.SendBuffer)
	}
	switch conf.Database.Engine {
	case "postgres", "sqlite3", "memory":
	default:
		return fmt.Errorf("database.engine %q is not supported", conf.Database.Engine)
	}
	return nil
}
