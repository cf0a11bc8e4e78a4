package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the gateway and pushctl.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		StaticDir    string        `mapstructure:"static_dir"`
	} `mapstructure:"http"`
	Log struct {
		Level      string `mapstructure:"level"`
		Encoding   string `mapstructure:"encoding"`
		OutputPath string `mapstructure:"output_path"`
	} `mapstructure:"log"`
	Storage struct {
		Driver              string `mapstructure:"driver"`
		Path                string `mapstructure:"path"`
		PostgresDSN         string `mapstructure:"postgres_dsn"`
		FirestoreCollection string `mapstructure:"firestore_collection"`
	} `mapstructure:"storage"`
	Firebase  Firebase `mapstructure:"firebase"`
	WebPush   WebPush  `mapstructure:"webpush"`
	Broadcast struct {
		Title          string `mapstructure:"title"`
		Body           string `mapstructure:"body"`
		URL            string `mapstructure:"url"`
		MaxConcurrency int    `mapstructure:"max_concurrency"`
	} `mapstructure:"broadcast"`
	TestSend struct {
		Token            string `mapstructure:"token"`
		SubscriptionFile string `mapstructure:"subscription_file"`
		Title            string `mapstructure:"title"`
		Body             string `mapstructure:"body"`
	} `mapstructure:"test_send"`
	Auth struct {
		Enabled    bool          `mapstructure:"enabled"`
		Username   string        `mapstructure:"username"`
		Password   string        `mapstructure:"password"`
		JWTSecret  string        `mapstructure:"jwt_secret"`
		SessionTTL time.Duration `mapstructure:"session_ttl"`
		Scopes     []string      `mapstructure:"scopes"`
	} `mapstructure:"auth"`
	Client Client `mapstructure:"client"`
}

// Firebase selects the service account used for messaging and Firestore.
type Firebase struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	ProjectID       string `mapstructure:"project_id"`
}

// WebPush carries the VAPID identity of the application server.
type WebPush struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
	TTL             int    `mapstructure:"ttl"`
}

// Client configures the page and worker side routers.
type Client struct {
	Icon             string        `mapstructure:"icon"`
	Badge            string        `mapstructure:"badge"`
	DefaultTitle     string        `mapstructure:"default_title"`
	DefaultBody      string        `mapstructure:"default_body"`
	Origin           string        `mapstructure:"origin"`
	ReadinessTimeout time.Duration `mapstructure:"readiness_timeout"`
	ToastDuration    time.Duration `mapstructure:"toast_duration"`
	GatewayURL       string        `mapstructure:"gateway_url"`
	GatewayTimeout   time.Duration `mapstructure:"gateway_timeout"`
}

// Load reads the configuration from disk/environment using Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("clinic_push")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, env + defaults still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.static_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("storage.driver", "bolt")
	v.SetDefault("storage.path", "./data/tokens.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.firestore_collection", "fcmTokens")

	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.project_id", "")

	v.SetDefault("webpush.vapid_public_key", PlaceholderVAPIDPublicKey)
	v.SetDefault("webpush.vapid_private_key", PlaceholderVAPIDPrivateKey)
	v.SetDefault("webpush.subscriber", "reception@smilecare.example")
	v.SetDefault("webpush.ttl", 86400)

	v.SetDefault("broadcast.title", "SmileCare Dental")
	v.SetDefault("broadcast.body", "Online booking is open for next week. Reserve your check-up today.")
	v.SetDefault("broadcast.url", "/booking")
	v.SetDefault("broadcast.max_concurrency", 0)

	v.SetDefault("test_send.token", PlaceholderToken)
	v.SetDefault("test_send.subscription_file", "")
	v.SetDefault("test_send.title", "Test notification")
	v.SetDefault("test_send.body", "If you can read this, push delivery works.")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin123")
	v.SetDefault("auth.jwt_secret", "change-me-secret")
	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("auth.scopes", []string{"tokens:read", "broadcast:send"})

	v.SetDefault("client.icon", "/icons/icon-192.png")
	v.SetDefault("client.badge", "/icons/badge-72.png")
	v.SetDefault("client.default_title", "SmileCare Dental")
	v.SetDefault("client.default_body", "You have a new notification.")
	v.SetDefault("client.origin", "http://localhost:5173")
	v.SetDefault("client.readiness_timeout", "3s")
	v.SetDefault("client.toast_duration", "6s")
	v.SetDefault("client.gateway_url", "http://localhost:8090")
	v.SetDefault("client.gateway_timeout", "10s")
}
