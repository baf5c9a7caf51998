package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API and worker processes.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	QueuePrefix            string
	QueueWorkers           int
	WorkerEnabled          bool
	CourseGradeCacheTTL    time.Duration
	FanoutChunkSize        int
	FanoutInAppRate        int
	FanoutEmailRate        int
	SendGridAPIKey         string
	MailFromEmail          string
	MailFromName           string
	MailAdminEmail         string
	LMSBaseURL             string
	LMSToken               string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AllowOrigins           string
	AdmissionRateLimit     int
	StreamPingInterval     time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "GEMA LMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("queue.prefix", "gema")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("worker.enabled", true)
	v.SetDefault("grading.course_cache_ttl", "10m")
	v.SetDefault("fanout.chunk_size", 500)
	v.SetDefault("fanout.in_app_rate", 100)
	v.SetDefault("fanout.email_rate", 50)
	v.SetDefault("mail.from_email", "no-reply@gema.local")
	v.SetDefault("mail.from_name", "GEMA LMS")
	v.SetDefault("cloudinary.folder", "gema/submissions")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("admissions.rate_limit", 5)
	v.SetDefault("notifications.ping_interval", "30s")
}

func fromViper(v *viper.Viper) (Config, error) {
	ttlString := v.GetString("grading.course_cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid course grade cache ttl: %w", err)
	}

	pingInterval, err := time.ParseDuration(v.GetString("notifications.ping_interval"))
	if err != nil || pingInterval <= 0 {
		return Config{}, fmt.Errorf("invalid notification ping interval %q", v.GetString("notifications.ping_interval"))
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		QueuePrefix:            v.GetString("queue.prefix"),
		QueueWorkers:           v.GetInt("queue.workers"),
		WorkerEnabled:          v.GetBool("worker.enabled"),
		CourseGradeCacheTTL:    ttl,
		FanoutChunkSize:        v.GetInt("fanout.chunk_size"),
		FanoutInAppRate:        v.GetInt("fanout.in_app_rate"),
		FanoutEmailRate:        v.GetInt("fanout.email_rate"),
		SendGridAPIKey:         v.GetString("mail.sendgrid_key"),
		MailFromEmail:          v.GetString("mail.from_email"),
		MailFromName:           v.GetString("mail.from_name"),
		MailAdminEmail:         v.GetString("mail.admin_email"),
		LMSBaseURL:             v.GetString("lms.base_url"),
		LMSToken:               v.GetString("lms.token"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AllowOrigins:           v.GetString("cors.allow_origins"),
		AdmissionRateLimit:     v.GetInt("admissions.rate_limit"),
		StreamPingInterval:     pingInterval,
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = 4
	}
	if cfg.FanoutChunkSize <= 0 {
		cfg.FanoutChunkSize = 500
	}
	if cfg.FanoutInAppRate <= 0 {
		cfg.FanoutInAppRate = 100
	}
	if cfg.FanoutEmailRate <= 0 {
		cfg.FanoutEmailRate = 50
	}
	if cfg.AdmissionRateLimit <= 0 {
		cfg.AdmissionRateLimit = 5
	}

	return cfg, nil
}
