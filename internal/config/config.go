package config

import (
	"log"
	"os"
	"strings"
	"time"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr                         string
	MongoURI                     string
	MongoDatabase                string
	ResponseCollection           string
	PingCollection               string
	FailedNotificationCollection string
	Timeout                      time.Duration
	ServerLog                    *log.Logger
	JWTConfigs                   []JWTConfig
	JWTAudience                  string
	AllowedOrigins               []string

	SurveyGizmoBaseURL   string
	SurveyGizmoSurveyID  string
	SurveyGizmoAPIToken  string
	SurveyGizmoAPISecret string
	SurveyGizmoTimeout   time.Duration

	Auth0Domain       string
	Auth0ClientID     string
	Auth0ClientSecret string
	Auth0Connection   string
	Auth0Timeout      time.Duration

	EdxBaseURL string
	EdxTimeout time.Duration

	MailerEndpoint   string
	MailerFrom       string
	MailerTimeout    time.Duration
	MailerAttempts   int
	MailerRetryDelay time.Duration
}

// Load reads environment variables and returns a fully populated Config.
// 外部システムの秘密情報が欠けている場合は起動時に落とす。
func Load() Config {
	timeout := 10 * time.Second
	if v := os.Getenv("MONGO_CONNECT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			timeout = parsed
		}
	}

	gizmoToken := strings.TrimSpace(os.Getenv("SURVEYGIZMO_API_TOKEN"))
	gizmoSecret := strings.TrimSpace(os.Getenv("SURVEYGIZMO_API_SECRET"))
	if gizmoToken == "" || gizmoSecret == "" {
		log.Fatal("SURVEYGIZMO_API_TOKEN and SURVEYGIZMO_API_SECRET must be configured")
	}
	gizmoSurveyID := strings.TrimSpace(os.Getenv("SURVEYGIZMO_SURVEY_ID"))
	if gizmoSurveyID == "" {
		log.Fatal("SURVEYGIZMO_SURVEY_ID must be configured")
	}

	auth0Domain := strings.TrimSpace(os.Getenv("AUTH0_DOMAIN"))
	auth0ClientID := strings.TrimSpace(os.Getenv("AUTH0_CLIENT_ID"))
	auth0ClientSecret := strings.TrimSpace(os.Getenv("AUTH0_CLIENT_SECRET"))
	if auth0Domain == "" || auth0ClientID == "" || auth0ClientSecret == "" {
		log.Fatal("AUTH0_DOMAIN, AUTH0_CLIENT_ID and AUTH0_CLIENT_SECRET must be configured")
	}

	mailerEndpoint := strings.TrimSpace(os.Getenv("MAILER_GATEWAY_URL"))
	if mailerEndpoint == "" {
		mailerEndpoint = "http://mail-gateway:3000"
	}
	mailerAttempts := envPositiveInt("MAILER_ATTEMPTS", 3)
	mailerRetryDelay := envDuration("MAILER_RETRY_DELAY", 200*time.Millisecond)

	var jwtConfigs []JWTConfig
	if secret := strings.TrimSpace(os.Getenv("AUTH_DASHBOARD_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: envOrDefault("AUTH_DASHBOARD_JWT_ISSUER", "surveygizmo-dashboard"),
			Secret: []byte(secret),
		})
	}
	if secret := strings.TrimSpace(os.Getenv("AUTH_EDX_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: envOrDefault("AUTH_EDX_JWT_ISSUER", "auth-edx"),
			Secret: []byte(secret),
		})
	}
	if len(jwtConfigs) == 0 {
		log.Fatal("JWT secrets not configured. Set AUTH_DASHBOARD_JWT_SECRET or AUTH_EDX_JWT_SECRET.")
	}

	cfg := Config{
		Addr:                         envOrDefault("HTTP_ADDR", ":8080"),
		MongoURI:                     envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:                envOrDefault("MONGO_DB", "surveygizmo-dashboard"),
		ResponseCollection:           envOrDefault("RESPONSE_COLLECTION", "survey_responses"),
		PingCollection:               envOrDefault("PING_COLLECTION", "pings"),
		FailedNotificationCollection: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
		Timeout:                      timeout,
		ServerLog:                    log.New(os.Stdout, "[surveygizmo-dashboard] ", log.LstdFlags|log.Lshortfile),
		JWTConfigs:                   jwtConfigs,
		JWTAudience:                  strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		AllowedOrigins:               parseList("API_ALLOWED_ORIGINS", []string{"*"}),

		SurveyGizmoBaseURL:   envOrDefault("SURVEYGIZMO_BASE_URL", "https://restapi.surveygizmo.com"),
		SurveyGizmoSurveyID:  gizmoSurveyID,
		SurveyGizmoAPIToken:  gizmoToken,
		SurveyGizmoAPISecret: gizmoSecret,
		SurveyGizmoTimeout:   envDuration("SURVEYGIZMO_TIMEOUT", 10*time.Second),

		Auth0Domain:       auth0Domain,
		Auth0ClientID:     auth0ClientID,
		Auth0ClientSecret: auth0ClientSecret,
		Auth0Connection:   envOrDefault("AUTH0_CONNECTION", "Username-Password-Authentication"),
		Auth0Timeout:      envDuration("AUTH0_TIMEOUT", 10*time.Second),

		EdxBaseURL: envOrDefault("EDX_BASE_URL", "http://edx-portal:8000"),
		EdxTimeout: envDuration("EDX_TIMEOUT", 10*time.Second),

		MailerEndpoint:   mailerEndpoint,
		MailerFrom:       envOrDefault("MAILER_FROM", "no-reply@fasttrac.org"),
		MailerTimeout:    envDuration("MAILER_GATEWAY_TIMEOUT", 5*time.Second),
		MailerAttempts:   mailerAttempts,
		MailerRetryDelay: mailerRetryDelay,
	}

	cfg.ServerLog.Printf("loaded config: surveyId=%q auth0Domain=%q mailerEndpoint=%q edxBaseURL=%q", gizmoSurveyID, auth0Domain, mailerEndpoint, cfg.EdxBaseURL)

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func envPositiveInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return fallback
		}
		value = value*10 + int(r-'0')
	}
	if value <= 0 {
		return fallback
	}
	return value
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
