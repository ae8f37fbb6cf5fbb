package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type Config struct {
	// Server
	Environment     string
	Port            string
	ClientURL       string
	AppHost         string
	MaintenanceMode bool

	// Lifecycle
	InviteExpiry    time.Duration
	PreLaunchPeriod time.Duration
	ExpirySweep     time.Duration

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeReturnURL     string
	Currency            string
	PaymentsTopicArn    string

	// Auth
	JWTSecret     []byte
	JWTExpiry     time.Duration
	ResetSecret   []byte
	ResetExpiry   time.Duration
	AdminEmail    string
	AdminPassword string

	// OTP
	OTPRequestBuffer time.Duration
	OTPResetBuffer   time.Duration
	OTPResetLimit    int
	OTPHistoryLimit  int
	OTPExpiry        time.Duration

	// Delivery
	MailDriver     string
	SenderEmail    string
	SenderName     string
	EmailQueue     string
	RealtimeDriver string
	AssetsBucket   string
}

func LoadConfig() *Config {
	return &Config{
		Environment:     getEnv("API_ENV", "local"),
		Port:            getEnv("PORT", "9090"),
		ClientURL:       strings.TrimSuffix(getEnv("CLIENT_URL", "http://localhost:3000"), "/"),
		AppHost:         getEnv("APP_HOST", ""),
		MaintenanceMode: getEnvAsBool("MAINTENANCE_MODE", false),

		InviteExpiry:    time.Duration(getEnvAsInt("INVITE_EXPIRY", 3)) * 24 * time.Hour,
		PreLaunchPeriod: time.Duration(getEnvAsInt("PRE_LAUNCH_PERIOD", 24)) * time.Hour,
		ExpirySweep:     getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", "0s"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeReturnURL:     getEnv("STRIPE_RETURN_URL", ""),
		Currency:            getEnv("PAYMENT_CURRENCY", "usd"),
		PaymentsTopicArn:    getEnv("PAYMENTS_TOPIC_ARN", ""),

		JWTSecret:     []byte(getEnv("JWT_SECRET", "")),
		JWTExpiry:     getEnvAsDuration("JWT_EXPIRY", "168h"),
		ResetSecret:   []byte(getEnv("RESET_SECRET", "")),
		ResetExpiry:   getEnvAsDuration("RESET_EXPIRY", "5m"),
		AdminEmail:    strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		OTPRequestBuffer: getEnvAsDuration("OTP_REQUEST_BUFFER", "1m"),
		OTPResetBuffer:   getEnvAsDuration("OTP_RESET_BUFFER", "2m"),
		OTPResetLimit:    getEnvAsInt("OTP_RESET_LIMIT", 5),
		OTPHistoryLimit:  getEnvAsInt("OTP_HISTORY_LIMIT", 10),
		OTPExpiry:        getEnvAsDuration("OTP_EXPIRY", "30m"),

		MailDriver:     getEnv("MAIL_DRIVER", "smtp"),
		SenderEmail:    getEnv("SENDER_EMAIL", "no-reply@falcontour.com"),
		SenderName:     getEnv("SENDER_NAME", "FalconTour"),
		EmailQueue:     getEnv("EMAIL_QUEUE", "EmailsToSend"),
		RealtimeDriver: getEnv("REALTIME_DRIVER", "socketio"),
		AssetsBucket:   getEnv("S3_ASSETS_BUCKET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
