package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	Debug      bool
	LogLevel   string
	CORSOrigin string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	AdminTokenTTL time.Duration
	SessionTTL    time.Duration

	Shop  Shop
	Chain Chain
	Chat  Chat
}

type Shop struct {
	DeliverySurcharge int64
	SignupBonus       int64
	ReferenceSalt     string
	NodeID            int64
}

type Chain struct {
	RPCURL          string
	ContractAddress string
	PrivateKey      string
	ChainID         int64
	CallTimeout     time.Duration
	Workers         int
	MaxAttempts     int
	RetryBase       time.Duration
	PromoteSchedule string
}

// Enabled reports whether enough is configured to talk to the contract.
func (c Chain) Enabled() bool {
	return c.RPCURL != "" && c.ContractAddress != "" && c.PrivateKey != ""
}

type Chat struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		Port:       getEnvOrDefault("PORT", "8080"),
		Debug:      getBoolEnv("APP_DEBUG", false),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		CORSOrigin: getEnvOrDefault("CORS_ORIGIN", "http://localhost:3000"),

		MongoURI: getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnvOrDefault("DB_NAME", "ecorewards"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		JWTSecret:     getEnvOrDefault("JWT_SECRET", ""),
		AdminTokenTTL: getDurationEnv("ADMIN_TOKEN_TTL", 60, time.Minute),
		SessionTTL:    getDurationEnv("SESSION_TTL", 7, 24*time.Hour),

		Shop: Shop{
			DeliverySurcharge: int64(getIntEnv("DELIVERY_SURCHARGE", 50)),
			SignupBonus:       int64(getIntEnv("SIGNUP_BONUS", 500)),
			ReferenceSalt:     getEnvOrDefault("ORDER_REFERENCE_SALT", "ecorewards"),
			NodeID:            int64(getIntEnv("NODE_ID", 1)),
		},
		Chain: Chain{
			RPCURL:          getEnvOrDefault("ETHEREUM_RPC_URL", ""),
			ContractAddress: getEnvOrDefault("CONTRACT_ADDRESS", ""),
			PrivateKey:      getEnvOrDefault("CHAIN_PRIVATE_KEY", ""),
			ChainID:         int64(getIntEnv("CHAIN_ID", 11155111)),
			CallTimeout:     getDurationEnv("CHAIN_CALL_TIMEOUT", 15, time.Second),
			Workers:         getIntEnv("MIRROR_WORKERS", 2),
			MaxAttempts:     getIntEnv("MIRROR_MAX_ATTEMPTS", 5),
			RetryBase:       getDurationEnv("MIRROR_RETRY_BASE", 30, time.Second),
			PromoteSchedule: getEnvOrDefault("MIRROR_PROMOTE_SCHEDULE", "@every 15s"),
		},
		Chat: Chat{
			APIKey:  getEnvOrDefault("CHAT_API_KEY", ""),
			BaseURL: getEnvOrDefault("CHAT_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			Model:   getEnvOrDefault("CHAT_MODEL", "gemini-2.0-flash"),
			Timeout: getDurationEnv("CHAT_TIMEOUT", 30, time.Second),
		},
	}
}
