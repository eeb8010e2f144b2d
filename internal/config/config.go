package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	WalletAdapter string
	WalletPath    string
	SQLiteFile    string
	LedgerAdapter string

	// Fabric network settings
	ChannelName   string
	ChaincodeName string
	MSPID         string
	CAURL         string
	AdminID       string
	AdminSecret   string

	// Connection profile paths
	ConnectionSrc  string
	ConnectionDest string

	// Token signing secrets (access and refresh use distinct keys)
	JwtSecret        string
	JwtRefreshSecret string

	RateLimitPerMinute int
	LogLevel           string

	// PostgreSQL connection settings (postgres wallet adapter)
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	// Build DSN from individual components
	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // Default to disable for local development
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func New() (*Config, error) {
	c := &Config{
		Port:          getenv("PORT", "8080"),
		WalletAdapter: getenv("WALLET_ADAPTER", "file"),
		WalletPath:    getenv("WALLET_PATH", "./wallet"),
		SQLiteFile:    getenv("SQLITE_FILE", "./data/votegate.db"),
		LedgerAdapter: getenv("LEDGER_ADAPTER", "memory"),

		ChannelName:   getenv("CHANNEL_NAME", "mychannel"),
		ChaincodeName: getenv("CHAINCODE_NAME", "vote"),
		MSPID:         getenv("MSP_ID", "Org1MSP"),
		CAURL:         getenv("CA_URL", "https://localhost:7054"),
		AdminID:       getenv("CA_ADMIN_ID", "admin"),
		AdminSecret:   getenv("CA_ADMIN_SECRET", "adminpw"),

		ConnectionSrc:  getenv("CONNECTION_SRC", "../organizations/peerOrganizations/org1.example.com/connection-org1.json"),
		ConnectionDest: getenv("FABRIC_CONNECTION_PROFILE", "./connection-org1.json"),

		JwtSecret:        getenv("JWT_SECRET", "supersecretkey"),
		JwtRefreshSecret: getenv("JWT_REFRESH_SECRET", "refreshsupersecret"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "votegate")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "votegatepass")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "votegate")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	rate := getenv("RATE_LIMIT_PER_MINUTE", "120")
	n, err := strconv.Atoi(rate)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %s", rate)
	}
	c.RateLimitPerMinute = n

	// Validate PostgreSQL configuration if using the postgres wallet
	if c.WalletAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.WalletAdapter == "sqlite" && c.SQLiteFile == "" {
		return nil, errors.New("SQLITE_FILE must be set when WALLET_ADAPTER=sqlite")
	}

	if c.WalletAdapter == "file" && c.WalletPath == "" {
		return nil, errors.New("WALLET_PATH must be set when WALLET_ADAPTER=file")
	}

	// Refuse to start in production with the insecure fallback secrets
	env := strings.ToLower(getenv("NODE_ENV", getenv("ENV", "")))
	if env == "production" || env == "prod" {
		if c.JwtSecret == "" || c.JwtSecret == "supersecretkey" {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		if c.JwtRefreshSecret == "" || c.JwtRefreshSecret == "refreshsupersecret" {
			return nil, errors.New("JWT_REFRESH_SECRET must be set in production")
		}
		if c.AdminSecret == "" || c.AdminSecret == "adminpw" {
			return nil, errors.New("CA_ADMIN_SECRET must be set in production")
		}
	}

	// normalize port
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
