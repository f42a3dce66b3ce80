package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	HTTP         ServerConfig
	MySQL        MySQLConfig
	Log          LogConfig
	Svea         SveaConfig
	Storefront   StorefrontConfig
	OrderService OrderServiceConfig
	Payments     PaymentsConfig
	Jobs         JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// SveaConfig carries the per-merchant gateway settings.
type SveaConfig struct {
	BaseURL       string
	SellerID      string
	SecretKey     string
	KeyGeneration string

	// HashAlgorithms is the comma-separated supported set; the strongest
	// mutually supported algorithm is selected per request.
	HashAlgorithms []string

	Escrow              bool
	EscrowChangeAllowed bool

	PaymentIDPrefix string
	OrderIDOffset   int64
	DueDateDays     int

	OKReturnURL     string
	ErrorReturnURL  string
	CancelReturnURL string
	DelayReturnURL  string

	SellerIBAN        string
	InvoiceFromSeller string
	PaymentMethod     string

	PaymentMethodFee    decimal.Decimal
	PaymentMethodFeeTax decimal.Decimal

	HTTPTimeout time.Duration
	// TLSSkipVerify is honored in sandbox profiles only.
	TLSSkipVerify bool
	Sandbox       bool
}

// StorefrontConfig holds the shop pages customers land on after coming
// back from the gateway.
type StorefrontConfig struct {
	PaidRedirectURL    string
	PendingRedirectURL string
	FailedRedirectURL  string
}

type OrderServiceConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// PaymentsConfig holds the reconciliation policy. The tolerances absorb
// rounding and currency-conversion noise; confirm the intended business
// tolerance with the payment provider before changing them.
type PaymentsConfig struct {
	AmountTolerance      decimal.Decimal
	SellerCostsTolerance decimal.Decimal

	// MaxStatusQueries caps polling per payment; hitting the cap forces a
	// cancellation so the retry loop self-terminates.
	MaxStatusQueries int32

	// GiveUpAfter is how long an unpaid payment may stay pending before an
	// unpaid status query answer cancels it.
	GiveUpAfter time.Duration

	JobBatchSize int32
}

type JobsConfig struct {
	StatusQueryInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}
	sellerID := os.Getenv("SVEA_SELLER_ID")
	if sellerID == "" {
		return nil, errors.New("SVEA_SELLER_ID environment variable is required")
	}
	secretKey := os.Getenv("SVEA_SECRET_KEY")
	if secretKey == "" {
		return nil, errors.New("SVEA_SECRET_KEY environment variable is required")
	}

	sandbox := getBoolEnv("SVEA_SANDBOX", false)
	tlsSkipVerify := getBoolEnv("SVEA_TLS_SKIP_VERIFY", false) && sandbox

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "svea-payments-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Svea: SveaConfig{
			BaseURL:             getEnv("SVEA_BASE_URL", "https://www.maksuturva.fi"),
			SellerID:            sellerID,
			SecretKey:           secretKey,
			KeyGeneration:       getEnv("SVEA_KEY_GENERATION", "001"),
			HashAlgorithms:      splitList(getEnv("SVEA_HASH_ALGORITHMS", "SHA-512,SHA-256,SHA-1,MD5")),
			Escrow:              getBoolEnv("SVEA_ESCROW", false),
			EscrowChangeAllowed: getBoolEnv("SVEA_ESCROW_CHANGE_ALLOWED", false),
			PaymentIDPrefix:     getEnv("SVEA_PAYMENT_ID_PREFIX", ""),
			OrderIDOffset:       int64(getIntEnv("SVEA_ORDER_ID_OFFSET", 100)),
			DueDateDays:         getIntEnv("SVEA_DUE_DATE_DAYS", 0),
			OKReturnURL:         getEnv("SVEA_OK_RETURN_URL", ""),
			ErrorReturnURL:      getEnv("SVEA_ERROR_RETURN_URL", ""),
			CancelReturnURL:     getEnv("SVEA_CANCEL_RETURN_URL", ""),
			DelayReturnURL:      getEnv("SVEA_DELAY_RETURN_URL", ""),
			SellerIBAN:          getEnv("SVEA_SELLER_IBAN", ""),
			InvoiceFromSeller:   getEnv("SVEA_INVOICE_FROM_SELLER", ""),
			PaymentMethod:       getEnv("SVEA_PAYMENT_METHOD", ""),
			PaymentMethodFee:    getCentsEnv("SVEA_PAYMENT_METHOD_FEE_CENTS", 0),
			PaymentMethodFeeTax: getCentsEnv("SVEA_PAYMENT_METHOD_FEE_TAX_CENTS", 0),
			HTTPTimeout:         getSecondsEnv("SVEA_HTTP_TIMEOUT_SECONDS", 120*time.Second),
			TLSSkipVerify:       tlsSkipVerify,
			Sandbox:             sandbox,
		},
		Storefront: StorefrontConfig{
			PaidRedirectURL:    getEnv("SHOP_PAID_REDIRECT_URL", "/checkout/order-received"),
			PendingRedirectURL: getEnv("SHOP_PENDING_REDIRECT_URL", "/checkout/order-received"),
			FailedRedirectURL:  getEnv("SHOP_FAILED_REDIRECT_URL", "/checkout"),
		},
		OrderService: OrderServiceConfig{
			BaseURL:     getEnv("ORDER_SERVICE_BASE_URL", ""),
			APIKey:      getEnv("ORDER_SERVICE_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("ORDER_SERVICE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			AmountTolerance:      getCentsEnv("SVEA_AMOUNT_TOLERANCE_CENTS", 500),
			SellerCostsTolerance: getCentsEnv("SVEA_SELLER_COSTS_TOLERANCE_CENTS", 100),
			MaxStatusQueries:     int32(getIntEnv("SVEA_MAX_STATUS_QUERIES", 40)),
			GiveUpAfter:          getMinutesEnv("SVEA_GIVE_UP_AFTER_MINUTES", 2*time.Hour),
			JobBatchSize:         int32(getIntEnv("SVEA_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			StatusQueryInterval: getMinutesEnv("SVEA_STATUS_QUERY_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getCentsEnv(key string, defaultCents int64) decimal.Decimal {
	cents := defaultCents
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			cents = n
		}
	}
	return decimal.New(cents, -2)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
