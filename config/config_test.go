package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/svea?parseTime=true")
	setEnv(t, "SVEA_SELLER_ID", "testseller")
	setEnv(t, "SVEA_SECRET_KEY", "secret")
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadRequiresSellerCredentials(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/svea?parseTime=true")
	unsetEnv(t, "SVEA_SELLER_ID")
	unsetEnv(t, "SVEA_SECRET_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SVEA_SELLER_ID")
	}

	setEnv(t, "SVEA_SELLER_ID", "testseller")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SVEA_SECRET_KEY")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setRequiredEnv(t)
	setEnv(t, "APP_SERVICE_NAME", "svea-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "SVEA_HASH_ALGORITHMS", "SHA-256, MD5")
	setEnv(t, "SVEA_ORDER_ID_OFFSET", "200")
	setEnv(t, "SVEA_AMOUNT_TOLERANCE_CENTS", "250")
	setEnv(t, "SVEA_MAX_STATUS_QUERIES", "15")
	setEnv(t, "SVEA_GIVE_UP_AFTER_MINUTES", "90")
	setEnv(t, "SVEA_STATUS_QUERY_INTERVAL_MINUTES", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "svea-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql config: %+v", cfg.MySQL)
	}
	if cfg.Svea.SellerID != "testseller" || cfg.Svea.SecretKey != "secret" {
		t.Fatalf("unexpected svea credentials: %+v", cfg.Svea)
	}
	if len(cfg.Svea.HashAlgorithms) != 2 || cfg.Svea.HashAlgorithms[0] != "SHA-256" {
		t.Fatalf("unexpected hash algorithms: %v", cfg.Svea.HashAlgorithms)
	}
	if cfg.Svea.OrderIDOffset != 200 {
		t.Fatalf("unexpected order id offset: %d", cfg.Svea.OrderIDOffset)
	}
	if !cfg.Payments.AmountTolerance.Equal(decimal.New(250, -2)) {
		t.Fatalf("unexpected amount tolerance: %s", cfg.Payments.AmountTolerance)
	}
	if cfg.Payments.MaxStatusQueries != 15 || cfg.Payments.GiveUpAfter != 90*time.Minute {
		t.Fatalf("unexpected payments policy: %+v", cfg.Payments)
	}
	if cfg.Jobs.StatusQueryInterval != 7*time.Minute {
		t.Fatalf("unexpected job interval: %v", cfg.Jobs.StatusQueryInterval)
	}
	if cfg.Svea.BaseURL != "https://www.maksuturva.fi" {
		t.Fatalf("unexpected default base url: %s", cfg.Svea.BaseURL)
	}
}

func TestLoadTLSSkipVerifyOnlyInSandbox(t *testing.T) {
	setRequiredEnv(t)
	setEnv(t, "SVEA_TLS_SKIP_VERIFY", "true")
	unsetEnv(t, "SVEA_SANDBOX")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Svea.TLSSkipVerify {
		t.Fatal("expected skip verify refused outside sandbox")
	}

	setEnv(t, "SVEA_SANDBOX", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Svea.TLSSkipVerify {
		t.Fatal("expected skip verify honored in sandbox")
	}
}
