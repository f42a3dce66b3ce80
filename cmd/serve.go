package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-svea/app/controller"
	"github.com/vibast-solutions/ms-go-svea/app/order"
	"github.com/vibast-solutions/ms-go-svea/app/repository"
	"github.com/vibast-solutions/ms-go-svea/app/service"
	"github.com/vibast-solutions/ms-go-svea/app/svea"
	"github.com/vibast-solutions/ms-go-svea/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payment creation, gateway return callbacks, and status queries.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService, cfg.Storefront)

	e := setupHTTPServer(paymentController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	payments.POST("", paymentController.CreatePayment)
	payments.GET("/:orderID", paymentController.GetPayments)
	payments.POST("/:orderID/statusquery", paymentController.CheckPayment)
	payments.POST("/:orderID/delivery", paymentController.ConfirmDelivery)

	// The gateway redirects the customer back over GET but some payment
	// methods post instead; both are accepted on every return endpoint.
	returns := payments.Group("/return")
	for action, handler := range map[string]echo.HandlerFunc{
		"ok":     paymentController.HandleReturn(svea.ReturnOK),
		"cancel": paymentController.HandleReturn(svea.ReturnCancel),
		"delay":  paymentController.HandleReturn(svea.ReturnDelay),
		"error":  paymentController.HandleReturn(svea.ReturnError),
	} {
		returns.GET("/"+action, handler)
		returns.POST("/"+action, handler)
	}

	return e
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	recordRepo := repository.NewPaymentRecordRepository(db)
	queryLogRepo := repository.NewStatusQueryLogRepository(db)

	sveaCfg := sveaConfigFrom(cfg)
	gatewayClient := svea.NewGatewayClient(sveaCfg, svea.ClientConfig{
		BaseURL:              cfg.Svea.BaseURL,
		Timeout:              cfg.Svea.HTTPTimeout,
		TLSSkipVerify:        cfg.Svea.TLSSkipVerify,
		AmountTolerance:      cfg.Payments.AmountTolerance,
		SellerCostsTolerance: cfg.Payments.SellerCostsTolerance,
	})
	notifier := order.NewHTTPNotifier(cfg.OrderService.BaseURL, cfg.OrderService.APIKey, cfg.OrderService.HTTPTimeout)

	paymentService := service.NewPaymentService(
		recordRepo,
		queryLogRepo,
		gatewayClient,
		notifier,
		sveaCfg,
		cfg.Payments,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}

func sveaConfigFrom(cfg *config.Config) svea.Config {
	return svea.Config{
		SellerID:            cfg.Svea.SellerID,
		SecretKey:           cfg.Svea.SecretKey,
		KeyGeneration:       cfg.Svea.KeyGeneration,
		HashAlgorithms:      cfg.Svea.HashAlgorithms,
		Escrow:              cfg.Svea.Escrow,
		EscrowChangeAllowed: cfg.Svea.EscrowChangeAllowed,
		PaymentIDPrefix:     cfg.Svea.PaymentIDPrefix,
		OrderIDOffset:       cfg.Svea.OrderIDOffset,
		DueDateDays:         cfg.Svea.DueDateDays,
		OKReturnURL:         cfg.Svea.OKReturnURL,
		ErrorReturnURL:      cfg.Svea.ErrorReturnURL,
		CancelReturnURL:     cfg.Svea.CancelReturnURL,
		DelayReturnURL:      cfg.Svea.DelayReturnURL,
		SellerIBAN:          cfg.Svea.SellerIBAN,
		InvoiceFromSeller:   cfg.Svea.InvoiceFromSeller,
		PaymentMethod:       cfg.Svea.PaymentMethod,
		PaymentMethodFee:    cfg.Svea.PaymentMethodFee,
		PaymentMethodFeeTax: cfg.Svea.PaymentMethodFeeTax,
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
