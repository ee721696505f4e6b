// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"drclean-workers/internal/common/aws"
	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/config"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/observability"
	"drclean-workers/internal/common/validation"
	"drclean-workers/internal/invoicing"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/loyalty"
	"drclean-workers/internal/repository"
	"drclean-workers/internal/search"
	"drclean-workers/pkg/registry"

	// Pricing & bookings
	ep "drclean-workers/internal/workers/pricing/estimate-price"
	lcb "drclean-workers/internal/workers/booking/list-client-bookings"
	tb "drclean-workers/internal/workers/booking/transition-booking"

	// Invoices
	ibi "drclean-workers/internal/workers/invoice/issue-booking-invoice"
	si "drclean-workers/internal/workers/invoice/search-invoices"
	uis "drclean-workers/internal/workers/invoice/update-invoice-status"

	// Jobs
	cja "drclean-workers/internal/workers/job/collect-job-alerts"
	mjp "drclean-workers/internal/workers/job/mark-job-paid"
	rj "drclean-workers/internal/workers/job/reassign-jobs"
	uje "drclean-workers/internal/workers/job/update-job-expenses"

	// Finance, loyalty, clients, email
	dc "drclean-workers/internal/workers/client/delete-client"
	sie "drclean-workers/internal/workers/communication/send-invoice-email"
	cf "drclean-workers/internal/workers/finance/compute-finances"
	rl "drclean-workers/internal/workers/loyalty/recalculate-loyalty"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type smsSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Service:     cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- RabbitMQ ---
	var publisher events.Publisher = events.NopPublisher{Log: log}
	if cfg.Messaging.RabbitMQURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Messaging.RabbitMQURL, cfg.Messaging.Exchange, log)
		if err != nil {
			zapLog.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer amqpPub.Close()
		publisher = amqpPub
		zapLog.Info("RabbitMQ connected successfully", zap.String("exchange", cfg.Messaging.Exchange))
	} else {
		zapLog.Warn("messaging.rabbitmq_url not set, domain events are dropped")
	}

	// --- AWS ---
	var (
		mailer *aws.SESClient
		sms    smsSender
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if awsCfg.SES.Enabled {
			mailer = aws.NewSESClient(sdkCfg, awsCfg.SES.FromEmail, awsCfg.SES.ReplyTo)
		}
		if awsCfg.SNS.Enabled {
			sms = aws.NewSNSClient(sdkCfg, awsCfg.SNS.DefaultSMSSenderID)
		}
	}

	// --- Domain services ---
	repo := repository.New(pg.DB, log)
	invoiceIndex := search.NewInvoiceIndex(esClient.Client, cfg.Search.InvoiceIndex)
	if err := invoiceIndex.EnsureIndex(ctx); err != nil {
		zapLog.Warn("invoice index not ready, indexing will retry per job", zap.Error(err))
	}
	issuer := invoicing.NewIssuer(
		invoicing.NewNumberer(rdb.Client, repo),
		repo,
		invoicing.Options{VATRate: cfg.Invoicing.VATRate, DueDays: cfg.Invoicing.DueDays},
	)
	loyaltyService := loyalty.NewService(repo, cfg.Loyalty.PointsPerCZK, log)
	payments := lifecycle.NewPaymentSync(repo, repo, log)

	// --- Job variable validation ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Warn("activity registry not found on disk, using embedded copy",
			zap.String("path", cfg.Registry.Path), zap.Error(err))
		reg = registry.Default()
	}
	validator, err := validation.NewSchemaValidator(reg)
	if err != nil {
		zapLog.Fatal("schema validator failed", zap.Error(err))
	}

	workers := &workerSet{
		client:    zeebe.GetClient(),
		cfg:       cfg,
		validator: validator,
		log:       log,
	}

	// --- Pricing & bookings ---
	if workers.enabled(ep.TaskType) {
		wc := ep.LoadConfig()
		wc.Timeout = workers.timeout(ep.TaskType, wc.Timeout)
		wc.DefaultTeamSize = cfg.Pricing.DefaultTeamSize
		if cfg.Pricing.MinOverridePrice > 0 {
			wc.MinOverridePrice = float64(cfg.Pricing.MinOverridePrice)
		}
		workers.start(ep.TaskType, ep.NewHandler(wc, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(tb.TaskType) {
		wc := tb.LoadConfig()
		wc.Timeout = workers.timeout(tb.TaskType, wc.Timeout)
		workers.start(tb.TaskType, tb.NewHandler(wc, repo, publisher, sms, rdb.Client, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(lcb.TaskType) {
		wc := lcb.LoadConfig()
		wc.Timeout = workers.timeout(lcb.TaskType, wc.Timeout)
		wc.CacheTTL = time.Duration(cfg.Cache.ClientBookingsTTL) * time.Second
		workers.start(lcb.TaskType, lcb.NewHandler(wc, repo, rdb.Client, log).WithRecorder(obs).Handle)
	}

	// --- Invoices ---
	if workers.enabled(ibi.TaskType) {
		wc := ibi.LoadConfig()
		wc.Timeout = workers.timeout(ibi.TaskType, wc.Timeout)
		workers.start(ibi.TaskType, ibi.NewHandler(wc, repo, issuer, invoiceIndex, publisher, rdb.Client, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(uis.TaskType) {
		wc := uis.LoadConfig()
		wc.Timeout = workers.timeout(uis.TaskType, wc.Timeout)
		workers.start(uis.TaskType, uis.NewHandler(wc, repo, loyaltyService, invoiceIndex, publisher, rdb.Client, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(si.TaskType) {
		wc := si.LoadConfig()
		wc.Timeout = workers.timeout(si.TaskType, wc.Timeout)
		workers.start(si.TaskType, si.NewHandler(wc, invoiceIndex, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(sie.TaskType) {
		if mailer == nil {
			zapLog.Warn("SES disabled, invoice email worker not started", zap.String("taskType", sie.TaskType))
		} else {
			wc := sie.LoadConfig()
			wc.Timeout = workers.timeout(sie.TaskType, wc.Timeout)
			wc.PDFBaseURL = cfg.Invoicing.PDFBaseURL
			workers.start(sie.TaskType, sie.NewHandler(wc, repo, mailer, log).WithRecorder(obs).Handle)
		}
	}

	// --- Jobs ---
	if workers.enabled(uje.TaskType) {
		wc := uje.LoadConfig()
		wc.Timeout = workers.timeout(uje.TaskType, wc.Timeout)
		workers.start(uje.TaskType, uje.NewHandler(wc, repo, payments, publisher, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(mjp.TaskType) {
		wc := mjp.LoadConfig()
		wc.Timeout = workers.timeout(mjp.TaskType, wc.Timeout)
		workers.start(mjp.TaskType, mjp.NewHandler(wc, repo, payments, publisher, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(cja.TaskType) {
		wc := cja.LoadConfig()
		wc.Timeout = workers.timeout(cja.TaskType, wc.Timeout)
		wc.AdminPhone = cfg.Alerts.AdminPhone
		workers.start(cja.TaskType, cja.NewHandler(wc, repo, sms, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(rj.TaskType) {
		wc := rj.LoadConfig()
		wc.Timeout = workers.timeout(rj.TaskType, wc.Timeout)
		workers.start(rj.TaskType, rj.NewHandler(wc, repo, log).WithRecorder(obs).Handle)
	}

	// --- Finance, loyalty, clients ---
	if workers.enabled(cf.TaskType) {
		wc := cf.LoadConfig()
		wc.Timeout = workers.timeout(cf.TaskType, wc.Timeout)
		workers.start(cf.TaskType, cf.NewHandler(wc, repo, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(rl.TaskType) {
		wc := rl.LoadConfig()
		wc.Timeout = workers.timeout(rl.TaskType, wc.Timeout)
		workers.start(rl.TaskType, rl.NewHandler(wc, repo, loyaltyService, log).WithRecorder(obs).Handle)
	}

	if workers.enabled(dc.TaskType) {
		wc := dc.LoadConfig()
		wc.Timeout = workers.timeout(dc.TaskType, wc.Timeout)
		workers.start(dc.TaskType, dc.NewHandler(wc, repo, publisher, rdb.Client, log).WithRecorder(obs).Handle)
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers.opened)))

	// --- Health & Metrics Server ---
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok", "zeebe": "ok"}
		status := http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(checkCtx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeStatus(w, status, checks)
	})
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.closeAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// workerSet opens job workers with the per-task settings from config and
// guards each handler with the registry schema for its task type.
type workerSet struct {
	client    zbc.Client
	cfg       *config.Config
	validator camunda.Validator
	log       logger.Logger
	opened    []worker.JobWorker
}

func (s *workerSet) enabled(taskType string) bool {
	if !config.IsWorkerEnabled(s.cfg, taskType) {
		s.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}
	return true
}

// timeout returns the configured job timeout, or def when none is set.
func (s *workerSet) timeout(taskType string, def time.Duration) time.Duration {
	wc := config.GetWorkerConfig(s.cfg, taskType)
	if wc.Timeout <= 0 {
		return def
	}
	return config.GetDuration(wc.Timeout)
}

func (s *workerSet) start(taskType string, handler worker.JobHandler) {
	wc := config.GetWorkerConfig(s.cfg, taskType)
	maxJobs := wc.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = s.cfg.Camunda.MaxJobsActive
	}

	jw := camunda.StartWorker(s.client, taskType, camunda.WorkerOptions{
		MaxJobsActive: maxJobs,
		Timeout:       s.timeout(taskType, config.GetDuration(s.cfg.Camunda.Timeout)),
	}, camunda.Validated(taskType, s.validator, s.log, handler), s.log)
	s.opened = append(s.opened, jw)
}

func (s *workerSet) closeAll() {
	for _, jw := range s.opened {
		jw.Close()
	}
	for _, jw := range s.opened {
		jw.AwaitClose()
	}
}
