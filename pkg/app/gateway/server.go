// Package gateway implements app.Runner for the biometric gateway process.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/openjms/biometric-gateway/pkg/app/httpserver"
	"github.com/openjms/biometric-gateway/pkg/auth"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
	"github.com/openjms/biometric-gateway/pkg/capture"
	captureservice "github.com/openjms/biometric-gateway/pkg/capture/service"
	"github.com/openjms/biometric-gateway/pkg/config"
	"github.com/openjms/biometric-gateway/pkg/enrollmentstore"
	"github.com/openjms/biometric-gateway/pkg/keys"
	"github.com/openjms/biometric-gateway/pkg/pgutil"
	subjectservice "github.com/openjms/biometric-gateway/pkg/subject/service"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
	visitorservice "github.com/openjms/biometric-gateway/pkg/visitor/service"
	"github.com/openjms/biometric-gateway/pkg/visitorstore"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the gateway server.
type Server struct {
	cfg *config.GatewayConfig
}

// NewServer initializes a new gateway server.
func NewServer(cfg *config.GatewayConfig) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("gateway config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting biometric gateway",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := s.openDB(logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cipher, err := s.buildCipher()
	if err != nil {
		return err
	}

	sessions, closeSessions, err := s.buildSessionStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	personStore := subjectstore.NewStore(db)
	enrollmentStore := enrollmentstore.NewStore(db)
	visitStore := visitorstore.NewStore(db)

	submitter := biometric.NewClient(cfg.Biometric, logger)
	devices := s.buildDevices(logger)

	captureSvc := captureservice.NewLog(captureservice.New(
		devices,
		bridge.NewGuard(),
		submitter,
		sessions,
		personStore,
		enrollmentStore,
		cipher,
		logger,
	), logger)
	defer func() {
		if err := captureSvc.Close(context.Background()); err != nil {
			logger.Warn("Device teardown failed", zap.Error(err))
		}
	}()

	subjectSvc := subjectservice.New(personStore, enrollmentStore, logger)
	visitorSvc := visitorservice.NewLog(visitorservice.New(visitStore, personStore, logger), logger)

	router := s.setupRouter(captureSvc, subjectSvc, visitorSvc, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return httpserver.ServeAndWait(ctx, logger, srv, cfg.Shutdown.Timeout)
}

func (s *Server) openDB(logger *zap.Logger) (*bun.DB, error) {
	db, err := pgutil.ConnectDB(&s.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("host", s.cfg.Database.Host),
		zap.String("database", s.cfg.Database.Database),
	)
	return db, nil
}

func (s *Server) buildCipher() (*keys.TemplateCipher, error) {
	masterKeyStr := os.Getenv(s.cfg.KeyManagement.MasterKeyEnv)
	if masterKeyStr == "" {
		return nil, fmt.Errorf(
			"template master key not set: env=%s (hint: openssl rand -base64 32)",
			s.cfg.KeyManagement.MasterKeyEnv,
		)
	}

	masterKey, err := keys.MasterKeyFromBase64(masterKeyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template master key: %w", err)
	}
	return keys.NewTemplateCipher(masterKey)
}

// buildSessionStore selects the capture-flow store. Redis keeps flows across
// gateway restarts; the in-memory store is for single-instance deployments.
func (s *Server) buildSessionStore(ctx context.Context, logger *zap.Logger) (capture.SessionStore, func(), error) {
	if s.cfg.Session.RedisAddr == "" {
		logger.Info("Using in-memory capture-flow store", zap.Duration("ttl", s.cfg.Session.TTL))
		return capture.NewMemoryStore(s.cfg.Session.TTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.cfg.Session.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Using Redis capture-flow store",
		zap.String("addr", s.cfg.Session.RedisAddr),
		zap.Duration("ttl", s.cfg.Session.TTL),
	)
	return capture.NewRedisStore(client, s.cfg.Session.TTL), func() { _ = client.Close() }, nil
}

func (s *Server) buildDevices(logger *zap.Logger) map[biometric.Modality]bridge.Device {
	return map[biometric.Modality]bridge.Device{
		biometric.ModalityFingerprint: bridge.NewScannerClient(biometric.ModalityFingerprint, s.cfg.Bridges.Fingerprint, logger),
		biometric.ModalityIris:        bridge.NewScannerClient(biometric.ModalityIris, s.cfg.Bridges.Iris, logger),
		biometric.ModalityFace:        bridge.NewFaceClient(s.cfg.Bridges.Face, logger),
	}
}

func (s *Server) setupRouter(
	captureSvc captureservice.Service,
	subjectSvc subjectservice.Service,
	visitorSvc visitorservice.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	authenticator := auth.NewAuthenticator(s.cfg.Auth, logger)

	// Operator endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticator.Middleware)

		captureservice.RegisterRoutes(r, captureSvc, logger)
		subjectservice.RegisterRoutes(r, subjectSvc, logger)
		visitorservice.RegisterRoutes(r, visitorSvc, logger)
	})

	return r
}
