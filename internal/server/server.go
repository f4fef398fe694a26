package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"algo-transfers/internal/config"
	"algo-transfers/internal/domain"
	"algo-transfers/internal/handler"
	"algo-transfers/internal/ledger"
	"algo-transfers/internal/metrics"
	"algo-transfers/internal/repository"
	"algo-transfers/internal/service"
	"algo-transfers/internal/worker"
)

const requestIDHeader = "X-Request-ID"

// Deps are the collaborators a Server is built from. Ledger is used as given;
// wrap it with ledger.NewInstrumented before passing it in to get ledger metrics.
type Deps struct {
	Store   *repository.Store
	Ledger  domain.LedgerClient
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	router     *mux.Router
	server     *http.Server
	store      *repository.Store
	accounts   *service.AccountService
	reconciler *worker.Reconciler
	stopWorker context.CancelFunc
	workerDone chan struct{}
	cacheDone  chan struct{}
	logger     *slog.Logger
	port       string
}

// NewServer wires services and routes. The store is owned by the server from
// here on and closed by Stop.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger

	transactionService := service.NewTransactionService(deps.Ledger, deps.Store, deps.Metrics, logger, service.Options{
		ConfirmationRounds:  cfg.ConfirmationRounds,
		WaitForConfirmation: cfg.WaitForConfirmation,
	})
	accountService := service.NewAccountService(deps.Ledger, cfg.AccountCacheTTL, logger)

	transactionHandler := handler.NewTransactionHandler(transactionService, resolveSigner, cfg.DefaultMnemonic, cfg.ConfirmationRounds, cfg.MaxWaitRounds)
	accountHandler := handler.NewAccountHandler(accountService)

	router := mux.NewRouter()
	router.Use(requestMiddleware(logger, deps.Metrics))

	router.HandleFunc("/transactions", transactionHandler.Submit).Methods("POST")
	router.HandleFunc("/transactions", transactionHandler.List).Methods("GET")
	router.HandleFunc("/transactions/reconcile", transactionHandler.Reconcile).Methods("POST")
	router.HandleFunc("/transactions/{transaction_id}", transactionHandler.Get).Methods("GET")
	router.HandleFunc("/transactions/{transaction_id}/status", transactionHandler.Status).Methods("GET")
	router.HandleFunc("/transactions/{transaction_id}/wait", transactionHandler.Wait).Methods("POST")

	router.HandleFunc("/accounts/{address}", accountHandler.GetAccount).Methods("GET")

	router.HandleFunc("/health", healthHandler(deps.Store)).Methods("GET")
	router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")

	s := &Server{
		router:   router,
		store:    deps.Store,
		accounts: accountService,
		logger:   logger,
	}
	if cfg.ReconcileInterval > 0 {
		s.reconciler = worker.NewReconciler(transactionService, cfg.ReconcileInterval, cfg.ReconcileTimeout, logger)
	}
	return s
}

func resolveSigner(mnemonic string) (domain.Signer, error) {
	signer, err := ledger.NewMnemonicSigner(mnemonic)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func healthHandler(store *repository.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "store unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"store":     store.Driver(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// requestMiddleware tags each request with an id, logs it and counts it by route template.
func requestMiddleware(logger *slog.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.HTTPRequest(route, strconv.Itoa(ww.statusCode))

			logger.Info("request completed",
				"request_id", requestID,
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port, serves in the background and starts the background
// workers. Port "0" picks a free port.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port, "store", s.store.Driver())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	s.cacheDone = make(chan struct{})
	go func() {
		defer close(s.cacheDone)
		s.accounts.Start()
	}()
	if s.reconciler != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopWorker = cancel
		s.workerDone = make(chan struct{})
		go func() {
			defer close(s.workerDone)
			s.reconciler.Run(ctx)
		}()
	}

	return s.port, nil
}

// Stop drains HTTP traffic, stops the workers and closes the store.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var shutdownErr error
	if s.server != nil {
		shutdownErr = s.server.Shutdown(ctx)
	}

	if s.stopWorker != nil {
		s.stopWorker()
		select {
		case <-s.workerDone:
		case <-ctx.Done():
			s.logger.Warn("Reconciler did not stop before shutdown deadline")
		}
	}
	if s.cacheDone != nil {
		s.accounts.Stop()
		<-s.cacheDone
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", "error", err)
	}
	return shutdownErr
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer opens the configured store and algod client and starts serving.
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	store, err := repository.Open(context.Background(), cfg, logger)
	if err != nil {
		return nil, "", err
	}

	algod, err := ledger.NewAlgodClient(cfg.AlgodAddress, cfg.AlgodToken, logger)
	if err != nil {
		store.Close()
		return nil, "", err
	}

	m := metrics.New()
	server := NewServer(cfg, Deps{
		Store:   store,
		Ledger:  ledger.NewInstrumented(algod, m),
		Metrics: m,
		Logger:  logger,
	})

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		store.Close()
		return nil, "", err
	}

	return server, port, nil
}
