package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/example/votegate/internal/config"
	"github.com/gorilla/mux"
	_ "modernc.org/sqlite"
)

type App struct {
	cfg         *cfg.Config
	wallet      Wallet
	tokens      *TokenService
	identities  *IdentityManager
	polls       *PollService
	profiles    *ProfileManager
	rateLimiter *RateLimiter
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var wallet Wallet
	switch c.WalletAdapter {
	case "file":
		w, err := NewFileWallet(c.WalletPath)
		if err != nil {
			log.Fatalf("file wallet init: %v", err)
		}
		wallet = w
	case "sqlite":
		w, err := NewSQLiteWallet(c.SQLiteFile)
		if err != nil {
			log.Fatalf("sqlite wallet init: %v", err)
		}
		wallet = w
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			log.Fatalf("postgres config error: %v", err)
		}

		// Apply migrations before connecting
		log.Println("Applying database migrations...")
		if err := ApplyMigrations("./migrations", dsn); err != nil {
			log.Printf("migrations warning: %v", err)
		} else {
			log.Println("Migrations applied successfully")
		}

		w, err := NewPostgresWallet(dsn)
		if err != nil {
			log.Fatalf("postgres wallet init: %v", err)
		}
		wallet = w
		log.Println("Connected to PostgreSQL wallet")
	case "memory":
		log.Println("Using in-memory wallet (not recommended for production)")
		wallet = NewMemWallet()
	default:
		log.Fatalf("unsupported WALLET_ADAPTER: %s (supported: file, sqlite, postgres, memory)", c.WalletAdapter)
	}

	profiles := NewProfileManager(c.ConnectionSrc, c.ConnectionDest)
	if err := profiles.Reload(); err != nil {
		log.Printf("connection profile: %v", err)
	}

	var (
		connector LedgerConnector
		ca        CAClient
	)
	switch c.LedgerAdapter {
	case "memory":
		log.Println("Using in-process ledger adapter (not recommended for production)")
		ledger := NewMemLedger()
		connector = NewMemConnector(ledger)
		ca = NewMemCA(c.AdminID, c.AdminSecret)
	default:
		log.Fatalf("unsupported LEDGER_ADAPTER: %s (supported: memory)", c.LedgerAdapter)
	}

	gateway := NewTxGateway(wallet, connector)
	app := &App{
		cfg:         c,
		wallet:      wallet,
		tokens:      NewTokenService(c.JwtSecret, c.JwtRefreshSecret, NewMemoryTokenStore()),
		identities:  NewIdentityManager(wallet, ca, gateway, c.AdminID, c.AdminSecret, c.MSPID),
		polls:       NewPollService(wallet, gateway, c.AdminID),
		profiles:    profiles,
		rateLimiter: NewRateLimiter(c.RateLimitPerMinute),
	}

	r := app.Router()

	srv := &http.Server{Handler: r, Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		fmt.Println("Starting votegate server on", c.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.wallet.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed:%+v", err)
	}
	fmt.Println("Server exited properly")
}

// Router wires middleware and routes; split out so tests can run the full
// stack against httptest.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := a.wallet.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")

	// Authentication endpoints
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Use(a.RateLimit)
	auth.HandleFunc("/admin/login", a.HandleAdminLogin).Methods("POST")
	auth.HandleFunc("/login", a.HandleVoterLogin).Methods("POST")
	auth.HandleFunc("/refresh", a.HandleRefresh).Methods("POST")

	// Public voting endpoints
	voting := r.PathPrefix("/api/voting").Subrouter()
	voting.Use(a.RateLimit)
	voting.HandleFunc("/poll/list", a.HandleListPolls).Methods("GET")
	voting.HandleFunc("/poll/results/{pollID}", a.HandleResults).Methods("GET")
	voting.HandleFunc("/vote/cast", a.HandleCastVote).Methods("POST")

	// Admin-only voting endpoints
	admin := r.PathPrefix("/api/voting").Subrouter()
	admin.Use(a.AdminAuth)
	admin.Use(a.RateLimit)
	admin.HandleFunc("/admin/enroll", a.HandleEnrollAdmin).Methods("POST")
	admin.HandleFunc("/voter/register", a.HandleRegisterVoter).Methods("POST")
	admin.HandleFunc("/voter/{voterID}", a.HandleDeleteVoter).Methods("DELETE")
	admin.HandleFunc("/wallet/list", a.HandleListWallet).Methods("GET")
	admin.HandleFunc("/poll/create", a.HandleCreatePoll).Methods("POST")
	admin.HandleFunc("/poll/close", a.HandleClosePoll).Methods("POST")
	admin.HandleFunc("/profile/reload", a.HandleReloadProfile).Methods("POST")

	return r
}
