/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and preferences file
  2. Initialize SQLite store
  3. Build the engine with the configured period policy
  4. Regenerate journals so the in-memory cache is warm
  5. Start the maintenance scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: ledger.db)
           Use ":memory:" for in-memory database
  -prefs   TOML preferences path (default: ledger.toml)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with financial periods
  ./server -prefs="./ledger.toml"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/engine"
	"github.com/warp/ledger-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "ledger.db", "SQLite database path")
	prefsPath := flag.String("prefs", "ledger.toml", "TOML preferences path")
	flag.Parse()

	// Preferences decide the period policy; refuse to start on a bad one.
	prefs, err := loadPrefs(*prefsPath)
	if err != nil {
		log.Fatalf("Failed to load preferences: %v", err)
	}
	policy, err := engine.PolicyFromPreferences(prefs)
	if err != nil {
		log.Fatalf("Invalid period policy: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Build the engine; the SQLite store serves every collaborator role.
	eng := engine.New(engine.Config{
		Accounts:     store,
		Transactions: store,
		Adjustments:  store,
		Entries:      store,
		Policy:       policy,
		Capabilities: engine.Capabilities{Adjustments: true},
	})

	// Warm start: rebuild journals and the balance cache from the ledger.
	if err := eng.RegenerateAll(context.Background()); err != nil {
		log.Printf("Warning: initial regeneration: %v", err)
	}

	// Keep journals fresh across period boundaries
	scheduler := api.NewMaintenanceScheduler(eng)
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	handler := api.NewHandler(store, eng)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
