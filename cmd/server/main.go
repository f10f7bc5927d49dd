package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/api"
	authproviders "github.com/mskovgaard/warboard/pkg/auth/providers"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/repositories"
	"github.com/mskovgaard/warboard/pkg/servers"
	"github.com/mskovgaard/warboard/pkg/store"
	"github.com/mskovgaard/warboard/pkg/workers"
)

func main() {
	wsPort := flag.Int("ws-port", 8888, "Port for the store websocket server")
	apiPort := flag.Int("api-port", 9090, "Port for the lobby API server")
	logLevel := flag.String("log-level", "info", "Log level")
	sqlitePath := flag.String("sqlite", "", "Path to a SQLite database file for persistence")
	certFile := flag.String("cert-file", "", "TLS certificate file")
	keyFile := flag.String("key-file", "", "TLS key file")
	saveInterval := flag.Duration("save-interval", 10*time.Second, "Interval between document flushes")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	memStore := store.NewInMemoryStore(clock)

	var repository repositories.Repository
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		repository, err = repositories.NewPostgresRepository(ctx, connStr)
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to postgres: %v", err))
		}
	} else if *sqlitePath != "" {
		repository, err = repositories.NewSQLiteRepository(ctx, *sqlitePath)
		if err != nil {
			panic(fmt.Sprintf("Failed to open sqlite database: %v", err))
		}
	} else {
		log.Warn("No persistence configured, documents are kept in memory only")
	}

	if repository != nil {
		defer repository.Close(context.Background())

		docs, err := repository.LoadDocuments(ctx)
		if err != nil {
			panic(fmt.Sprintf("Failed to load documents: %v", err))
		}
		restore := make(map[string]store.Value, len(docs))
		for key, value := range docs {
			restore[key] = store.Value(value)
		}
		memStore.Load(restore)
		log.Info("Restored %d documents", len(restore))

		saveWorker := workers.NewSaveDocumentsWorker(workers.NewSaveDocumentsWorkerOptions{
			Repository: repository,
			Store:      memStore,
			Clock:      clock,
			Interval:   *saveInterval,
		})
		go saveWorker.Start(ctx)
	}

	var tlsConfig *servers.TLSConfig
	var apiTLSConfig *api.TLSConfig
	if *certFile != "" && *keyFile != "" {
		tlsConfig = &servers.TLSConfig{CertFile: *certFile, KeyFile: *keyFile}
		apiTLSConfig = &api.TLSConfig{CertFile: *certFile, KeyFile: *keyFile}
	}

	wsServer := servers.NewWSServer(servers.NewWSServerOptions{
		Port:  *wsPort,
		TLS:   tlsConfig,
		Store: memStore,
	})
	go wsServer.Start(ctx)

	var authProvider authproviders.AuthProvider
	if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		authProvider, err = authproviders.NewFirebaseAuthProvider(ctx, projectID, os.Getenv("FIREBASE_API_KEY"))
		if err != nil {
			panic(fmt.Sprintf("Failed to create auth provider: %v", err))
		}
	} else {
		log.Warn("FIREBASE_PROJECT_ID not set, using the local auth provider")
		authProvider = authproviders.NewLocalAuthProvider()
	}

	ops := game.NewOperations(game.NewOperationsOptions{
		Store: memStore,
		Clock: clock,
	})

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:         *apiPort,
		TLS:          apiTLSConfig,
		AuthProvider: authProvider,
		Repository:   repository,
		Store:        memStore,
		Operations:   ops,
	})
	go apiServer.Start()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server: %v", err)
	}
}
