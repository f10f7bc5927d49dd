package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mskovgaard/warboard/pkg/api/handlers"
	apimiddleware "github.com/mskovgaard/warboard/pkg/api/middleware"
	authproviders "github.com/mskovgaard/warboard/pkg/auth/providers"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/repositories"
	"github.com/mskovgaard/warboard/pkg/store"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	Repository   repositories.Repository
	Store        store.Store
	Operations   *game.Operations
}

// NewAPIServer creates a new http.Server for handling lobby requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	authMiddleware := apimiddleware.NewAuthMiddleware(opts.AuthProvider, opts.Store)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	authed := router.NewRoute().Subrouter()
	authed.Use(authMiddleware)
	authed.Handle("/games", handlers.HandleListGames(opts.Repository)).Methods(http.MethodGet)
	authed.Handle("/games", handlers.HandleCreateGame(opts.Operations)).Methods(http.MethodPost)
	authed.Handle("/games/{gameID}", handlers.HandleCheckCode(opts.Operations)).Methods(http.MethodGet)
	authed.Handle("/games/{gameID}/title", handlers.HandleChangeTitle(opts.Operations)).Methods(http.MethodPut)
	authed.Handle("/games/{gameID}", handlers.HandleDeleteGame(opts.Operations)).Methods(http.MethodDelete)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Handler exposes the router for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		next.ServeHTTP(w, r)
	})
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
