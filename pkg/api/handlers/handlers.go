package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mskovgaard/warboard/pkg/api/middleware"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/repositories"
)

func HandleListGames(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			log.Error("failed to get user from context")
			http.Error(w, "Failed to get user from context", http.StatusInternalServerError)
			return
		}
		if repository == nil {
			http.Error(w, "Game listing requires persistence", http.StatusNotImplemented)
			return
		}
		games, err := repository.ListGamesByCreator(r.Context(), user.ID)
		if err != nil {
			log.Error("failed to list games: %v", err)
			http.Error(w, "Failed to list games", http.StatusInternalServerError)
			return
		}

		writeJSON(w, games)
	}
}

func HandleCreateGame(ops *game.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			log.Error("failed to get user from context")
			http.Error(w, "Failed to get user from context", http.StatusInternalServerError)
			return
		}

		title := r.FormValue("title")
		if len(title) < 1 || len(title) > 64 {
			http.Error(w, "Title must be between 1 and 64 characters", http.StatusBadRequest)
			return
		}

		gameID, err := ops.CreateGame(r.Context(), user.ID, title)
		if err != nil {
			log.Error("failed to create game: %v", err)
			http.Error(w, "Failed to create game", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]string{"id": gameID})
	}
}

func HandleCheckCode(ops *game.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := mux.Vars(r)["gameID"]
		if err := ops.CheckCode(r.Context(), gameID); err != nil {
			if game.IsValidation(err) {
				http.Error(w, "Invalid game code", http.StatusNotFound)
				return
			}
			log.Error("failed to check game code: %v", err)
			http.Error(w, "Failed to check game code", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]string{"id": gameID})
	}
}

func HandleChangeTitle(ops *game.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := requireCreator(ops, w, r)
		if !ok {
			return
		}

		title := r.FormValue("title")
		if len(title) < 1 || len(title) > 64 {
			http.Error(w, "Title must be between 1 and 64 characters", http.StatusBadRequest)
			return
		}

		if err := ops.ChangeTitle(r.Context(), g.ID, title); err != nil {
			log.Error("failed to change title: %v", err)
			http.Error(w, "Failed to change title", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleDeleteGame(ops *game.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := requireCreator(ops, w, r)
		if !ok {
			return
		}

		if err := ops.DeleteGame(r.Context(), g.ID); err != nil {
			log.Error("failed to delete game: %v", err)
			http.Error(w, "Failed to delete game", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// requireCreator loads the game from the path and checks that the caller
// created it. It writes the error response itself when the check fails.
func requireCreator(ops *game.Operations, w http.ResponseWriter, r *http.Request) (*types.Game, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		log.Error("failed to get user from context")
		http.Error(w, "Failed to get user from context", http.StatusInternalServerError)
		return nil, false
	}

	gameID := mux.Vars(r)["gameID"]
	g, err := ops.GetGame(r.Context(), gameID)
	if err != nil {
		log.Error("failed to read game: %v", err)
		http.Error(w, "Failed to read game", http.StatusInternalServerError)
		return nil, false
	}
	if g == nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return nil, false
	}
	if g.Creator != user.ID {
		http.Error(w, "Only the creator can manage the game", http.StatusForbidden)
		return nil, false
	}

	return g, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
