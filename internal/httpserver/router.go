package httpserver

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"campuscore/internal/auth"
	"campuscore/internal/students"
)

func NewRouter(
	logger *slog.Logger,
	tokens *auth.Tokens,
	creds *auth.Credentials,
	accounts auth.AccountReader,
	svc *students.Service,
) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})

	// Public auth routes
	mux.Handle("/api/register", &students.RegisterHandler{Service: svc, Logger: logger})
	mux.Handle("/api/login", &auth.LoginHandler{
		Accounts: accounts,
		Creds:    creds,
		Tokens:   tokens,
		Logger:   logger,
	})

	secured := auth.Authenticate(tokens, accounts)

	// Own profile (any authenticated account)
	profileHandler := &students.ProfileHandler{Service: svc, Logger: logger}
	mux.Handle("/api/profile", secured(profileHandler))

	// Admin-only student management
	collection := &students.CollectionHandler{Service: svc, Logger: logger}
	detail := &students.DetailHandler{Service: svc, Logger: logger}
	mux.Handle("/api/students", secured(auth.RequireRole(collection.ServeHTTP, auth.RoleAdmin)))
	mux.Handle("/api/students/", secured(auth.RequireRole(detail.ServeHTTP, auth.RoleAdmin)))

	return withCORS(mux)
}
