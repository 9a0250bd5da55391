package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"
)

// LoginHandler verifies email/password and issues a bearer token.
type LoginHandler struct {
	Accounts AccountReader
	Creds    *Credentials
	Tokens   *Tokens
	Logger   *slog.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	account, err := h.Accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			h.Logger.Error("load account for login", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// Fall through to the same rejection as a bad password so the
		// response does not reveal whether the email is registered.
	}
	if account == nil || !h.Creds.Verify(req.Password, account.PasswordHash) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid email or password"})
		return
	}

	token, err := h.Tokens.Issue(account)
	if err != nil {
		h.Logger.Error("issue token", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"token":   token,
		"account": account,
	})
}
