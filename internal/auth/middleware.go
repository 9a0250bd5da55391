package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const accountContextKey contextKey = "campuscore_account"

func WithAccount(ctx context.Context, a *Account) context.Context {
	return context.WithValue(ctx, accountContextKey, a)
}

func AccountFromContext(ctx context.Context) (*Account, bool) {
	a, ok := ctx.Value(accountContextKey).(*Account)
	return a, ok
}

// Authenticate verifies the bearer token and re-loads the account on every
// request. Token claims are not trusted as proof of existence: an account
// deleted after issuance fails with 401 even while the token is unexpired.
func Authenticate(tokens *Tokens, accounts AccountReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := tokens.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			account, err := accounts.GetByID(r.Context(), claims.AccountID)
			if err != nil {
				if errors.Is(err, ErrAccountNotFound) {
					w.WriteHeader(http.StatusUnauthorized)
				} else {
					w.WriteHeader(http.StatusInternalServerError)
				}
				return
			}
			ctx := WithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, ok := allowed[account.Role]; !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
