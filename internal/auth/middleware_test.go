package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	accounts map[string]*Account
}

func (f *fakeReader) GetByID(ctx context.Context, id string) (*Account, error) {
	if a, ok := f.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAccountNotFound
}

func (f *fakeReader) GetByEmail(ctx context.Context, email string) (*Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func TestAuthenticateMissingHeader(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)
	handler := Authenticate(tokens, &fakeReader{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateBadToken(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)
	handler := Authenticate(tokens, &fakeReader{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateDeletedAccount(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)
	token, err := tokens.Issue(&Account{ID: "gone", Role: RoleStudent})
	require.NoError(t, err)

	// The token is still unexpired, but the account no longer resolves.
	handler := Authenticate(tokens, &fakeReader{accounts: map[string]*Account{}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run for a deleted account")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateAttachesAccount(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)
	account := &Account{ID: "acc-1", Email: "ann@x.com", Name: "Ann", Role: RoleStudent}
	token, err := tokens.Issue(account)
	require.NoError(t, err)

	reader := &fakeReader{accounts: map[string]*Account{"acc-1": account}}
	var seen *Account
	handler := Authenticate(tokens, reader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccountFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "acc-1", seen.ID)
	assert.Equal(t, "ann@x.com", seen.Email)
}

func TestRequireRole(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	gated := RequireRole(next, RoleAdmin)

	// No account in context at all.
	rec := httptest.NewRecorder()
	gated(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated but wrong role.
	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req = req.WithContext(WithAccount(req.Context(), &Account{ID: "s1", Role: RoleStudent}))
	rec = httptest.NewRecorder()
	gated(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin passes.
	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req = req.WithContext(WithAccount(req.Context(), &Account{ID: "a1", Role: RoleAdmin}))
	rec = httptest.NewRecorder()
	gated(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
