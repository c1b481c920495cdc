package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// fakeAPI mimics the ExpenseFlow endpoints the SDK calls.
type fakeAPI struct {
	mu          sync.Mutex
	passwords   map[string]string
	access      map[string]string // access token -> user id
	refresh     map[string]string // refresh token -> user id
	magicLinks  map[string]string // magic token -> user id
	resolutions map[string]Resolution
	expenses    map[string]*Expense
	order       []string
	seq         int

	sessionCalls int
	signOuts     []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		passwords:   map[string]string{"hr@acme.test": "password123"},
		access:      map[string]string{},
		refresh:     map[string]string{},
		magicLinks:  map[string]string{},
		resolutions: map[string]Resolution{},
		expenses:    map[string]*Expense{},
	}
	api.resolutions["hr@acme.test"] = Resolution{
		State:        StateActive,
		Role:         "hr",
		Route:        "/dashboard",
		Organization: &Organization{ID: "org-1", Name: "Acme", Slug: "acme"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signin", api.signIn)
	mux.HandleFunc("POST /api/v1/auth/signup", api.signUp)
	mux.HandleFunc("POST /api/v1/auth/magic-link/verify", api.verifyMagicLink)
	mux.HandleFunc("POST /api/v1/auth/refresh", api.refreshTokens)
	mux.HandleFunc("POST /api/v1/auth/signout", api.authed(api.signOut))
	mux.HandleFunc("GET /api/v1/session", api.authed(api.session))
	mux.HandleFunc("GET /api/v1/hr/approvals", api.authed(api.approvals))
	mux.HandleFunc("PATCH /api/v1/expenses/{id}/approve", api.authed(api.decide("approved")))
	mux.HandleFunc("PATCH /api/v1/expenses/{id}/reject", api.authed(api.decide("rejected")))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, redirect string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"type": "ERROR", "code": code, "message": code, "redirect": redirect},
	})
}

func (a *fakeAPI) addPending(title string, amount string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	id := fmt.Sprintf("exp-%d", a.seq)
	a.expenses[id] = &Expense{
		ID:          id,
		Title:       title,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Status:      "pending",
		SubmittedAt: time.Now().Add(time.Duration(a.seq) * time.Minute),
	}
	a.order = append([]string{id}, a.order...)
	return id
}

func (a *fakeAPI) addMagicLink(token, user string) {
	a.mu.Lock()
	a.magicLinks[token] = user
	a.mu.Unlock()
}

func (a *fakeAPI) sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionCalls
}

func (a *fakeAPI) signedOutUsers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.signOuts...)
}

// expireAccess invalidates every issued access token, leaving refresh tokens.
func (a *fakeAPI) expireAccess() {
	a.mu.Lock()
	a.access = map[string]string{}
	a.mu.Unlock()
}

func (a *fakeAPI) issue(user string) Tokens {
	a.seq++
	access := fmt.Sprintf("access-%s-%d", user, a.seq)
	refresh := fmt.Sprintf("refresh-%s-%d", user, a.seq)
	a.access[access] = user
	a.refresh[refresh] = user
	return Tokens{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", ExpiresIn: 900, User: &User{ID: user, Email: user}}
}

func (a *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		user, ok := a.access[token]
		a.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "/auth")
			return
		}
		next(w, r, user)
	}
}

func (a *fakeAPI) signIn(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)

	a.mu.Lock()
	defer a.mu.Unlock()
	if pw, ok := a.passwords[body["email"]]; !ok || pw != body["password"] {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "")
		return
	}
	writeJSON(w, http.StatusOK, a.issue(body["email"]))
}

func (a *fakeAPI) signUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpRequest
	json.NewDecoder(r.Body).Decode(&body)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.passwords[body.Email]; ok {
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "")
		return
	}
	a.passwords[body.Email] = body.Password
	writeJSON(w, http.StatusCreated, a.issue(body.Email))
}

func (a *fakeAPI) verifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)

	a.mu.Lock()
	defer a.mu.Unlock()
	user, ok := a.magicLinks[body["token"]]
	if !ok {
		writeError(w, http.StatusUnauthorized, "MAGIC_LINK_INVALID", "/auth")
		return
	}
	delete(a.magicLinks, body["token"])
	writeJSON(w, http.StatusOK, a.issue(user))
}

func (a *fakeAPI) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)

	a.mu.Lock()
	defer a.mu.Unlock()
	user, ok := a.refresh[body["refresh_token"]]
	if !ok {
		writeError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "/auth")
		return
	}
	delete(a.refresh, body["refresh_token"])
	writeJSON(w, http.StatusOK, a.issue(user))
}

func (a *fakeAPI) signOut(w http.ResponseWriter, r *http.Request, user string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	delete(a.access, token)
	a.signOuts = append(a.signOuts, user)
	w.WriteHeader(http.StatusNoContent)
}

func (a *fakeAPI) session(w http.ResponseWriter, _ *http.Request, user string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionCalls++
	res, ok := a.resolutions[user]
	if !ok {
		res = Resolution{State: StateNoMembership, Route: "/onboarding"}
	}
	writeJSON(w, http.StatusOK, SessionView{
		User:       &User{ID: user, Email: user},
		Profile:    &Profile{ID: user, Email: user, FullName: "Test User"},
		Resolution: res,
		Route:      res.Route,
	})
}

func (a *fakeAPI) approvals(w http.ResponseWriter, _ *http.Request, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	page := expensePage{Expenses: []Expense{}}
	for _, id := range a.order {
		if exp := a.expenses[id]; exp.Status == "pending" {
			page.Expenses = append(page.Expenses, *exp)
		}
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *fakeAPI) decide(status string) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, _ string) {
		a.mu.Lock()
		defer a.mu.Unlock()
		exp, ok := a.expenses[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound, "EXPENSE_NOT_FOUND", "")
			return
		}
		if exp.Status != "pending" {
			writeError(w, http.StatusConflict, "INVALID_EXPENSE_STATUS", "")
			return
		}
		exp.Status = status
		writeJSON(w, http.StatusOK, exp)
	}
}
