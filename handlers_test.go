package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	cfg "github.com/example/votegate/internal/config"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *mux.Router) {
	t.Helper()

	dir := t.TempDir()
	c := &cfg.Config{
		Port:               "8080",
		WalletAdapter:      "memory",
		LedgerAdapter:      "memory",
		ChannelName:        "mychannel",
		ChaincodeName:      "vote",
		MSPID:              "Org1MSP",
		AdminID:            "admin",
		AdminSecret:        "adminpw",
		ConnectionSrc:      filepath.Join(dir, "src", "connection-org1.json"),
		ConnectionDest:     filepath.Join(dir, "connection-org1.json"),
		JwtSecret:          "test-access-secret",
		JwtRefreshSecret:   "test-refresh-secret",
		RateLimitPerMinute: 100000,
	}

	wallet := NewMemWallet()
	ledger := NewMemLedger()
	ca := NewMemCA(c.AdminID, c.AdminSecret)
	gateway := NewTxGateway(wallet, NewMemConnector(ledger))

	app := &App{
		cfg:         c,
		wallet:      wallet,
		tokens:      NewTokenService(c.JwtSecret, c.JwtRefreshSecret, NewMemoryTokenStore()),
		identities:  NewIdentityManager(wallet, ca, gateway, c.AdminID, c.AdminSecret, c.MSPID),
		polls:       NewPollService(wallet, gateway, c.AdminID),
		profiles:    NewProfileManager(c.ConnectionSrc, c.ConnectionDest),
		rateLimiter: NewRateLimiter(c.RateLimitPerMinute),
	}
	return app, app.Router()
}

func doRequest(t *testing.T, r *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func adminLogin(t *testing.T, r *mux.Router) (access, refresh string) {
	t.Helper()
	rec := doRequest(t, r, "POST", "/api/auth/admin/login", "", map[string]string{"adminKey": "adminpw"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestHealthAndReady(t *testing.T) {
	_, r := newTestApp(t)

	rec := doRequest(t, r, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, "GET", "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLogin(t *testing.T) {
	_, r := newTestApp(t)

	rec := doRequest(t, r, "POST", "/api/auth/admin/login", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, r, "POST", "/api/auth/admin/login", "", map[string]string{"adminKey": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	access, refresh := adminLogin(t, r)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
}

func TestVoterLoginNotImplemented(t *testing.T) {
	_, r := newTestApp(t)
	rec := doRequest(t, r, "POST", "/api/auth/login", "", map[string]string{})
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	_, r := newTestApp(t)

	rec := doRequest(t, r, "POST", "/api/auth/refresh", "", map[string]string{"token": "bogus"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, refresh := adminLogin(t, r)
	rec = doRequest(t, r, "POST", "/api/auth/refresh", "", map[string]string{"token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	access := decodeBody(t, rec)["accessToken"].(string)

	// the refreshed access token opens admin endpoints
	rec = doRequest(t, r, "POST", "/api/voting/admin/enroll", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEndpointsRequireAdminToken(t *testing.T) {
	app, r := newTestApp(t)

	// no header
	rec := doRequest(t, r, "POST", "/api/voting/poll/create", "", map[string]string{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	rec = doRequest(t, r, "POST", "/api/voting/poll/create", "not-a-jwt", map[string]string{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token, wrong role
	voterToken, err := app.tokens.IssueAccessToken("alice", RoleVoter)
	require.NoError(t, err)
	rec = doRequest(t, r, "POST", "/api/voting/poll/create", voterToken, map[string]string{})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVotingFlowOverHTTP(t *testing.T) {
	_, r := newTestApp(t)
	access, _ := adminLogin(t, r)

	rec := doRequest(t, r, "POST", "/api/voting/admin/enroll", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, "POST", "/api/voting/voter/register", access,
		map[string]string{"voterID": "alice", "voterSecret": "alicepw"})
	require.Equal(t, http.StatusOK, rec.Code)

	// duplicate registration conflicts
	rec = doRequest(t, r, "POST", "/api/voting/voter/register", access,
		map[string]string{"voterID": "alice", "voterSecret": "alicepw"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, r, "POST", "/api/voting/poll/create", access,
		map[string]interface{}{"pollID": "p1", "title": "Lunch", "options": []string{"A", "B"}})
	require.Equal(t, http.StatusOK, rec.Code)

	// public listing shows the poll
	rec = doRequest(t, r, "GET", "/api/voting/poll/list", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var polls []Poll
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &polls))
	require.Len(t, polls, 1)
	require.Equal(t, "p1", polls[0].ID)

	rec = doRequest(t, r, "POST", "/api/voting/vote/cast", "",
		map[string]string{"voterID": "alice", "pollID": "p1", "choice": "A"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, "GET", "/api/voting/poll/results/p1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	results := body["results"].(map[string]interface{})
	require.Equal(t, float64(1), results["A"])
	require.Equal(t, float64(0), results["B"])

	// double vote is rejected with the user-facing message
	rec = doRequest(t, r, "POST", "/api/voting/vote/cast", "",
		map[string]string{"voterID": "alice", "pollID": "p1", "choice": "B"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgAlreadyVoted, decodeBody(t, rec)["error_message"])

	// unenrolled voter never reaches the ledger
	rec = doRequest(t, r, "POST", "/api/voting/vote/cast", "",
		map[string]string{"voterID": "bob", "pollID": "p1", "choice": "A"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// close and verify further votes bounce
	rec = doRequest(t, r, "POST", "/api/voting/poll/close", access, map[string]string{"pollID": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, "GET", "/api/voting/wallet/list", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet := decodeBody(t, rec)
	require.ElementsMatch(t, []interface{}{"admin", "alice"}, wallet["identities"])

	rec = doRequest(t, r, "DELETE", "/api/voting/voter/alice", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterVoterWithoutAdminEnrollment(t *testing.T) {
	_, r := newTestApp(t)
	access, _ := adminLogin(t, r)

	rec := doRequest(t, r, "POST", "/api/voting/voter/register", access,
		map[string]string{"voterID": "alice", "voterSecret": "pw"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ADMIN_NOT_ENROLLED", decodeBody(t, rec)["error_code"])
}

func TestProfileReloadEndpoint(t *testing.T) {
	app, r := newTestApp(t)
	access, _ := adminLogin(t, r)

	require.NoError(t, os.MkdirAll(filepath.Dir(app.cfg.ConnectionSrc), 0o750))
	require.NoError(t, os.WriteFile(app.cfg.ConnectionSrc, []byte(`{"name":"test-network"}`), 0o600))

	rec := doRequest(t, r, "POST", "/api/voting/profile/reload", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(app.cfg.ConnectionDest)
	require.NoError(t, err)

	profile, ok := app.profiles.Current()
	require.True(t, ok)
	require.Equal(t, "test-network", profile["name"])
}
