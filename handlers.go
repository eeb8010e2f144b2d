package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func (a *App) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AdminKey string `json:"adminKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.AdminKey == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Admin key is required")
		return
	}
	if in.AdminKey != a.cfg.AdminSecret {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid Admin Key")
		return
	}

	access, err := a.tokens.IssueAccessToken(a.cfg.AdminID, RoleAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}
	refresh, err := a.tokens.IssueRefreshToken(a.cfg.AdminID, RoleAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (a *App) HandleVoterLogin(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Voter login not implemented yet")
}

func (a *App) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Refresh token is required")
		return
	}

	access, err := a.tokens.Refresh(in.Token)
	switch {
	case errors.Is(err, ErrUnknownRefreshToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid refresh token")
		return
	case errors.Is(err, ErrExpiredRefreshToken):
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token expired")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// writeDomainError maps identity/ledger errors onto API responses in one
// place so every handler reports the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		dup        *DuplicateVoterError
		notEnr     *VoterNotEnrolledError
		rejected   *VoteRejectedError
		delErr     *LedgerDeleteError
		enrErr     *EnrollmentError
		regErr     *RegistrationError
		connErr    *ConnectionError
		gatewayErr *GatewayError
	)
	switch {
	case errors.As(err, &rejected):
		writeError(w, http.StatusBadRequest, "VOTE_REJECTED", rejected.Message)
	case errors.As(err, &notEnr):
		writeError(w, http.StatusBadRequest, "VOTER_NOT_ENROLLED",
			fmt.Sprintf("Voter %q not enrolled. Please register first.", notEnr.ID))
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, "VOTER_EXISTS", fmt.Sprintf("Voter %q already exists", dup.ID))
	case errors.Is(err, ErrMissingAdminIdentity):
		writeError(w, http.StatusConflict, "ADMIN_NOT_ENROLLED", "Admin identity missing. Enroll the admin first.")
	case errors.As(err, &delErr):
		writeError(w, http.StatusBadGateway, "LEDGER_DELETE_FAILED", "Failed to delete voter from ledger")
	case errors.As(err, &enrErr):
		writeError(w, http.StatusBadGateway, "ENROLLMENT_FAILED", "Enrollment failed")
	case errors.As(err, &regErr):
		writeError(w, http.StatusBadGateway, "REGISTRATION_FAILED", "Registration failed")
	case errors.As(err, &connErr):
		writeError(w, http.StatusBadGateway, "LEDGER_UNAVAILABLE", "Ledger network unavailable")
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, "LEDGER_REJECTED", "Ledger rejected the operation")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

func (a *App) HandleEnrollAdmin(w http.ResponseWriter, r *http.Request) {
	if err := a.identities.EnrollAdmin(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin enrolled successfully (overwritten if existed)",
	})
}

func (a *App) HandleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var in struct {
		VoterID     string `json:"voterID"`
		VoterSecret string `json:"voterSecret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.VoterID == "" || in.VoterSecret == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "voterID and voterSecret are required")
		return
	}

	if err := a.identities.RegisterVoter(r.Context(), in.VoterID, in.VoterSecret); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Voter %q registered & enrolled successfully", in.VoterID),
	})
}

func (a *App) HandleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	voterID := mux.Vars(r)["voterID"]
	if err := a.identities.DeleteVoter(r.Context(), voterID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Voter %q deleted", voterID),
	})
}

func (a *App) HandleListWallet(w http.ResponseWriter, r *http.Request) {
	labels, err := a.identities.ListWallet()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list wallet")
		return
	}
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "identities": labels})
}

func (a *App) HandleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PollID  string   `json:"pollID"`
		Title   string   `json:"title"`
		Options []string `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Title == "" || len(in.Options) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "title and options are required")
		return
	}

	pollID, err := a.polls.CreatePoll(r.Context(), in.PollID, in.Title, in.Options)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pollID":  pollID,
		"message": fmt.Sprintf("Poll %q created", pollID),
	})
}

func (a *App) HandleClosePoll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PollID string `json:"pollID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.PollID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "pollID is required")
		return
	}

	if err := a.polls.ClosePoll(r.Context(), in.PollID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Poll %q closed", in.PollID),
	})
}

func (a *App) HandleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := a.polls.ListPolls(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if polls == nil {
		polls = []Poll{}
	}
	writeJSON(w, http.StatusOK, polls)
}

func (a *App) HandleResults(w http.ResponseWriter, r *http.Request) {
	pollID := mux.Vars(r)["pollID"]
	results, err := a.polls.GetResults(r.Context(), pollID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pollID":  pollID,
		"results": results,
	})
}

func (a *App) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		VoterID string `json:"voterID"`
		PollID  string `json:"pollID"`
		Choice  string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.VoterID == "" || in.PollID == "" || in.Choice == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "voterID, pollID and choice are required")
		return
	}

	if err := a.polls.CastVote(r.Context(), in.VoterID, in.PollID, in.Choice); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Your vote has been cast successfully!",
	})
}

func (a *App) HandleReloadProfile(w http.ResponseWriter, r *http.Request) {
	if err := a.profiles.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "PROFILE_RELOAD_FAILED", "Failed to reload connection profile")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"reloaded": true})
}
