package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PollService composes gateway calls for poll management and vote casting.
// Poll state lives entirely on the ledger; nothing is cached here.
type PollService struct {
	wallet     Wallet
	gateway    *TxGateway
	adminLabel string
}

func NewPollService(wallet Wallet, gateway *TxGateway, adminLabel string) *PollService {
	return &PollService{wallet: wallet, gateway: gateway, adminLabel: adminLabel}
}

// CreatePoll creates a poll under the admin identity. A blank pollID gets a
// generated one; the chosen ID is returned either way.
func (s *PollService) CreatePoll(ctx context.Context, pollID, title string, options []string) (string, error) {
	if pollID == "" {
		pollID = uuid.NewString()
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return "", err
	}
	if _, err := s.gateway.Submit(ctx, s.adminLabel, opCreatePoll, pollID, title, string(optionsJSON), s.adminLabel); err != nil {
		return "", err
	}
	return pollID, nil
}

func (s *PollService) ClosePoll(ctx context.Context, pollID string) error {
	_, err := s.gateway.Submit(ctx, s.adminLabel, opClosePoll, pollID)
	return err
}

// VoteRejectedError carries the user-facing message for a cast that the
// ledger turned down, with the raw rejection preserved underneath.
type VoteRejectedError struct {
	Message string
	Err     error
}

func (e *VoteRejectedError) Error() string { return e.Message }
func (e *VoteRejectedError) Unwrap() error { return e.Err }

const (
	msgAlreadyVoted = "You have already voted in this poll."
	msgPollNotFound = "Poll not found."
	msgPollClosed   = "This poll is closed."
	msgVoteFailed   = "Failed to cast vote. Please try again."
)

// translateVoteError is the only place that inspects ledger error text.
// The ledger's error contract is free text, so the known phrases are
// matched case-insensitively here and nowhere else.
func translateVoteError(err error) string {
	raw := strings.ToLower(err.Error())
	switch {
	case strings.Contains(raw, "already voted"):
		return msgAlreadyVoted
	case strings.Contains(raw, "poll not found"):
		return msgPollNotFound
	case strings.Contains(raw, "poll is closed"):
		return msgPollClosed
	default:
		return msgVoteFailed
	}
}

// CastVote submits the vote under the voter's own identity. The voter must
// already be enrolled; the ledger is not contacted otherwise.
func (s *PollService) CastVote(ctx context.Context, voterID, pollID, choice string) error {
	id, err := s.wallet.Get(voterID)
	if err != nil {
		return err
	}
	if id == nil {
		return &VoterNotEnrolledError{ID: voterID}
	}
	if _, err := s.gateway.Submit(ctx, voterID, opCastVote, pollID, voterID, choice); err != nil {
		return &VoteRejectedError{Message: translateVoteError(err), Err: err}
	}
	return nil
}

// GetResults evaluates the poll tally and returns the option→count mapping
// exactly as the ledger reports it.
func (s *PollService) GetResults(ctx context.Context, pollID string) (map[string]int, error) {
	out, err := s.gateway.Evaluate(ctx, s.adminLabel, opGetResults, pollID)
	if err != nil {
		return nil, err
	}
	var results map[string]int
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("unexpected results payload for poll %s: %w", pollID, err)
	}
	return results, nil
}

// ListPolls evaluates the full poll listing under the admin identity.
func (s *PollService) ListPolls(ctx context.Context) ([]Poll, error) {
	out, err := s.gateway.Evaluate(ctx, s.adminLabel, opGetAllPolls)
	if err != nil {
		return nil, err
	}
	var polls []Poll
	if err := json.Unmarshal(out, &polls); err != nil {
		return nil, fmt.Errorf("unexpected poll listing payload: %w", err)
	}
	return polls, nil
}
