package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSession records calls and releases so gateway scoping can be checked.
type fakeSession struct {
	submitErr   error
	evaluateErr error
	payload     []byte
	disconnects int
	calls       []string
}

func (s *fakeSession) Submit(ctx context.Context, op string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, "submit:"+op)
	return s.payload, s.submitErr
}

func (s *fakeSession) Evaluate(ctx context.Context, op string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, "evaluate:"+op)
	return s.payload, s.evaluateErr
}

func (s *fakeSession) Disconnect() { s.disconnects++ }

type fakeConnector struct {
	session    *fakeSession
	connectErr error
	connects   int
}

func (c *fakeConnector) Connect(ctx context.Context, wallet Wallet, label string) (LedgerSession, error) {
	c.connects++
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.session, nil
}

func TestGatewaySubmitReleasesSession(t *testing.T) {
	sess := &fakeSession{payload: []byte("ok")}
	conn := &fakeConnector{session: sess}
	g := NewTxGateway(NewMemWallet(), conn)

	out, err := g.Submit(context.Background(), "admin", opCreatePoll, "p1")
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), out)
	require.Equal(t, 1, sess.disconnects)
	require.Equal(t, []string{"submit:" + opCreatePoll}, sess.calls)
}

func TestGatewayReleasesSessionOnFailure(t *testing.T) {
	sess := &fakeSession{submitErr: errors.New("Poll not found: p1")}
	conn := &fakeConnector{session: sess}
	g := NewTxGateway(NewMemWallet(), conn)

	_, err := g.Submit(context.Background(), "admin", opClosePoll, "p1")
	require.Error(t, err)
	require.Equal(t, 1, sess.disconnects)

	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	require.Equal(t, opClosePoll, ge.Op)
	require.Equal(t, "Poll not found: p1", ge.RawMessage)
}

func TestGatewayEvaluate(t *testing.T) {
	sess := &fakeSession{payload: []byte(`{"A":1}`)}
	conn := &fakeConnector{session: sess}
	g := NewTxGateway(NewMemWallet(), conn)

	out, err := g.Evaluate(context.Background(), "admin", opGetResults, "p1")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"A":1}`), out)
	require.Equal(t, 1, sess.disconnects)
	require.Equal(t, []string{"evaluate:" + opGetResults}, sess.calls)
}

func TestGatewayPropagatesConnectionError(t *testing.T) {
	conn := &fakeConnector{connectErr: &ConnectionError{Label: "ghost", Err: errors.New("identity not found in wallet")}}
	g := NewTxGateway(NewMemWallet(), conn)

	_, err := g.Submit(context.Background(), "ghost", opCastVote, "p1", "ghost", "A")
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "ghost", ce.Label)
}

func TestGatewayKeepsTypedGatewayErrors(t *testing.T) {
	sess := &fakeSession{submitErr: &GatewayError{Op: opCastVote, Code: 500, RawMessage: "endorsement failure"}}
	conn := &fakeConnector{session: sess}
	g := NewTxGateway(NewMemWallet(), conn)

	_, err := g.Submit(context.Background(), "alice", opCastVote, "p1", "alice", "A")
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	require.Equal(t, 500, ge.Code)
	require.Equal(t, 1, sess.disconnects)
}
