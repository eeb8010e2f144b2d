package main

import (
	"context"
	"errors"
)

// Chaincode operations invoked through the gateway. Their internals belong
// to the ledger; this service only knows their names and argument order.
const (
	opCreatePoll  = "CreatePoll"
	opClosePoll   = "ClosePoll"
	opGetResults  = "GetResults"
	opGetAllPolls = "GetAllPolls"
	opCastVote    = "CastVote"
	opCreateVoter = "CreateVoter"
	opDeleteVoter = "DeleteVoter"
)

// LedgerSession is a live connection to the ledger bound to one identity,
// channel and contract. It is owned by the call that opened it and must be
// released on every exit path.
type LedgerSession interface {
	// Submit sends a state-changing transaction through ordering/consensus.
	Submit(ctx context.Context, op string, args ...string) ([]byte, error)
	// Evaluate runs a read-only query against a single peer.
	Evaluate(ctx context.Context, op string, args ...string) ([]byte, error)
	// Disconnect releases the session. Safe to call more than once.
	Disconnect()
}

// LedgerConnector establishes sessions for identities held in a wallet,
// with service discovery enabled. Connect fails with *ConnectionError when
// the profile is unresolvable or the membership service rejects the
// identity.
type LedgerConnector interface {
	Connect(ctx context.Context, wallet Wallet, label string) (LedgerSession, error)
}

// CAClient is the certificate-authority boundary. Register reports an
// existing identity as *CAError with code 74.
type CAClient interface {
	Enroll(ctx context.Context, enrollmentID, secret string) (*Enrollment, error)
	Register(ctx context.Context, req RegistrationRequest, actor *Identity) error
}

// TxGateway submits or evaluates chaincode operations on behalf of a named
// identity. Every call opens its own session and releases it before
// returning; sessions are never pooled or handed to callers.
type TxGateway struct {
	wallet    Wallet
	connector LedgerConnector
}

func NewTxGateway(wallet Wallet, connector LedgerConnector) *TxGateway {
	return &TxGateway{wallet: wallet, connector: connector}
}

func (g *TxGateway) Submit(ctx context.Context, label, op string, args ...string) ([]byte, error) {
	return g.invoke(ctx, label, op, args, true)
}

func (g *TxGateway) Evaluate(ctx context.Context, label, op string, args ...string) ([]byte, error) {
	return g.invoke(ctx, label, op, args, false)
}

func (g *TxGateway) invoke(ctx context.Context, label, op string, args []string, submit bool) ([]byte, error) {
	sess, err := g.connector.Connect(ctx, g.wallet, label)
	if err != nil {
		return nil, err
	}
	defer sess.Disconnect()

	var out []byte
	if submit {
		out, err = sess.Submit(ctx, op, args...)
	} else {
		out, err = sess.Evaluate(ctx, op, args...)
	}
	if err != nil {
		var ge *GatewayError
		if errors.As(err, &ge) {
			return nil, err
		}
		// Raw remote text is carried as-is; interpreting it is the
		// orchestrator's job.
		return nil, &GatewayError{Op: op, RawMessage: err.Error()}
	}
	return out, nil
}
