package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type identityFixture struct {
	wallet  *MemWallet
	ledger  *MemLedger
	ca      *MemCA
	gateway *TxGateway
	mgr     *IdentityManager
}

func newIdentityFixture() *identityFixture {
	wallet := NewMemWallet()
	ledger := NewMemLedger()
	ca := NewMemCA("admin", "adminpw")
	gateway := NewTxGateway(wallet, NewMemConnector(ledger))
	return &identityFixture{
		wallet:  wallet,
		ledger:  ledger,
		ca:      ca,
		gateway: gateway,
		mgr:     NewIdentityManager(wallet, ca, gateway, "admin", "adminpw", "Org1MSP"),
	}
}

func TestEnrollAdmin(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	require.NoError(t, f.mgr.EnrollAdmin(ctx))

	id, err := f.wallet.Get("admin")
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, "Org1MSP", id.MSPID)
	require.Equal(t, "X.509", id.Type)

	// repeat enrollment overwrites, never errors
	require.NoError(t, f.mgr.EnrollAdmin(ctx))
	again, err := f.wallet.Get("admin")
	require.NoError(t, err)
	require.NotEqual(t, id.Certificate, again.Certificate)
}

func TestEnrollAdminBadSecret(t *testing.T) {
	f := newIdentityFixture()
	mgr := NewIdentityManager(f.wallet, f.ca, f.gateway, "admin", "wrongpw", "Org1MSP")

	err := mgr.EnrollAdmin(context.Background())
	var enrErr *EnrollmentError
	require.ErrorAs(t, err, &enrErr)
	require.Equal(t, "admin", enrErr.ID)
}

func TestRegisterVoterRequiresAdmin(t *testing.T) {
	f := newIdentityFixture()

	err := f.mgr.RegisterVoter(context.Background(), "alice", "alicepw")
	require.ErrorIs(t, err, ErrMissingAdminIdentity)
}

func TestRegisterVoter(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	require.NoError(t, f.mgr.EnrollAdmin(ctx))

	require.NoError(t, f.mgr.RegisterVoter(ctx, "alice", "alicepw"))

	id, err := f.wallet.Get("alice")
	require.NoError(t, err)
	require.NotNil(t, id)
	require.True(t, f.ledger.HasVoter("alice"))

	labels, err := f.mgr.ListWallet()
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "alice"}, labels)
}

func TestRegisterVoterTwice(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	require.NoError(t, f.mgr.EnrollAdmin(ctx))
	require.NoError(t, f.mgr.RegisterVoter(ctx, "v1", "pw"))

	err := f.mgr.RegisterVoter(ctx, "v1", "pw")
	var dup *DuplicateVoterError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "v1", dup.ID)

	// first registration is intact
	labels, err := f.mgr.ListWallet()
	require.NoError(t, err)
	require.Contains(t, labels, "v1")
}

func TestRegisterVoterHashesSecretForLedger(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	require.NoError(t, f.mgr.EnrollAdmin(ctx))
	require.NoError(t, f.mgr.RegisterVoter(ctx, "alice", "alicepw"))

	f.ledger.mu.Lock()
	v := f.ledger.voters["alice"]
	f.ledger.mu.Unlock()
	require.NotNil(t, v)
	require.NotEqual(t, "alicepw", v.SecretHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(v.SecretHash), []byte("alicepw")))
}

// failingConnector refuses every connection, simulating an unreachable
// network after CA registration already succeeded.
type failingConnector struct{}

func (failingConnector) Connect(ctx context.Context, wallet Wallet, label string) (LedgerSession, error) {
	return nil, &ConnectionError{Label: label, Err: errors.New("network unreachable")}
}

func TestRegisterVoterLedgerFailureKeepsWalletEntry(t *testing.T) {
	wallet := NewMemWallet()
	ca := NewMemCA("admin", "adminpw")
	gateway := NewTxGateway(wallet, failingConnector{})
	mgr := NewIdentityManager(wallet, ca, gateway, "admin", "adminpw", "Org1MSP")
	ctx := context.Background()

	enr, err := ca.Enroll(ctx, "admin", "adminpw")
	require.NoError(t, err)
	require.NoError(t, wallet.Put("admin", &Identity{Certificate: enr.Certificate, PrivateKey: enr.PrivateKey, MSPID: "Org1MSP", Type: "X.509"}))

	err = mgr.RegisterVoter(ctx, "alice", "alicepw")
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)

	// The credential stays in the wallet; only the ledger write failed.
	id, err := wallet.Get("alice")
	require.NoError(t, err)
	require.NotNil(t, id)

	// Retrying hits the CA's already-exists answer.
	err = mgr.RegisterVoter(ctx, "alice", "alicepw")
	var dup *DuplicateVoterError
	require.ErrorAs(t, err, &dup)
}

func TestDeleteVoter(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	require.NoError(t, f.mgr.EnrollAdmin(ctx))
	require.NoError(t, f.mgr.RegisterVoter(ctx, "alice", "alicepw"))

	require.NoError(t, f.mgr.DeleteVoter(ctx, "alice"))
	require.False(t, f.ledger.HasVoter("alice"))

	id, err := f.wallet.Get("alice")
	require.NoError(t, err)
	require.Nil(t, id)
}

func TestDeleteVoterLedgerFailure(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()
	require.NoError(t, f.mgr.EnrollAdmin(ctx))

	// ghost was never registered on the ledger
	err := f.mgr.DeleteVoter(ctx, "ghost")
	var delErr *LedgerDeleteError
	require.ErrorAs(t, err, &delErr)
	require.Equal(t, "ghost", delErr.ID)
}
