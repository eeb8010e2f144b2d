package main

import (
	"context"
	"errors"
	"log"
)

const (
	voterRole        = "client"
	voterAffiliation = "org1.department1"
)

// IdentityManager orchestrates CA enrollment/registration and wallet writes
// for the admin and voter identities, and records voter existence on the
// ledger.
type IdentityManager struct {
	wallet  Wallet
	ca      CAClient
	gateway *TxGateway

	adminID     string
	adminSecret string
	mspID       string
}

func NewIdentityManager(wallet Wallet, ca CAClient, gateway *TxGateway, adminID, adminSecret, mspID string) *IdentityManager {
	return &IdentityManager{
		wallet:      wallet,
		ca:          ca,
		gateway:     gateway,
		adminID:     adminID,
		adminSecret: adminSecret,
		mspID:       mspID,
	}
}

// EnrollAdmin enrolls the bootstrap admin and writes it into the wallet,
// overwriting any previous enrollment. Repeat calls are not an error.
func (m *IdentityManager) EnrollAdmin(ctx context.Context) error {
	enr, err := m.ca.Enroll(ctx, m.adminID, m.adminSecret)
	if err != nil {
		return &EnrollmentError{ID: m.adminID, Err: err}
	}
	return m.wallet.Put(m.adminID, &Identity{
		Certificate: enr.Certificate,
		PrivateKey:  enr.PrivateKey,
		MSPID:       m.mspID,
		Type:        "X.509",
	})
}

// RegisterVoter registers voterID with the CA acting as the admin, enrolls
// the resulting credential into the wallet, then records the voter on the
// ledger under the voter's own identity.
//
// If the ledger write fails the wallet entry stays: retrying is safe for
// that case only, because a retry's CA registration hits the CA's
// already-exists error and any earlier failure never reached the wallet.
func (m *IdentityManager) RegisterVoter(ctx context.Context, voterID, voterSecret string) error {
	admin, err := m.wallet.Get(m.adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrMissingAdminIdentity
	}

	err = m.ca.Register(ctx, RegistrationRequest{
		EnrollmentID:     voterID,
		EnrollmentSecret: voterSecret,
		Role:             voterRole,
		Affiliation:      voterAffiliation,
	}, admin)
	if err != nil {
		var caErr *CAError
		if errors.As(err, &caErr) && caErr.Code == caCodeAlreadyExists {
			return &DuplicateVoterError{ID: voterID}
		}
		return &RegistrationError{ID: voterID, Err: err}
	}

	enr, err := m.ca.Enroll(ctx, voterID, voterSecret)
	if err != nil {
		return &EnrollmentError{ID: voterID, Err: err}
	}
	if err := m.wallet.Put(voterID, &Identity{
		Certificate: enr.Certificate,
		PrivateKey:  enr.PrivateKey,
		MSPID:       m.mspID,
		Type:        "X.509",
	}); err != nil {
		return err
	}

	hashed, err := hashSecret(voterSecret)
	if err != nil {
		return err
	}
	_, err = m.gateway.Submit(ctx, voterID, opCreateVoter, voterID, "Anonymous", "0", "Default", hashed)
	return err
}

// DeleteVoter removes the voter from the wallet (best effort) and then
// from the ledger under the admin identity. Only the ledger deletion is
// fatal.
func (m *IdentityManager) DeleteVoter(ctx context.Context, voterID string) error {
	if err := m.wallet.Remove(voterID); err != nil {
		log.Printf("could not remove voter %q from wallet: %v", voterID, err)
	}
	if _, err := m.gateway.Submit(ctx, m.adminID, opDeleteVoter, voterID); err != nil {
		return &LedgerDeleteError{ID: voterID, Err: err}
	}
	return nil
}

// ListWallet returns every enrolled label, admin included.
func (m *IdentityManager) ListWallet() ([]string, error) {
	return m.wallet.List()
}
