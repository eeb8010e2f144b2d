package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"
)

// MemLedger is an in-process stand-in for the vote chaincode, used when
// LEDGER_ADAPTER=memory. It reproduces the contract's operation surface and
// error text so the rest of the service behaves exactly as it does against
// a real network. Not recommended for production.
type MemLedger struct {
	mu     sync.Mutex
	polls  map[string]*memPoll
	voters map[string]*memVoter
}

type memPoll struct {
	Title   string
	Options []string
	Status  string
	Creator string
	Counts  map[string]int
	Voted   map[string]bool
}

type memVoter struct {
	Name       string
	Score      string
	Tag        string
	SecretHash string
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		polls:  map[string]*memPoll{},
		voters: map[string]*memVoter{},
	}
}

func (l *MemLedger) invoke(op string, args []string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch op {
	case opCreatePoll:
		if len(args) != 4 {
			return nil, fmt.Errorf("%s expects 4 args, got %d", op, len(args))
		}
		pollID, title, optionsJSON, creator := args[0], args[1], args[2], args[3]
		if _, ok := l.polls[pollID]; ok {
			return nil, fmt.Errorf("Poll %s already exists", pollID)
		}
		var options []string
		if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
			return nil, fmt.Errorf("invalid options for poll %s: %v", pollID, err)
		}
		if len(options) == 0 {
			return nil, fmt.Errorf("poll %s needs at least one option", pollID)
		}
		p := &memPoll{
			Title:   title,
			Options: options,
			Status:  "open",
			Creator: creator,
			Counts:  map[string]int{},
			Voted:   map[string]bool{},
		}
		for _, o := range options {
			p.Counts[o] = 0
		}
		l.polls[pollID] = p
		return nil, nil

	case opClosePoll:
		p, ok := l.polls[args[0]]
		if !ok {
			return nil, fmt.Errorf("Poll not found: %s", args[0])
		}
		if p.Status == "closed" {
			return nil, fmt.Errorf("Poll is closed: %s", args[0])
		}
		p.Status = "closed"
		return nil, nil

	case opGetResults:
		p, ok := l.polls[args[0]]
		if !ok {
			return nil, fmt.Errorf("Poll not found: %s", args[0])
		}
		return json.Marshal(p.Counts)

	case opGetAllPolls:
		ids := make([]string, 0, len(l.polls))
		for id := range l.polls {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		polls := make([]Poll, 0, len(ids))
		for _, id := range ids {
			p := l.polls[id]
			polls = append(polls, Poll{ID: id, Title: p.Title, Options: p.Options, Status: p.Status, Creator: p.Creator})
		}
		return json.Marshal(polls)

	case opCastVote:
		pollID, voterID, choice := args[0], args[1], args[2]
		p, ok := l.polls[pollID]
		if !ok {
			return nil, fmt.Errorf("Poll not found: %s", pollID)
		}
		if p.Status == "closed" {
			return nil, fmt.Errorf("Poll is closed: %s", pollID)
		}
		if p.Voted[voterID] {
			return nil, fmt.Errorf("Voter %s has already voted in poll %s", voterID, pollID)
		}
		if _, ok := p.Counts[choice]; !ok {
			return nil, fmt.Errorf("invalid option %s for poll %s", choice, pollID)
		}
		p.Counts[choice]++
		p.Voted[voterID] = true
		return nil, nil

	case opCreateVoter:
		if len(args) != 5 {
			return nil, fmt.Errorf("%s expects 5 args, got %d", op, len(args))
		}
		// Overwrite on repeat: re-running a registration whose ledger
		// write failed must succeed.
		l.voters[args[0]] = &memVoter{Name: args[1], Score: args[2], Tag: args[3], SecretHash: args[4]}
		return nil, nil

	case opDeleteVoter:
		if _, ok := l.voters[args[0]]; !ok {
			return nil, fmt.Errorf("Voter not found: %s", args[0])
		}
		delete(l.voters, args[0])
		return nil, nil
	}

	return nil, fmt.Errorf("unknown operation %s", op)
}

// HasVoter reports whether the voter record exists on the simulated ledger.
func (l *MemLedger) HasVoter(voterID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.voters[voterID]
	return ok
}

// MemConnector issues sessions against a MemLedger. It enforces the same
// precondition as a real factory: the identity must exist in the wallet.
type MemConnector struct {
	ledger *MemLedger
}

func NewMemConnector(ledger *MemLedger) *MemConnector {
	return &MemConnector{ledger: ledger}
}

func (c *MemConnector) Connect(ctx context.Context, wallet Wallet, label string) (LedgerSession, error) {
	id, err := wallet.Get(label)
	if err != nil {
		return nil, &ConnectionError{Label: label, Err: err}
	}
	if id == nil {
		return nil, &ConnectionError{Label: label, Err: errors.New("identity not found in wallet")}
	}
	return &memSession{ledger: c.ledger}, nil
}

type memSession struct {
	ledger *MemLedger
	mu     sync.Mutex
	closed bool
}

func (s *memSession) Submit(ctx context.Context, op string, args ...string) ([]byte, error) {
	return s.call(ctx, op, args)
}

func (s *memSession) Evaluate(ctx context.Context, op string, args ...string) ([]byte, error) {
	return s.call(ctx, op, args)
}

func (s *memSession) call(ctx context.Context, op string, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("session disconnected")
	}
	return s.ledger.invoke(op, args)
}

func (s *memSession) Disconnect() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// MemCA is the in-process certificate authority paired with MemLedger. It
// mints real self-signed X.509 material so wallet contents look the same
// as against a live CA.
type MemCA struct {
	mu         sync.Mutex
	registered map[string]string
}

// NewMemCA seeds the CA with the bootstrap admin registration.
func NewMemCA(adminID, adminSecret string) *MemCA {
	return &MemCA{registered: map[string]string{adminID: adminSecret}}
}

func (c *MemCA) Enroll(ctx context.Context, enrollmentID, secret string) (*Enrollment, error) {
	c.mu.Lock()
	want, ok := c.registered[enrollmentID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("identity %s is not registered", enrollmentID)
	}
	if want != secret {
		return nil, errors.New("authentication failure")
	}
	return selfSignedCredential(enrollmentID)
}

func (c *MemCA) Register(ctx context.Context, req RegistrationRequest, actor *Identity) error {
	if actor == nil {
		return errors.New("registration requires an acting identity")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.registered[req.EnrollmentID]; ok {
		return &CAError{Code: caCodeAlreadyExists, Message: fmt.Sprintf("Identity '%s' is already registered", req.EnrollmentID)}
	}
	c.registered[req.EnrollmentID] = req.EnrollmentSecret
	return nil
}

func selfSignedCredential(enrollmentID string) (*Enrollment, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: enrollmentID, OrganizationalUnit: []string{"client"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		Certificate: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		PrivateKey:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}
