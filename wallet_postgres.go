package main

import (
	"database/sql"

	_ "github.com/lib/pq"
)

type PostgresWallet struct {
	db  *sql.DB
	dsn string
}

func NewPostgresWallet(dsn string) (*PostgresWallet, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	w := &PostgresWallet{db: d, dsn: dsn}
	if err := w.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgresWallet) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return w.db.Ping()
}

func (w *PostgresWallet) Put(label string, id *Identity) error {
	_, err := w.db.Exec(`INSERT INTO identities(label,certificate,private_key,msp_id,type,updated_at)
		VALUES($1,$2,$3,$4,$5,now())
		ON CONFLICT(label) DO UPDATE SET
			certificate=excluded.certificate,
			private_key=excluded.private_key,
			msp_id=excluded.msp_id,
			type=excluded.type,
			updated_at=now()`,
		label, id.Certificate, id.PrivateKey, id.MSPID, id.Type)
	return err
}

func (w *PostgresWallet) Get(label string) (*Identity, error) {
	row := w.db.QueryRow(`SELECT label,certificate,private_key,msp_id,type FROM identities WHERE label = $1`, label)
	var id Identity
	if err := row.Scan(&id.Label, &id.Certificate, &id.PrivateKey, &id.MSPID, &id.Type); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

func (w *PostgresWallet) Remove(label string) error {
	_, err := w.db.Exec(`DELETE FROM identities WHERE label = $1`, label)
	return err
}

func (w *PostgresWallet) List() ([]string, error) {
	rows, err := w.db.Query(`SELECT label FROM identities ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// lifecycle helpers
func (w *PostgresWallet) close() error { return w.db.Close() }
func (w *PostgresWallet) ping() bool   { return w.db.Ping() == nil }
