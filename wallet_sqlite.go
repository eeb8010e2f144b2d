package main

import (
	"database/sql"
)

// SQLite wallet
type SQLiteWallet struct {
	db   *sql.DB
	path string
}

func NewSQLiteWallet(path string) (*SQLiteWallet, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	w := &SQLiteWallet{db: d, path: path}
	if err := w.Init(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWallet) Init() error {
	_, err := w.db.Exec(`CREATE TABLE IF NOT EXISTS identities (
		label TEXT PRIMARY KEY,
		certificate BLOB,
		private_key BLOB,
		msp_id TEXT,
		type TEXT,
		updated_at TEXT
	);`)
	return err
}

func (w *SQLiteWallet) Put(label string, id *Identity) error {
	_, err := w.db.Exec(`INSERT INTO identities(label,certificate,private_key,msp_id,type,updated_at)
		VALUES(?,?,?,?,?,datetime('now'))
		ON CONFLICT(label) DO UPDATE SET
			certificate=excluded.certificate,
			private_key=excluded.private_key,
			msp_id=excluded.msp_id,
			type=excluded.type,
			updated_at=excluded.updated_at`,
		label, id.Certificate, id.PrivateKey, id.MSPID, id.Type)
	return err
}

func (w *SQLiteWallet) Get(label string) (*Identity, error) {
	row := w.db.QueryRow(`SELECT label,certificate,private_key,msp_id,type FROM identities WHERE label = ?`, label)
	var id Identity
	if err := row.Scan(&id.Label, &id.Certificate, &id.PrivateKey, &id.MSPID, &id.Type); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

func (w *SQLiteWallet) Remove(label string) error {
	_, err := w.db.Exec(`DELETE FROM identities WHERE label = ?`, label)
	return err
}

func (w *SQLiteWallet) List() ([]string, error) {
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
func (w *SQLiteWallet) close() error { return w.db.Close() }
func (w *SQLiteWallet) ping() bool   { return w.db.Ping() == nil }
