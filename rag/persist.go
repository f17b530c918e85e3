package rag

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT    NOT NULL,
	document_id TEXT    NOT NULL,
	source      TEXT    NOT NULL,
	chunk_seq   INTEGER NOT NULL,
	content     TEXT    NOT NULL,
	vector      BLOB    NOT NULL,
	added_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT    NOT NULL,
	content_hash TEXT    NOT NULL,
	added_at     INTEGER NOT NULL
);
`

// Open loads (or creates) a durable index at path. All existing entries
// are read into memory in insertion order; from then on every insert is
// written through to the database before becoming searchable.
func Open(path string, dim int) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrStorageUnavailable, err)
	}

	x := NewIndex(dim)
	x.db = db
	if err := x.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return x, nil
}

// Close releases the backing database. Memory-only indexes are a no-op.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.db == nil {
		return nil
	}
	err := x.db.Close()
	x.db = nil
	return err
}

func (x *Index) loadAll() error {
	rows, err := x.db.Query(`SELECT id, document_id, source, chunk_seq, content, vector, added_at FROM entries ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("%w: load entries: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e IndexEntry
		var blob []byte
		var addedAt int64
		if err := rows.Scan(&e.Chunk.ID, &e.Chunk.DocumentID, &e.Chunk.Source, &e.Chunk.Seq, &e.Chunk.Content, &blob, &addedAt); err != nil {
			return fmt.Errorf("%w: scan entry: %v", ErrStorageUnavailable, err)
		}
		e.Vector = decodeVector(blob)
		if len(e.Vector) != x.dim {
			return fmt.Errorf("%w: stored vector has %d dims, index expects %d", ErrDimensionMismatch, len(e.Vector), x.dim)
		}
		e.AddedAt = time.UnixMicro(addedAt).UTC()
		x.entries = append(x.entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: load entries: %v", ErrStorageUnavailable, err)
	}

	docs, err := x.db.Query(`SELECT id, content_hash FROM documents`)
	if err != nil {
		return fmt.Errorf("%w: load documents: %v", ErrStorageUnavailable, err)
	}
	defer docs.Close()
	for docs.Next() {
		var id, hash string
		if err := docs.Scan(&id, &hash); err != nil {
			return fmt.Errorf("%w: scan document: %v", ErrStorageUnavailable, err)
		}
		x.docs[hash] = id
	}
	return docs.Err()
}

// writeEntries persists entries in one transaction. Caller holds the
// write lock.
func (x *Index) writeEntries(entries []IndexEntry) error {
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	if err := insertEntriesTx(tx, entries); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// writeDocument persists a whole document (entries + document record)
// atomically. Caller holds the write lock.
func (x *Index) writeDocument(documentID, contentHash string, entries []IndexEntry) error {
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	if err := insertEntriesTx(tx, entries); err != nil {
		tx.Rollback()
		return err
	}
	if len(entries) > 0 {
		added := entries[0].AddedAt.UnixMicro()
		if _, err := tx.Exec(`INSERT INTO documents (id, content_hash, added_at) VALUES (?, ?, ?)`,
			documentID, contentHash, added); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: insert document: %v", ErrStorageUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func insertEntriesTx(tx *sql.Tx, entries []IndexEntry) error {
	stmt, err := tx.Prepare(`INSERT INTO entries (id, document_id, source, chunk_seq, content, vector, added_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrStorageUnavailable, err)
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Chunk.ID, e.Chunk.DocumentID, e.Chunk.Source, e.Chunk.Seq,
			e.Chunk.Content, encodeVector(e.Vector), e.AddedAt.UnixMicro()); err != nil {
			return fmt.Errorf("%w: insert entry %s: %v", ErrStorageUnavailable, e.Chunk.ID, err)
		}
	}
	return nil
}

// Vectors are stored as little-endian float32 blobs.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec
}
