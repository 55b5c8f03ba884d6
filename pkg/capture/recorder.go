// Package capture records up channel data into a SQLite database.
package capture

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	// registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"
)

const schema = `CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	channel INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_channel ON chunks (channel, id);`

// AllChannels selects records of every channel.
const AllChannels = -1

// Record is one captured chunk.
type Record struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"ts"`
	Channel int       `json:"channel"`
	Data    []byte    `json:"data"`
}

// Recorder implements probe.UpHandler, storing every chunk.
type Recorder struct {
	db     *sql.DB
	insert *sql.Stmt
	now    func() time.Time

	lock   sync.Mutex
	errors int
}

// Open opens or creates the database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	insert, err := db.Prepare("INSERT INTO chunks (ts, channel, data) VALUES (?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, err
	}
	glog.Infof("capturing into %s", path)
	return &Recorder{db: db, insert: insert, now: time.Now}, nil
}

// Close implements io.Closer.
func (r *Recorder) Close() error {
	r.insert.Close()
	return r.db.Close()
}

// Errors returns the number of chunks that failed to be stored.
func (r *Recorder) Errors() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errors
}

// HandleUp implements probe.UpHandler.
func (r *Recorder) HandleUp(ctx context.Context, channel int, data []byte) {
	if _, err := r.insert.ExecContext(ctx, r.now().UnixNano(), channel, data); err != nil {
		glog.Errorf("capture up/%d: %v", channel, err)
		r.lock.Lock()
		r.errors++
		r.lock.Unlock()
	}
}

// Records returns captured chunks of channel (AllChannels for every
// channel) in capture order.
func (r *Recorder) Records(channel int) ([]Record, error) {
	query := "SELECT id, ts, channel, data FROM chunks"
	var args []interface{}
	if channel != AllChannels {
		query += " WHERE channel = ?"
		args = append(args, channel)
	}
	rows, err := r.db.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var ts int64
		if err = rows.Scan(&rec.ID, &ts, &rec.Channel, &rec.Data); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(0, ts).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExportJSON writes the records of channel as a JSON array.
func (r *Recorder) ExportJSON(w io.Writer, channel int) error {
	records, err := r.Records(channel)
	if err != nil {
		return err
	}
	if records == nil {
		records = []Record{}
	}
	data, err := sonnet.Marshal(records)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
