package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/xiangqi"
)

const (
	// SessionBucket holds one SessionInfo per listening session
	SessionBucket = "sessions"

	// EntryBucket holds one nested bucket of entries per session
	EntryBucket = "entries"
)

// ErrSessionNotFound is returned for an unknown session id
var ErrSessionNotFound = errors.New("storage: session not found")

// Entry kinds
const (
	KindOrientation = "orientation"
	KindPosition    = "position"
	KindMove        = "move"
	KindAnalysis    = "analysis"
)

// SessionInfo describes one listening session
type SessionInfo struct {
	ID      string       `json:"id"`
	Started int64        `json:"started"` // Unix milliseconds
	Camp    xiangqi.Camp `json:"camp"`
	Moves   int          `json:"moves"`
}

// Entry is one journaled event
type Entry struct {
	Seq      uint64             `json:"seq"`
	Kind     string             `json:"kind"`
	Time     int64              `json:"time"` // Unix milliseconds
	Camp     xiangqi.Camp       `json:"camp,omitempty"`
	FEN      string             `json:"fen,omitempty"`
	Move     *tracker.MoveEvent `json:"move,omitempty"`
	Analysis *engine.Result     `json:"analysis,omitempty"`
}

// Journal records what the tracker publishes, grouped by session. It
// implements tracker.Publisher.
type Journal struct {
	db     *bbolt.DB
	dbPath string
	logger *zap.Logger

	mu       sync.Mutex
	session  string
	camp     xiangqi.Camp
	isClosed bool
}

// OpenJournal opens or creates the journal database
func OpenJournal(dbPath string, logger *zap.Logger) (*Journal, error) {
	// Open database with timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(SessionBucket)); err != nil {
			return fmt.Errorf("create session bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(EntryBucket)); err != nil {
			return fmt.Errorf("create entry bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// BeginSession starts a new session; later events are recorded under it
func (j *Journal) BeginSession() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.beginLocked(); err != nil {
		j.logger.Warn("Failed to begin journal session", zap.Error(err))
	}
}

// Current returns the active session id, "" before the first session
func (j *Journal) Current() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.session
}

func (j *Journal) beginLocked() (string, error) {
	if j.isClosed {
		return "", fmt.Errorf("journal is closed")
	}

	info := SessionInfo{
		ID:      uuid.NewString(),
		Started: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	err = j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(SessionBucket)).Put([]byte(info.ID), data); err != nil {
			return err
		}
		_, err := tx.Bucket([]byte(EntryBucket)).CreateBucket([]byte(info.ID))
		return err
	})
	if err != nil {
		return "", err
	}

	j.session = info.ID
	j.camp = xiangqi.CampNone
	return info.ID, nil
}

// Orientation implements tracker.Publisher
func (j *Journal) Orientation(camp xiangqi.Camp) {
	j.record(Entry{Kind: KindOrientation, Camp: camp})
}

// Position implements tracker.Publisher
func (j *Journal) Position(b xiangqi.Board) {
	j.record(Entry{Kind: KindPosition, FEN: b.FEN(xiangqi.CampNone)})
}

// Move implements tracker.Publisher
func (j *Journal) Move(ev tracker.MoveEvent) {
	j.record(Entry{Kind: KindMove, Camp: ev.Camp, Move: &ev})
}

// Analysis implements tracker.Publisher
func (j *Journal) Analysis(res *engine.Result) {
	j.record(Entry{Kind: KindAnalysis, Analysis: res})
}

func (j *Journal) record(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isClosed {
		return
	}
	if j.session == "" {
		if _, err := j.beginLocked(); err != nil {
			j.logger.Warn("Failed to begin journal session", zap.Error(err))
			return
		}
	}
	if e.Kind == KindOrientation {
		j.camp = e.Camp
	}

	if err := j.appendLocked(e); err != nil {
		j.logger.Warn("Failed to journal event", zap.String("kind", e.Kind), zap.Error(err))
	}
}

func (j *Journal) appendLocked(e Entry) error {
	e.Time = time.Now().UnixMilli()

	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(EntryBucket)).Bucket([]byte(j.session))
		if b == nil {
			return ErrSessionNotFound
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq

		// Serialize entry
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		keyBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, seq)
		if err := b.Put(keyBytes, data); err != nil {
			return err
		}

		// Keep the session summary current
		sessions := tx.Bucket([]byte(SessionBucket))
		var info SessionInfo
		if err := json.Unmarshal(sessions.Get([]byte(j.session)), &info); err != nil {
			return fmt.Errorf("corrupted session %s: %w", j.session, err)
		}
		info.Camp = j.camp
		if e.Kind == KindMove {
			info.Moves++
		}
		summary, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return sessions.Put([]byte(j.session), summary)
	})
}

// Sessions lists all sessions, oldest first
func (j *Journal) Sessions() ([]SessionInfo, error) {
	var out []SessionInfo
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SessionBucket)).ForEach(func(k, v []byte) error {
			var info SessionInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return nil // Skip corrupted sessions
			}
			out = append(out, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Started < out[b].Started })
	return out, nil
}

// Entries returns the events of a session in order
func (j *Journal) Entries(id string) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(EntryBucket)).Bucket([]byte(id))
		if b == nil {
			return ErrSessionNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil // Skip corrupted entries
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// Close closes the database
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isClosed {
		return nil
	}
	j.isClosed = true
	return j.db.Close()
}
