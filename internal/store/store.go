// Package store is the outcome store: an append-only record of
// processed turns plus the aggregates the analytics and learning layers
// read. All persisted state lives here; other packages hold no state
// across calls except the learning corpus, which checkpoints into this
// store on every mutation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Bounds on persisted collections. Oldest records are evicted first.
const (
	maxTurnsPerUser       = 100
	maxSentimentPerUser   = 50
	maxSentimentRecords   = 1000
	maxSuccessfulOutcomes = 500
	maxFailedOutcomes     = 200
)

// TurnRecord is one fully processed message. Immutable once written.
type TurnRecord struct {
	ID                 string
	Timestamp          time.Time
	UserID             string
	RawText            string
	Intent             string
	IntentConfidence   float64
	SentimentLabel     string
	Polarity           float64
	Emotions           []string
	StrategyUsed       string
	StrategyConfidence float64
	Success            bool
}

// UserProfile is the per-user aggregate view. The decision engine and
// analytics read it; only AppendTurn mutates the underlying rows.
type UserProfile struct {
	UserID           string
	FirstSeen        time.Time
	LastSeen         time.Time
	MessageCount     int
	IntentFrequency  map[string]int
	SentimentHistory []SentimentPoint
	RecentTurns      []TurnRecord
}

// SentimentPoint is one entry in a user's bounded sentiment history.
type SentimentPoint struct {
	Timestamp time.Time
	Label     string
	Polarity  float64
}

// StrategyOutcome records whether one strategy attempt succeeded and
// the user sentiment it was attempted under.
type StrategyOutcome struct {
	Timestamp  time.Time
	Strategy   string
	Success    bool
	Confidence float64
	Sentiment  string
}

// IntentCounter is the running per-intent tally.
type IntentCounter struct {
	Total         int
	Successful    int
	ConfidenceSum float64
}

// AvgConfidence returns the mean classifier confidence for the intent,
// or 0 when no turns were recorded.
func (c IntentCounter) AvgConfidence() float64 {
	if c.Total == 0 {
		return 0
	}
	return c.ConfidenceSum / float64(c.Total)
}

// Counters are the cheap running totals kept for O(1) health checks.
type Counters struct {
	TotalTurns      int
	TotalUsers      int
	FailedOutcomes  int
	SentimentCount  int
	OutcomeAttempts int
}

// Store wraps the SQLite database. All public methods are safe for
// concurrent use; SQLite serializes writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a store over an existing database connection and applies
// the schema.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate outcome schema: %w", err)
	}
	return s, nil
}

// Open opens (or creates) the store at the given database path using
// the registered "sqlite3" driver.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open outcome database: %w", err)
	}
	s, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id                  TEXT PRIMARY KEY,
		timestamp           TEXT NOT NULL,
		user_id             TEXT NOT NULL,
		raw_text            TEXT NOT NULL,
		intent              TEXT NOT NULL,
		intent_confidence   REAL NOT NULL,
		sentiment_label     TEXT NOT NULL,
		polarity            REAL NOT NULL,
		emotions            TEXT,
		strategy            TEXT NOT NULL,
		strategy_confidence REAL NOT NULL,
		success             INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_user ON turns(user_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON turns(timestamp);

	CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		first_seen    TEXT NOT NULL,
		last_seen     TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS user_intents (
		user_id TEXT NOT NULL,
		intent  TEXT NOT NULL,
		count   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, intent)
	);

	CREATE TABLE IF NOT EXISTS user_sentiments (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id   TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		label     TEXT NOT NULL,
		polarity  REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_user_sentiments ON user_sentiments(user_id, id);

	CREATE TABLE IF NOT EXISTS intent_counters (
		intent         TEXT PRIMARY KEY,
		total          INTEGER NOT NULL DEFAULT 0,
		successful     INTEGER NOT NULL DEFAULT 0,
		confidence_sum REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS strategy_outcomes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp  TEXT NOT NULL,
		strategy   TEXT NOT NULL,
		success    INTEGER NOT NULL,
		confidence REAL NOT NULL,
		sentiment  TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_strategy ON strategy_outcomes(strategy, id);

	CREATE TABLE IF NOT EXISTS sentiment_records (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp       TEXT NOT NULL,
		user_id         TEXT NOT NULL,
		label           TEXT NOT NULL,
		polarity        REAL NOT NULL,
		emotions        TEXT,
		primary_emotion TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sentiment_timestamp ON sentiment_records(timestamp);

	CREATE TABLE IF NOT EXISTS learning_corpus (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendTurn writes one processed turn and updates every aggregate it
// touches (user profile rows, intent counters, strategy outcomes,
// sentiment records) in a single transaction. If rec.ID is empty a
// UUIDv7 is generated; a zero timestamp becomes now.
func (s *Store) AppendTurn(ctx context.Context, rec TurnRecord) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate turn ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	ts := rec.Timestamp.UTC().Format(time.RFC3339)

	emotions, err := json.Marshal(rec.Emotions)
	if err != nil {
		return fmt.Errorf("marshal emotions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append turn: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns
			(id, timestamp, user_id, raw_text, intent, intent_confidence,
			 sentiment_label, polarity, emotions, strategy, strategy_confidence, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, ts, rec.UserID, rec.RawText, rec.Intent, rec.IntentConfidence,
		rec.SentimentLabel, rec.Polarity, string(emotions),
		rec.StrategyUsed, rec.StrategyConfidence, boolToInt(rec.Success),
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (user_id, first_seen, last_seen, message_count)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT(user_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			message_count = message_count + 1`,
		rec.UserID, ts, ts,
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_intents (user_id, intent, count) VALUES (?, ?, 1)
		 ON CONFLICT(user_id, intent) DO UPDATE SET count = count + 1`,
		rec.UserID, rec.Intent,
	); err != nil {
		return fmt.Errorf("upsert user intent: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_sentiments (user_id, timestamp, label, polarity) VALUES (?, ?, ?, ?)`,
		rec.UserID, ts, rec.SentimentLabel, rec.Polarity,
	); err != nil {
		return fmt.Errorf("insert user sentiment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO intent_counters (intent, total, successful, confidence_sum)
		 VALUES (?, 1, ?, ?)
		 ON CONFLICT(intent) DO UPDATE SET
			total = total + 1,
			successful = successful + excluded.successful,
			confidence_sum = confidence_sum + excluded.confidence_sum`,
		rec.Intent, boolToInt(rec.Success), rec.IntentConfidence,
	); err != nil {
		return fmt.Errorf("upsert intent counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO strategy_outcomes (timestamp, strategy, success, confidence, sentiment)
		 VALUES (?, ?, ?, ?, ?)`,
		ts, rec.StrategyUsed, boolToInt(rec.Success), rec.StrategyConfidence, rec.SentimentLabel,
	); err != nil {
		return fmt.Errorf("insert strategy outcome: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sentiment_records (timestamp, user_id, label, polarity, emotions, primary_emotion)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ts, rec.UserID, rec.SentimentLabel, rec.Polarity, string(emotions), firstOrEmpty(rec.Emotions),
	); err != nil {
		return fmt.Errorf("insert sentiment record: %w", err)
	}

	if err := s.pruneBounded(ctx, tx, rec.UserID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append turn: %w", err)
	}
	return nil
}

// pruneBounded enforces the eviction bounds after an append. Eviction
// is FIFO: the oldest rows go first.
func (s *Store) pruneBounded(ctx context.Context, tx *sql.Tx, userID string) error {
	prunes := []struct {
		name  string
		query string
		args  []any
	}{
		{"user turns", `DELETE FROM turns WHERE user_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?)`,
			[]any{userID, userID, maxTurnsPerUser}},
		{"user sentiments", `DELETE FROM user_sentiments WHERE user_id = ? AND id NOT IN (
			SELECT id FROM user_sentiments WHERE user_id = ? ORDER BY id DESC LIMIT ?)`,
			[]any{userID, userID, maxSentimentPerUser}},
		{"sentiment records", `DELETE FROM sentiment_records WHERE id NOT IN (
			SELECT id FROM sentiment_records ORDER BY id DESC LIMIT ?)`,
			[]any{maxSentimentRecords}},
		{"successful outcomes", `DELETE FROM strategy_outcomes WHERE success = 1 AND id NOT IN (
			SELECT id FROM strategy_outcomes WHERE success = 1 ORDER BY id DESC LIMIT ?)`,
			[]any{maxSuccessfulOutcomes}},
		{"failed outcomes", `DELETE FROM strategy_outcomes WHERE success = 0 AND id NOT IN (
			SELECT id FROM strategy_outcomes WHERE success = 0 ORDER BY id DESC LIMIT ?)`,
			[]any{maxFailedOutcomes}},
	}

	for _, p := range prunes {
		if _, err := tx.ExecContext(ctx, p.query, p.args...); err != nil {
			return fmt.Errorf("prune %s: %w", p.name, err)
		}
	}
	return nil
}

// UserProfile returns the aggregate view for one user, or nil when the
// user has never been seen.
func (s *Store) UserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	p := &UserProfile{UserID: userID, IntentFrequency: make(map[string]int)}

	var firstSeen, lastSeen string
	err := s.db.QueryRowContext(ctx,
		`SELECT first_seen, last_seen, message_count FROM users WHERE user_id = ?`,
		userID).Scan(&firstSeen, &lastSeen, &p.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	p.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)

	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, count FROM user_intents WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user intents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var intent string
		var count int
		if err := rows.Scan(&intent, &count); err != nil {
			return nil, fmt.Errorf("scan user intent: %w", err)
		}
		p.IntentFrequency[intent] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, label, polarity FROM user_sentiments
		 WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user sentiments: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var ts, label string
		var polarity float64
		if err := srows.Scan(&ts, &label, &polarity); err != nil {
			return nil, fmt.Errorf("scan user sentiment: %w", err)
		}
		point := SentimentPoint{Label: label, Polarity: polarity}
		point.Timestamp, _ = time.Parse(time.RFC3339, ts)
		p.SentimentHistory = append(p.SentimentHistory, point)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}

	turns, err := s.RecentTurns(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	p.RecentTurns = turns

	return p, nil
}

// RecentTurns returns the user's most recent turns in chronological
// order, up to limit.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, user_id, raw_text, intent, intent_confidence,
			sentiment_label, polarity, emotions, strategy, strategy_confidence, success
		 FROM (
			SELECT * FROM turns WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC LIMIT ?
		 ) ORDER BY timestamp ASC, id ASC`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// TurnsSince returns all turns with a timestamp at or after cutoff,
// oldest first.
func (s *Store) TurnsSince(ctx context.Context, cutoff time.Time) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, user_id, raw_text, intent, intent_confidence,
			sentiment_label, polarity, emotions, strategy, strategy_confidence, success
		 FROM turns WHERE timestamp >= ? ORDER BY timestamp ASC, id ASC`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query turns since: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// SentimentRecord is one stored sentiment observation.
type SentimentRecord struct {
	Timestamp      time.Time
	UserID         string
	Label          string
	Polarity       float64
	Emotions       []string
	PrimaryEmotion string
}

// SentimentsSince returns sentiment records at or after cutoff.
func (s *Store) SentimentsSince(ctx context.Context, cutoff time.Time) ([]SentimentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, user_id, label, polarity, emotions, primary_emotion
		 FROM sentiment_records WHERE timestamp >= ? ORDER BY id ASC`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query sentiments since: %w", err)
	}
	defer rows.Close()

	var out []SentimentRecord
	for rows.Next() {
		var rec SentimentRecord
		var ts, emotions string
		var primary sql.NullString
		if err := rows.Scan(&ts, &rec.UserID, &rec.Label, &rec.Polarity, &emotions, &primary); err != nil {
			return nil, fmt.Errorf("scan sentiment record: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		if primary.Valid {
			rec.PrimaryEmotion = primary.String
		}
		if emotions != "" {
			_ = json.Unmarshal([]byte(emotions), &rec.Emotions)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IntentCounters returns the running per-intent tallies.
func (s *Store) IntentCounters(ctx context.Context) (map[string]IntentCounter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, total, successful, confidence_sum FROM intent_counters`)
	if err != nil {
		return nil, fmt.Errorf("query intent counters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]IntentCounter)
	for rows.Next() {
		var intent string
		var c IntentCounter
		if err := rows.Scan(&intent, &c.Total, &c.Successful, &c.ConfidenceSum); err != nil {
			return nil, fmt.Errorf("scan intent counter: %w", err)
		}
		out[intent] = c
	}
	return out, rows.Err()
}

// StrategyOutcomes returns recorded outcomes, oldest first. A limit of
// 0 returns everything.
func (s *Store) StrategyOutcomes(ctx context.Context, limit int) ([]StrategyOutcome, error) {
	query := `SELECT timestamp, strategy, success, confidence, sentiment FROM strategy_outcomes ORDER BY id ASC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		query = `SELECT timestamp, strategy, success, confidence, sentiment FROM (
			SELECT id, timestamp, strategy, success, confidence, sentiment FROM strategy_outcomes
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
		rows, err = s.db.QueryContext(ctx, query, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query strategy outcomes: %w", err)
	}
	defer rows.Close()

	var out []StrategyOutcome
	for rows.Next() {
		var o StrategyOutcome
		var ts string
		var success int
		if err := rows.Scan(&ts, &o.Strategy, &success, &o.Confidence, &o.Sentiment); err != nil {
			return nil, fmt.Errorf("scan strategy outcome: %w", err)
		}
		o.Timestamp, _ = time.Parse(time.RFC3339, ts)
		o.Success = success != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

// AggregateCounters returns the cheap running totals.
func (s *Store) AggregateCounters(ctx context.Context) (Counters, error) {
	var c Counters
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM turns`, &c.TotalTurns},
		{`SELECT COUNT(*) FROM users`, &c.TotalUsers},
		{`SELECT COUNT(*) FROM strategy_outcomes WHERE success = 0`, &c.FailedOutcomes},
		{`SELECT COUNT(*) FROM sentiment_records`, &c.SentimentCount},
		{`SELECT COUNT(*) FROM strategy_outcomes`, &c.OutcomeAttempts},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Counters{}, fmt.Errorf("aggregate counters: %w", err)
		}
	}
	return c, nil
}

// SaveCorpus checkpoints the serialized learning corpus. The previous
// checkpoint is replaced; there is exactly one.
func (s *Store) SaveCorpus(ctx context.Context, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learning_corpus (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save learning corpus: %w", err)
	}
	return nil
}

// LoadCorpus returns the last checkpointed learning corpus, or nil when
// none exists yet.
func (s *Store) LoadCorpus(ctx context.Context) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM learning_corpus WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load learning corpus: %w", err)
	}
	return []byte(payload), nil
}

// CleanupOldData deletes turns, sentiment records, and strategy
// outcomes older than the retention window, and removes users with no
// remaining turns. Returns the number of turns deleted.
func (s *Store) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep).UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup turns: %w", err)
	}
	deleted, _ := res.RowsAffected()

	for _, q := range []string{
		`DELETE FROM sentiment_records WHERE timestamp < ?`,
		`DELETE FROM strategy_outcomes WHERE timestamp < ?`,
		`DELETE FROM user_sentiments WHERE timestamp < ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
			return 0, fmt.Errorf("cleanup: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE user_id NOT IN (SELECT DISTINCT user_id FROM turns)`); err != nil {
		return 0, fmt.Errorf("cleanup users: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_intents WHERE user_id NOT IN (SELECT DISTINCT user_id FROM turns)`); err != nil {
		return 0, fmt.Errorf("cleanup user intents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}

	s.logger.Info("old data cleaned up", "days_kept", daysToKeep, "turns_deleted", deleted)
	return deleted, nil
}

func scanTurns(rows *sql.Rows) ([]TurnRecord, error) {
	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var ts, emotions string
		var success int
		if err := rows.Scan(&rec.ID, &ts, &rec.UserID, &rec.RawText, &rec.Intent,
			&rec.IntentConfidence, &rec.SentimentLabel, &rec.Polarity, &emotions,
			&rec.StrategyUsed, &rec.StrategyConfidence, &success); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		rec.Success = success != 0
		if emotions != "" {
			_ = json.Unmarshal([]byte(emotions), &rec.Emotions)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
