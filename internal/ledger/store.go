package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"podnotes/internal/config"
)

// ErrCorrupt indicates an existing ledger database failed its integrity check.
// Startup must not continue past this; reprocessing the whole archive would
// violate the at-most-once guarantee.
var ErrCorrupt = errors.New("ledger database failed integrity check")

const lastCheckKey = "last_check_time"

// Store manages episode persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database. A missing database is
// created fresh; an existing database that fails the integrity check returns
// ErrCorrupt.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	existed := false
	if info, err := os.Stat(dbPath); err == nil && !info.IsDir() {
		existed = true
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			if existed {
				// A database that cannot take pragmas is unreadable, which is
				// the same failure mode as a bad integrity check.
				return nil, fmt.Errorf("%w: apply pragma %q: %v", ErrCorrupt, pragma, execErr)
			}
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}

	if existed {
		if err := store.verifyIntegrity(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) verifyIntegrity(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !strings.EqualFold(result, "ok") {
		return fmt.Errorf("%w: %s", ErrCorrupt, result)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the ledger database location.
func (s *Store) Path() string {
	return s.path
}

// NewEpisode claims an episode by inserting a discovered record. The unique
// identity index makes the claim race-safe: a second insert for the same
// identity fails.
func (s *Store) NewEpisode(ctx context.Context, identity, sourceRecordID, url, title string) (*Episode, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, errors.New("identity is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO episodes (
            identity, source_record_id, url, title, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		identity,
		nullableString(sourceRecordID),
		url,
		nullableString(title),
		StatusDiscovered,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// IsKnown reports whether an identity has ever been claimed, in any state.
func (s *Store) IsKnown(ctx context.Context, identity string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM episodes WHERE identity = ?`, identity).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check identity: %w", err)
	}
	return count > 0, nil
}

// GetByID fetches an episode by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// FindByIdentity returns the episode claimed under an identity, if any.
func (s *Store) FindByIdentity(ctx context.Context, identity string) (*Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE identity = ?`,
		identity,
	)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return episode, nil
}

// Update persists changes to an existing episode.
func (s *Store) Update(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("episode is nil")
	}
	episode.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE episodes
         SET source_record_id = ?, url = ?, title = ?, podcast_name = ?, status = ?, audio_url = ?,
             duration_seconds = ?, task_id = ?, transcript_json = ?, summary_json = ?,
             note_path = ?, mirror_path = ?,
             degraded = ?, error_message = ?, failed_at = ?, processed_at = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(episode.SourceRecordID),
		episode.URL,
		nullableString(episode.Title),
		nullableString(episode.PodcastName),
		episode.Status,
		nullableString(episode.AudioURL),
		episode.DurationSeconds,
		nullableString(episode.TaskID),
		nullableString(episode.TranscriptJSON),
		nullableString(episode.SummaryJSON),
		nullableString(episode.NotePath),
		nullableString(episode.MirrorPath),
		boolToInt(episode.Degraded),
		nullableString(episode.ErrorMessage),
		nullableTime(episode.FailedAt),
		nullableTime(episode.ProcessedAt),
		episode.UpdatedAt.Format(time.RFC3339Nano),
		episode.ID,
	)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// List returns episodes filtered by status set (or all episodes when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// RetryFailed moves failed episodes back to discovered for reprocessing. This
// is the only sanctioned way to rerun an episode; it is driven by an operator,
// never by the daemon.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE episodes
            SET status = ?, error_message = NULL, failed_at = NULL, processed_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusDiscovered,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed episodes: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusDiscovered, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE episodes
        SET status = ?, error_message = NULL, failed_at = NULL, processed_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected episodes: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of episodes grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates ledger state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusDiscovered:
			health.Discovered += count
		case StatusFailed:
			health.Failed += count
		case StatusDone:
			health.Done += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// Remove deletes an episode by identifier. Removing a record surrenders the
// at-most-once claim for its identity.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// LastCheckTime returns the recorded time of the last successful source poll,
// or the zero time when no poll has completed yet.
func (s *Store) LastCheckTime(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastCheckKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last check time: %w", err)
	}
	parsed, err := parseTimeString(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last check time: %w", err)
	}
	return parsed, nil
}

// SetLastCheckTime records the completion time of a successful source poll.
func (s *Store) SetLastCheckTime(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastCheckKey,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set last check time: %w", err)
	}
	return nil
}

const episodeColumns = "id, identity, source_record_id, url, title, podcast_name, status, audio_url, duration_seconds, task_id, transcript_json, summary_json, note_path, mirror_path, degraded, error_message, failed_at, processed_at, created_at, updated_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id             int64
		identity       string
		sourceRecordID sql.NullString
		url            string
		title          sql.NullString
		podcastName    sql.NullString
		statusStr      string
		audioURL       sql.NullString
		duration       sql.NullInt64
		taskID         sql.NullString
		transcriptJSON sql.NullString
		summaryJSON    sql.NullString
		notePath       sql.NullString
		mirrorPath     sql.NullString
		degraded       sql.NullInt64
		errorMessage   sql.NullString
		failedRaw      sql.NullString
		processedRaw   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&identity,
		&sourceRecordID,
		&url,
		&title,
		&podcastName,
		&statusStr,
		&audioURL,
		&duration,
		&taskID,
		&transcriptJSON,
		&summaryJSON,
		&notePath,
		&mirrorPath,
		&degraded,
		&errorMessage,
		&failedRaw,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:              id,
		Identity:        identity,
		SourceRecordID:  sourceRecordID.String,
		URL:             url,
		Title:           title.String,
		PodcastName:     podcastName.String,
		Status:          Status(statusStr),
		AudioURL:        audioURL.String,
		DurationSeconds: int(duration.Int64),
		TaskID:          taskID.String,
		TranscriptJSON:  transcriptJSON.String,
		SummaryJSON:     summaryJSON.String,
		NotePath:        notePath.String,
		MirrorPath:      mirrorPath.String,
		ErrorMessage:    errorMessage.String,
	}
	if degraded.Valid {
		episode.Degraded = degraded.Int64 != 0
	}

	if failedRaw.Valid {
		if failed, err := parseTimeString(failedRaw.String); err == nil {
			episode.FailedAt = &failed
		}
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			episode.ProcessedAt = &processed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
