package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/assetship/internal/model"
)

// DBFileName is the file name of the build history database.
const DBFileName = "assetship.db"

// BuildDB provides SQLite-based storage for build reports.
// One database holds the history of every project built on the machine;
// rows are keyed by project name.
type BuildDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures BuildDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a BuildDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error wrapping
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*BuildDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	bdb := &BuildDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := bdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return bdb, nil
}

// Path returns the database file path.
func (bdb *BuildDB) Path() string {
	return bdb.dbPath
}

// Close closes the database connection.
func (bdb *BuildDB) Close() error {
	return bdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (bdb *BuildDB) createTables() error {
	schema := `
	-- Build reports store complete build results as JSON
	CREATE TABLE IF NOT EXISTS build_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project ON build_reports(project);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON build_reports(timestamp);

	-- Artifact sizes allow size trends without decoding every report
	CREATE TABLE IF NOT EXISTS artifact_sizes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id INTEGER NOT NULL REFERENCES build_reports(id) ON DELETE CASCADE,
		artifact TEXT NOT NULL,
		encoding TEXT NOT NULL,
		original_size INTEGER NOT NULL,
		size INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sizes_build ON artifact_sizes(build_id);
	CREATE INDEX IF NOT EXISTS idx_sizes_artifact ON artifact_sizes(artifact);
	`

	_, err := bdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveBuildReport stores a build report and its per-artifact sizes.
// It returns the ID of the stored report.
func (bdb *BuildDB) SaveBuildReport(ctx context.Context, report *model.BuildReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, _ := json.Marshal(report.Summary()) //nolint:errcheck,errchkjson // plain struct of numbers; Marshal won't fail

	tx, err := bdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()

	failed := 0
	if report.Failed() {
		failed = 1
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO build_reports (project, timestamp, duration_ms, failed, report_json, summary)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		report.Project,
		report.StartedAt.UTC().Format(timestampLayout),
		report.Duration().Milliseconds(),
		failed,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save build report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range report.Artifacts {
		if a == nil {
			continue
		}
		for _, e := range a.Encoded {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifact_sizes (build_id, artifact, encoding, original_size, size)
			VALUES (?, ?, ?, ?, ?)
			`, id, a.Name, e.Encoding, a.OriginalSize, e.Size); err != nil {
				return 0, fmt.Errorf("failed to save artifact size: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit build report: %w", err)
	}
	return id, nil
}

// GetLatestBuildReport retrieves the most recent build report of a project.
// It returns nil, nil when the project has no history.
func (bdb *BuildDB) GetLatestBuildReport(ctx context.Context, project string) (*model.BuildReport, error) {
	query := `
	SELECT report_json FROM build_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := bdb.db.QueryRowContext(ctx, query, project).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build report: %w", err)
	}

	return decodeReport(reportJSON)
}

// ListProjects returns the names of all projects with stored builds.
func (bdb *BuildDB) ListProjects(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT project FROM build_reports
	ORDER BY project
	`

	rows, err := bdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// GetBuildHistory retrieves all build reports of a project, newest first.
// Malformed rows are skipped.
func (bdb *BuildDB) GetBuildHistory(ctx context.Context, project string) ([]*model.BuildReport, error) {
	query := `
	SELECT report_json FROM build_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := bdb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get build history: %w", err)
	}
	defer rows.Close()

	var reports []*model.BuildReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		report, err := decodeReport(reportJSON)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// BuildReportMetadata contains summary information about a stored build.
// It is used for history listings without loading the full report.
type BuildReportMetadata struct {
	// ID is the unique identifier of the build report in the database.
	ID int64

	// Project is the project name.
	Project string

	// Timestamp is when the build started.
	Timestamp time.Time

	// Duration is how long the build took.
	Duration time.Duration

	// Failed is true if the build or any artifact failed.
	Failed bool

	// Summary holds the aggregate numbers of the build.
	Summary model.BuildSummary
}

// GetBuildHistoryWithMetadata retrieves build metadata of a project, newest first.
func (bdb *BuildDB) GetBuildHistoryWithMetadata(ctx context.Context, project string) ([]BuildReportMetadata, error) {
	query := `
	SELECT id, project, timestamp, duration_ms, failed, summary
	FROM build_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := bdb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get build history: %w", err)
	}
	defer rows.Close()

	var results []BuildReportMetadata
	for rows.Next() {
		var meta BuildReportMetadata
		var timestamp string
		var durationMS int64
		var failed int
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Project, &timestamp, &durationMS, &failed, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Duration = time.Duration(durationMS) * time.Millisecond
		meta.Failed = failed != 0
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A malformed summary leaves zero values.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary) //nolint:errcheck
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetBuildReportByID retrieves a build report by its database ID.
// It returns nil, nil when no such report exists.
func (bdb *BuildDB) GetBuildReportByID(ctx context.Context, id int64) (*model.BuildReport, error) {
	query := `
	SELECT report_json FROM build_reports
	WHERE id = ?
	`

	var reportJSON string
	err := bdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build report: %w", err)
	}

	return decodeReport(reportJSON)
}

// SizePoint is one stored size of an artifact sibling.
type SizePoint struct {
	BuildID      int64
	Timestamp    time.Time
	Encoding     string
	OriginalSize int64
	Size         int64
}

// GetArtifactSizeHistory returns the stored sizes of one artifact of a project, oldest first.
func (bdb *BuildDB) GetArtifactSizeHistory(ctx context.Context, project, artifact string) ([]SizePoint, error) {
	query := `
	SELECT s.build_id, r.timestamp, s.encoding, s.original_size, s.size
	FROM artifact_sizes s
	JOIN build_reports r ON r.id = s.build_id
	WHERE r.project = ? AND s.artifact = ?
	ORDER BY r.timestamp ASC, r.id ASC, s.encoding ASC
	`

	rows, err := bdb.db.QueryContext(ctx, query, project, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to get size history: %w", err)
	}
	defer rows.Close()

	var points []SizePoint
	for rows.Next() {
		var p SizePoint
		var timestamp string
		if err := rows.Scan(&p.BuildID, &timestamp, &p.Encoding, &p.OriginalSize, &p.Size); err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		p.Timestamp = parseTimestamp(timestamp)
		points = append(points, p)
	}

	return points, rows.Err()
}

func decodeReport(reportJSON string) (*model.BuildReport, error) {
	var report model.BuildReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampLayout is the fixed-width UTC layout written by SaveBuildReport.
// Fixed width keeps ORDER BY timestamp chronological.
const timestampLayout = "2006-01-02 15:04:05.000000"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
