package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"

	"github.com/joescharf/itrack/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// rebind rewrites ? placeholders into $n for postgres.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Config selects and configures a store backend.
type Config struct {
	Driver string // sqlite (default) or postgres
	Path   string // sqlite database file
	DSN    string // postgres connection string
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("db.path is required for the sqlite driver")
		}
		return NewSQLiteStore(cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("db.dsn is required for the postgres driver")
		}
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown db driver %q (use sqlite or postgres)", cfg.Driver)
	}
}

// SQLStore implements Store over database/sql, using modernc.org/sqlite
// (pure Go, no CGO) or pgx.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
		{"PRAGMA foreign_keys=ON", "enable foreign keys"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	return &SQLStore{db: db, dialect: dialectSQLite}, nil
}

// NewPostgresStore connects to postgres through the pgx stdlib driver and
// verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLStore{db: db, dialect: dialectPostgres}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// nullString maps "" to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// Migrate runs all embedded SQL migration files for the active dialect in order.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + string(s.dialect)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		if err := s.queryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.exec(ctx, "INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)", name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// --- Projects ---

const projectColumns = `id, name, description, status, created_by, owner_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*models.Project, error) {
	p := &models.Project{}
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &status, &p.CreatedBy, &p.OwnerID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	return p, nil
}

func (s *SQLStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(p.Status), p.CreatedBy, p.OwnerID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *SQLStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLStore) UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	result, err := s.exec(ctx, `UPDATE projects SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) DeleteProject(ctx context.Context, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE issues SET project_id = NULL WHERE project_id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("detach project issues: %w", err)
	}
	detached, _ := result.RowsAffected()

	result, err = tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return 0, fmt.Errorf("project %w: %s", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return detached, nil
}

// --- Issues ---

const issueColumns = `id, project_id, title, description, priority, status, assigned_to, created_by, created_at`

func scanIssue(row scanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var projectID sql.NullString
	var priority, status string
	if err := row.Scan(&issue.ID, &projectID, &issue.Title, &issue.Description,
		&priority, &status, &issue.AssignedTo, &issue.CreatedBy, &issue.CreatedAt); err != nil {
		return nil, err
	}
	issue.ProjectID = projectID.String
	issue.Priority = models.IssuePriority(priority)
	issue.Status = models.IssueStatus(status)
	return issue, nil
}

func (s *SQLStore) scanIssues(rows *sql.Rows) ([]*models.Issue, error) {
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *SQLStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = newULID()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO issues (`+issueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		issue.ID, nullString(issue.ProjectID), issue.Title, issue.Description,
		string(issue.Priority), string(issue.Status), issue.AssignedTo, issue.CreatedBy, issue.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	insertKeyword := s.dialect.rebind(`INSERT INTO issue_keywords (issue_id, keyword) VALUES (?, ?)`)
	seen := make(map[string]bool, len(issue.SearchKeywords))
	for _, kw := range issue.SearchKeywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		if _, err := tx.ExecContext(ctx, insertKeyword, issue.ID, kw); err != nil {
			return fmt.Errorf("index issue keyword %q: %w", kw, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := scanIssue(s.queryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("issue %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}

	// Load keywords
	rows, err := s.query(ctx, `SELECT keyword FROM issue_keywords WHERE issue_id = ? ORDER BY keyword`, id)
	if err != nil {
		return nil, fmt.Errorf("get issue keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan issue keyword: %w", err)
		}
		issue.SearchKeywords = append(issue.SearchKeywords, kw)
	}
	return issue, rows.Err()
}

func (s *SQLStore) ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var conditions []string
	var args []any

	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.Oldest {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return s.scanIssues(rows)
}

func (s *SQLStore) UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus) error {
	result, err := s.exec(ctx, `UPDATE issues SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue %w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) DeleteIssue(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Delete keywords first (foreign key)
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM issue_keywords WHERE issue_id = ?`), id); err != nil {
		return fmt.Errorf("delete issue keywords: %w", err)
	}
	result, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM issues WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue %w: %s", ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) FindIssuesByKeywords(ctx context.Context, keywords []string, limit int) ([]*models.Issue, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(keywords))
	args := make([]any, 0, len(keywords)+1)
	for i, kw := range keywords {
		placeholders[i] = "?"
		args = append(args, kw)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM issues WHERE id IN (SELECT issue_id FROM issue_keywords WHERE keyword IN (%s))
		ORDER BY created_at DESC, id DESC`,
		issueColumns, strings.Join(placeholders, ","),
	)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find issues by keywords: %w", err)
	}
	return s.scanIssues(rows)
}
