package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS roadmaps (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS nodes (
	roadmap_id  TEXT NOT NULL REFERENCES roadmaps(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	ord         INTEGER NOT NULL,
	title       TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	duration    TEXT NOT NULL DEFAULT '',
	difficulty  TEXT NOT NULL DEFAULT '',
	resources   TEXT,
	skills      TEXT,
	importance  REAL NOT NULL DEFAULT 0,
	completed   INTEGER NOT NULL DEFAULT 0,
	notes       TEXT NOT NULL DEFAULT '',
	parent      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (roadmap_id, id)
);
CREATE TABLE IF NOT EXISTS connections (
	roadmap_id TEXT NOT NULL REFERENCES roadmaps(id) ON DELETE CASCADE,
	ord        INTEGER NOT NULL,
	from_id    TEXT NOT NULL,
	to_id      TEXT NOT NULL,
	relation   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_connections_roadmap ON connections(roadmap_id);
`

// SQLiteStore persists roadmaps in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: %s failed: %v", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads a roadmap with its nodes and connections.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*model.Roadmap, error) {
	defer metrics.Timer(metrics.RoadmapLoad)()

	var rm model.Roadmap
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, owner, created_at, updated_at FROM roadmaps WHERE id = ?`, id,
	).Scan(&rm.ID, &rm.Title, &rm.Description, &rm.Owner, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: roadmap %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query roadmap: %w", err)
	}
	rm.CreatedAt = parseTime(created)
	rm.UpdatedAt = parseTime(updated)

	if rm.Nodes, err = s.loadNodes(ctx, id); err != nil {
		return nil, err
	}
	if rm.Connections, err = s.loadConnections(ctx, id); err != nil {
		return nil, err
	}
	rm.RefreshProgress()
	return &rm, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context, roadmapID string) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, type, description, duration, difficulty, resources, skills,
		       importance, completed, notes, parent
		FROM nodes WHERE roadmap_id = ? ORDER BY ord`, roadmapID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var typ string
		var resources, skills sql.NullString
		if err := rows.Scan(&n.ID, &n.Title, &typ, &n.Description, &n.Duration, &n.Difficulty,
			&resources, &skills, &n.Importance, &n.Completed, &n.Notes, &n.Parent); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Type = model.NodeType(typ)
		n.Resources = parseJSONStringArray(resources)
		n.Skills = parseJSONStringArray(skills)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteStore) loadConnections(ctx context.Context, roadmapID string) ([]model.Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, relation FROM connections WHERE roadmap_id = ? ORDER BY ord`, roadmapID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		var c model.Connection
		if err := rows.Scan(&c.From, &c.To, &c.Relation); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

// List returns every stored roadmap, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.owner, r.updated_at,
		       COUNT(n.id), COALESCE(SUM(n.completed), 0)
		FROM roadmaps r LEFT JOIN nodes n ON n.roadmap_id = r.id
		GROUP BY r.id
		ORDER BY r.updated_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var updated string
		var done int
		if err := rows.Scan(&info.ID, &info.Title, &info.Owner, &updated, &info.Nodes, &done); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		info.UpdatedAt = parseTime(updated)
		if info.Nodes > 0 {
			info.Progress = (done*200 + info.Nodes) / (info.Nodes * 2)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// SaveRoadmap replaces the stored roadmap in one transaction.
func (s *SQLiteStore) SaveRoadmap(ctx context.Context, rm *model.Roadmap) error {
	if err := rm.Validate(); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	now := s.now().UTC()
	created := rm.CreatedAt
	if created.IsZero() {
		created = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roadmaps (id, title, description, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			owner = excluded.owner, updated_at = excluded.updated_at`,
		rm.ID, rm.Title, rm.Description, rm.Owner, formatTime(created), formatTime(now)); err != nil {
		return fmt.Errorf("upsert roadmap: %w", err)
	}
	for _, table := range []string{"nodes", "connections"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE roadmap_id = ?", rm.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (roadmap_id, id, ord, title, type, description, duration, difficulty,
		                   resources, skills, importance, completed, notes, parent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer nodeStmt.Close()
	for i, n := range rm.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, rm.ID, n.ID, i, n.Title, string(n.Type), n.Description,
			n.Duration, n.Difficulty, encodeJSONStringArray(n.Resources), encodeJSONStringArray(n.Skills),
			n.Importance, n.Completed, n.Notes, n.Parent); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	connStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO connections (roadmap_id, ord, from_id, to_id, relation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare connections: %w", err)
	}
	defer connStmt.Close()
	for i, c := range rm.Connections {
		if _, err := connStmt.ExecContext(ctx, rm.ID, i, c.From, c.To, c.Relation); err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
	}
	return tx.Commit()
}

// UpdateProgress sets one node's completion flag and notes.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, roadmapID, nodeID string, completed bool, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET completed = ?, notes = ? WHERE roadmap_id = ? AND id = ?`,
		completed, notes, roadmapID, nodeID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: node %s in roadmap %s", ErrNotFound, nodeID, roadmapID)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE roadmaps SET updated_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), roadmapID); err != nil {
		debug.Log("sqlite: touch roadmap %s: %v", roadmapID, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSONStringArray(v []string) any {
	if len(v) == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

// parseJSONStringArray parses a JSON array of strings, tolerating a bare
// comma-separated list.
func parseJSONStringArray(ns sql.NullString) []string {
	if !ns.Valid {
		return nil
	}
	s := strings.TrimSpace(ns.String)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		result = nil
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		for _, item := range strings.Split(s, ",") {
			item = strings.Trim(strings.TrimSpace(item), `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
