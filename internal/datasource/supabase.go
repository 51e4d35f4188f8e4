package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sony/gobreaker"
	"github.com/supabase-community/supabase-go"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Supabase table names.
const (
	TableRoadmaps    = "roadmaps"
	TableNodes       = "roadmap_nodes"
	TableConnections = "roadmap_connections"
)

// SupabaseConfig holds connection settings for the hosted store.
type SupabaseConfig struct {
	URL string
	Key string

	// Breaker tuning; zero values use defaults.
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func (c SupabaseConfig) withDefaults() SupabaseConfig {
	if c.MaxRequests == 0 {
		c.MaxRequests = 3
	}
	if c.Interval == 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 0.6
	}
	if c.MinRequests == 0 {
		c.MinRequests = 3
	}
	return c
}

type roadmapRow struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Owner       string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type nodeRow struct {
	RoadmapID   string   `json:"roadmap_id"`
	ID          string   `json:"id"`
	Ord         int      `json:"ord"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Difficulty  string   `json:"difficulty"`
	Resources   []string `json:"resources"`
	Skills      []string `json:"skills"`
	Importance  float64  `json:"importance"`
	Completed   bool     `json:"completed"`
	Notes       string   `json:"notes"`
	Parent      string   `json:"parent_id"`
}

type connectionRow struct {
	RoadmapID string `json:"roadmap_id"`
	Ord       int    `json:"ord"`
	From      string `json:"from_node"`
	To        string `json:"to_node"`
	Relation  string `json:"relation"`
}

// SupabaseStore reads and writes roadmaps through the Supabase PostgREST API.
// Every call goes through a circuit breaker so a failing backend is skipped
// quickly and callers can fall back.
type SupabaseStore struct {
	client  *supabase.Client
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewSupabaseStore creates a client for cfg. Missing credentials yield
// ErrNotConfigured.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, ErrNotConfigured
	}
	client, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	cfg = cfg.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			debug.Log("breaker %s: %v -> %v", name, from, to)
		},
	})
	return &SupabaseStore{client: client, breaker: cb, now: time.Now}, nil
}

// BreakerState reports the circuit breaker state.
func (s *SupabaseStore) BreakerState() gobreaker.State { return s.breaker.State() }

func (s *SupabaseStore) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// Load fetches a roadmap and its nodes and connections.
func (s *SupabaseStore) Load(ctx context.Context, id string) (*model.Roadmap, error) {
	defer metrics.Timer(metrics.RoadmapLoad)()

	var roadmaps []roadmapRow
	var nodes []nodeRow
	var conns []connectionRow
	err := s.call(ctx, func() error {
		if _, err := s.client.From(TableRoadmaps).Select("*", "", false).Eq("id", id).ExecuteTo(&roadmaps); err != nil {
			return fmt.Errorf("select roadmap: %w", err)
		}
		if len(roadmaps) == 0 {
			return nil
		}
		if _, err := s.client.From(TableNodes).Select("*", "", false).Eq("roadmap_id", id).ExecuteTo(&nodes); err != nil {
			return fmt.Errorf("select nodes: %w", err)
		}
		if _, err := s.client.From(TableConnections).Select("*", "", false).Eq("roadmap_id", id).ExecuteTo(&conns); err != nil {
			return fmt.Errorf("select connections: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(roadmaps) == 0 {
		return nil, fmt.Errorf("%w: roadmap %s", ErrNotFound, id)
	}
	return assembleRoadmap(roadmaps[0], nodes, conns), nil
}

func assembleRoadmap(r roadmapRow, nodes []nodeRow, conns []connectionRow) *model.Roadmap {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Ord < nodes[j].Ord })
	sort.SliceStable(conns, func(i, j int) bool { return conns[i].Ord < conns[j].Ord })

	rm := &model.Roadmap{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Owner:       r.Owner,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Nodes:       make([]model.Node, 0, len(nodes)),
		Connections: make([]model.Connection, 0, len(conns)),
	}
	for _, n := range nodes {
		rm.Nodes = append(rm.Nodes, model.Node{
			ID:          n.ID,
			Title:       n.Title,
			Type:        model.NodeType(n.Type),
			Description: n.Description,
			Duration:    n.Duration,
			Difficulty:  n.Difficulty,
			Resources:   n.Resources,
			Skills:      n.Skills,
			Importance:  n.Importance,
			Completed:   n.Completed,
			Notes:       n.Notes,
			Parent:      n.Parent,
		})
	}
	for _, c := range conns {
		rm.Connections = append(rm.Connections, model.Connection{From: c.From, To: c.To, Relation: c.Relation})
	}
	rm.RefreshProgress()
	return rm
}

// List returns the stored roadmaps without node details.
func (s *SupabaseStore) List(ctx context.Context) ([]Info, error) {
	var rows []roadmapRow
	err := s.call(ctx, func() error {
		_, err := s.client.From(TableRoadmaps).Select("id,title,owner_id,updated_at", "", false).ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	out := make([]Info, 0, len(rows))
	for _, r := range rows {
		out = append(out, Info{ID: r.ID, Title: r.Title, Owner: r.Owner, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// SaveRoadmap upserts the roadmap row and replaces its nodes and connections.
func (s *SupabaseStore) SaveRoadmap(ctx context.Context, rm *model.Roadmap) error {
	if err := rm.Validate(); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	now := s.now().UTC()
	row := roadmapRow{
		ID:          rm.ID,
		Title:       rm.Title,
		Description: rm.Description,
		Owner:       rm.Owner,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   now,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	nodes := make([]nodeRow, len(rm.Nodes))
	for i, n := range rm.Nodes {
		nodes[i] = nodeRow{
			RoadmapID: rm.ID, ID: n.ID, Ord: i, Title: n.Title, Type: string(n.Type),
			Description: n.Description, Duration: n.Duration, Difficulty: n.Difficulty,
			Resources: n.Resources, Skills: n.Skills, Importance: n.Importance,
			Completed: n.Completed, Notes: n.Notes, Parent: n.Parent,
		}
	}
	conns := make([]connectionRow, len(rm.Connections))
	for i, c := range rm.Connections {
		conns[i] = connectionRow{RoadmapID: rm.ID, Ord: i, From: c.From, To: c.To, Relation: c.Relation}
	}

	return s.call(ctx, func() error {
		if _, _, err := s.client.From(TableRoadmaps).Upsert(row, "id", "minimal", "").Execute(); err != nil {
			return fmt.Errorf("upsert roadmap: %w", err)
		}
		for _, table := range []string{TableNodes, TableConnections} {
			if _, _, err := s.client.From(table).Delete("minimal", "").Eq("roadmap_id", rm.ID).Execute(); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if len(nodes) > 0 {
			if _, _, err := s.client.From(TableNodes).Insert(nodes, false, "", "minimal", "").Execute(); err != nil {
				return fmt.Errorf("insert nodes: %w", err)
			}
		}
		if len(conns) > 0 {
			if _, _, err := s.client.From(TableConnections).Insert(conns, false, "", "minimal", "").Execute(); err != nil {
				return fmt.Errorf("insert connections: %w", err)
			}
		}
		return nil
	})
}

// UpdateProgress patches one node row.
func (s *SupabaseStore) UpdateProgress(ctx context.Context, roadmapID, nodeID string, completed bool, notes string) error {
	patch := map[string]any{"completed": completed, "notes": notes}
	var updated []nodeRow
	err := s.call(ctx, func() error {
		_, err := s.client.From(TableNodes).
			Update(patch, "representation", "").
			Eq("roadmap_id", roadmapID).
			Eq("id", nodeID).
			ExecuteTo(&updated)
		return err
	})
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("%w: node %s in roadmap %s", ErrNotFound, nodeID, roadmapID)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (s *SupabaseStore) Close() error { return nil }
