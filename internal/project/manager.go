package project

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// Manager provides CRUD and scoring operations for projects.
type Manager interface {
	// Create creates an empty project.
	Create(ctx context.Context, name string) (*Project, error)

	// Get retrieves a project, including a copy of its tasks.
	Get(ctx context.Context, id string) (*Project, error)

	// GetByName finds a project by name.
	GetByName(ctx context.Context, name string) (*Project, error)

	// List returns all projects without tasks, oldest first.
	List(ctx context.Context) ([]*Project, error)

	// Rename changes a project's name.
	Rename(ctx context.Context, id, name string) (*Project, error)

	// Delete removes a project.
	Delete(ctx context.Context, id string) error

	// ImportOutline replaces the forest with a parsed outline.
	ImportOutline(ctx context.Context, id string, lines []string) (*Project, error)

	// ImportFragments replaces the forest with merged fragments.
	ImportFragments(ctx context.Context, id string, fragments []*wbs.TaskNode) (*wbs.MergeReport, error)

	// Score runs a full scoring pass.
	Score(ctx context.Context, id string) (*scoring.Result, error)

	// Tasks returns the scored tasks in pre-order, detached from the tree.
	Tasks(ctx context.Context, id string) ([]*priority.Task, error)

	// Classify buckets the scored tasks into quadrants.
	Classify(ctx context.Context, id string) (priority.Matrix, error)

	// Top returns the n highest-ranked tasks by key.
	Top(ctx context.Context, id string, n int, key priority.Key) ([]*priority.Task, error)

	// CompleteTop marks the n most important tasks completed.
	CompleteTop(ctx context.Context, id string, n int) ([]*priority.Task, error)
}

// Option configures the manager.
type Option func(*manager)

// WithScoring sets the scoring service used for every pass.
func WithScoring(svc *scoring.Service) Option {
	return func(m *manager) {
		if svc != nil {
			m.scoring = svc
		}
	}
}

// WithParseOptions sets options applied to outline imports.
func WithParseOptions(opts ...wbs.ParseOption) Option {
	return func(m *manager) {
		m.parseOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// manager implements Manager with in-memory storage.
type manager struct {
	mu       sync.RWMutex
	projects map[string]*Project // id -> project
	byName   map[string]*Project // name -> project
	results  map[string]*scoring.Result

	scoring   *scoring.Service
	parseOpts []wbs.ParseOption
	logger    *zap.Logger
}

// NewManager creates a project manager with in-memory storage.
func NewManager(opts ...Option) Manager {
	m := &manager{
		projects: make(map[string]*Project),
		byName:   make(map[string]*Project),
		results:  make(map[string]*scoring.Result),
		scoring:  scoring.NewService(nil, scoring.ScaleAuto, nil),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) Create(ctx context.Context, name string) (*Project, error) {
	p, err := NewProject(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byName[p.Name]; ok {
		return nil, fmt.Errorf("%w: %q is project %s", ErrProjectExists, p.Name, existing.ID)
	}
	m.projects[p.ID] = p
	m.byName[p.Name] = p

	m.logger.Info("project created", zap.String("project.id", p.ID), zap.String("name", p.Name))
	return p.snapshot(true), nil
}

// lookup returns the stored project. Callers hold the lock.
func (m *manager) lookup(id string) (*Project, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p, nil
}

func (m *manager) Get(ctx context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return p.snapshot(true), nil
}

func (m *manager) GetByName(ctx context.Context, name string) (*Project, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: no project named %q", ErrProjectNotFound, name)
	}
	return p.snapshot(true), nil
}

func (m *manager) List(ctx context.Context) ([]*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p.snapshot(false))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *manager) Rename(ctx context.Context, id, name string) (*Project, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if other, ok := m.byName[name]; ok && other.ID != id {
		return nil, fmt.Errorf("%w: %q is project %s", ErrProjectExists, name, other.ID)
	}
	delete(m.byName, p.Name)
	p.Name = name
	p.UpdatedAt = time.Now()
	m.byName[name] = p
	return p.snapshot(false), nil
}

func (m *manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(id)
	if err != nil {
		return err
	}
	delete(m.projects, id)
	delete(m.byName, p.Name)
	delete(m.results, id)

	m.logger.Info("project deleted", zap.String("project.id", id))
	return nil
}

// replace swaps the forest and invalidates scores. Callers hold the lock.
func (m *manager) replace(p *Project, roots []*wbs.TaskNode) {
	p.Tasks = roots
	p.TaskCount = wbs.Count(roots)
	p.Scored = false
	p.UpdatedAt = time.Now()
	delete(m.results, p.ID)
}

func (m *manager) ImportOutline(ctx context.Context, id string, lines []string) (*Project, error) {
	roots, err := wbs.ParseOutline(lines, m.parseOpts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	m.replace(p, roots)
	m.logger.Debug("outline imported", zap.String("project.id", id), zap.Int("tasks", p.TaskCount))
	return p.snapshot(true), nil
}

func (m *manager) ImportFragments(ctx context.Context, id string, fragments []*wbs.TaskNode) (*wbs.MergeReport, error) {
	report, err := wbs.MergeWithReport(fragments)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	m.replace(p, []*wbs.TaskNode{report.Root})

	if len(report.Mismatched) > 0 {
		m.logger.Warn("fragment roots differ from the first fragment",
			zap.String("project.id", id), zap.Ints("fragments", report.Mismatched))
	}
	out := *report
	out.Root = report.Root.Clone()
	return &out, nil
}

// ensureScored runs a pass when the tree changed. Callers hold the write
// lock.
func (m *manager) ensureScored(ctx context.Context, p *Project) (*scoring.Result, error) {
	if res, ok := m.results[p.ID]; ok && p.Scored {
		return res, nil
	}
	res, err := m.scoring.Run(ctx, p.Tasks)
	if err != nil {
		return nil, fmt.Errorf("scoring project %s: %w", p.ID, err)
	}
	m.results[p.ID] = res
	p.Scored = true
	return res, nil
}

func (m *manager) Score(ctx context.Context, id string) (*scoring.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	// Explicit requests always recompute so feature deadlines track the clock.
	p.Scored = false
	res, err := m.ensureScored(ctx, p)
	if err != nil {
		return nil, err
	}
	return copyResult(res), nil
}

// scoredTasks returns tasks bound to the live tree. Callers hold the write
// lock.
func (m *manager) scoredTasks(ctx context.Context, id string) ([]*priority.Task, error) {
	p, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	res, err := m.ensureScored(ctx, p)
	if err != nil {
		return nil, err
	}
	return priority.FromTree(p.Tasks, res.Scale), nil
}

func (m *manager) Tasks(ctx context.Context, id string) ([]*priority.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.scoredTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	return detach(tasks), nil
}

func (m *manager) Classify(ctx context.Context, id string) (priority.Matrix, error) {
	tasks, err := m.Tasks(ctx, id)
	if err != nil {
		return priority.Matrix{}, err
	}
	return priority.Classify(tasks), nil
}

func (m *manager) Top(ctx context.Context, id string, n int, key priority.Key) ([]*priority.Task, error) {
	tasks, err := m.Tasks(ctx, id)
	if err != nil {
		return nil, err
	}
	return priority.TopN(tasks, n, key), nil
}

func (m *manager) CompleteTop(ctx context.Context, id string, n int) ([]*priority.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.scoredTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	done := priority.CompleteTopN(tasks, n)
	m.projects[id].UpdatedAt = time.Now()

	m.logger.Info("tasks completed", zap.String("project.id", id), zap.Int("count", len(done)))
	return detach(done), nil
}

// detach copies tasks without their node binding.
func detach(tasks []*priority.Task) []*priority.Task {
	out := make([]*priority.Task, len(tasks))
	for i, t := range tasks {
		out[i] = &priority.Task{
			ID:         t.ID,
			Title:      t.Title,
			Importance: t.Importance,
			Urgency:    t.Urgency,
			Status:     t.Status,
			Progress:   t.Progress,
		}
	}
	return out
}

func copyResult(r *scoring.Result) *scoring.Result {
	cp := *r
	cp.Scores = make(scoring.Scores, len(r.Scores))
	for k, v := range r.Scores {
		cp.Scores[k] = v
	}
	cp.Duplicates = append([]string(nil), r.Duplicates...)
	return &cp
}
