package prompts_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/promptvault/internal/prompts"
	"github.com/JaimeStill/promptvault/pkg/pagination"
)

type edge struct {
	projectID    string
	parentID     uuid.UUID
	childName    string
	childVersion *int
	childLabel   *string
}

// memStore is a transactional in-memory prompts.Store. Each transaction
// works on a snapshot taken at begin and applies its deletes and label
// additions on commit. Transactions do not block each other, so only the
// engine's lock keeps two of them from acting on the same name.
type memStore struct {
	mu        sync.Mutex
	rows      []prompts.PromptVersion
	edges     []edge
	protected map[string][]string

	// failOn makes the named Tx method return errInjected.
	failOn string
	// txDelay pauses every transaction after selecting candidates.
	txDelay time.Duration
	// afterFind runs once Find has read its rows and before it returns.
	afterFind func()

	accesses atomic.Int64
	active   atomic.Int32
	overlap  atomic.Bool
}

var errInjected = errors.New("injected store failure")

func newMemStore() *memStore {
	return &memStore{protected: make(map[string][]string)}
}

func (s *memStore) add(projectID, name string, version int, labels ...string) prompts.PromptVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	if labels == nil {
		labels = []string{}
	}

	p := prompts.PromptVersion{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Version:   version,
		Labels:    labels,
		Prompt:    []byte(`{"text":"hello"}`),
		CreatedAt: time.Now().UTC(),
	}
	s.rows = append(s.rows, p)
	return p
}

func (s *memStore) dependOnVersion(parent prompts.PromptVersion, childName string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, edge{projectID: parent.ProjectID, parentID: parent.ID, childName: childName, childVersion: &version})
}

func (s *memStore) dependOnLabel(parent prompts.PromptVersion, childName, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, edge{projectID: parent.ProjectID, parentID: parent.ID, childName: childName, childLabel: &label})
}

func (s *memStore) protect(projectID string, labels ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected[projectID] = append(s.protected[projectID], labels...)
}

func (s *memStore) versions(projectID, name string) []prompts.PromptVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterRows(s.rows, projectID, name)
}

func (s *memStore) version(projectID, name string, version int) (prompts.PromptVersion, bool) {
	for _, p := range s.versions(projectID, name) {
		if p.Version == version {
			return p, true
		}
	}
	return prompts.PromptVersion{}, false
}

func (s *memStore) InTx(ctx context.Context, fn func(tx prompts.Tx) error) error {
	s.accesses.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)

	s.mu.Lock()
	tx := &memTx{store: s, rows: cloneRows(s.rows), edges: slices.Clone(s.edges)}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = slices.DeleteFunc(s.rows, func(p prompts.PromptVersion) bool {
		return slices.Contains(tx.deleted, p.ID)
	})
	for i := range s.rows {
		if label, ok := tx.labeled[s.rows[i].ID]; ok && !s.rows[i].HasLabel(label) {
			s.rows[i].Labels = append(s.rows[i].Labels, label)
		}
	}
	s.edges = slices.DeleteFunc(s.edges, func(e edge) bool {
		return slices.Contains(tx.deleted, e.parentID)
	})

	return nil
}

func (s *memStore) Find(_ context.Context, q prompts.FindQuery) (*prompts.PromptVersion, error) {
	s.accesses.Add(1)
	rows := s.versions(q.ProjectID, q.Name)
	if s.afterFind != nil {
		s.afterFind()
	}

	for _, p := range rows {
		if q.Version != nil && p.Version == *q.Version {
			return &p, nil
		}
		if q.Version == nil && p.HasLabel(q.Resolve()) {
			return &p, nil
		}
	}
	return nil, prompts.ErrNotFound
}

func (s *memStore) List(
	_ context.Context,
	projectID string,
	page pagination.PageRequest,
	filters prompts.Filters,
) (*pagination.PageResult[prompts.PromptVersion], error) {
	s.accesses.Add(1)

	s.mu.Lock()
	var matched []prompts.PromptVersion
	for _, p := range s.rows {
		if p.ProjectID != projectID {
			continue
		}
		if filters.Name != nil && p.Name != *filters.Name {
			continue
		}
		if filters.Label != nil && !p.HasLabel(*filters.Label) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	result := pagination.NewPageResult(matched[start:end], len(matched), page.Page, page.PageSize)
	return &result, nil
}

type memTx struct {
	store   *memStore
	rows    []prompts.PromptVersion
	edges   []edge
	deleted []uuid.UUID
	labeled map[uuid.UUID]string
}

func (t *memTx) fail(method string) error {
	t.store.accesses.Add(1)
	if t.store.failOn == method {
		return errInjected
	}
	return nil
}

func (t *memTx) Candidates(ctx context.Context, projectID, name string, version *int, label *string) ([]prompts.PromptVersion, error) {
	if err := t.fail("Candidates"); err != nil {
		return nil, err
	}

	var out []prompts.PromptVersion
	for _, p := range filterRows(t.rows, projectID, name) {
		if version != nil && p.Version != *version {
			continue
		}
		if label != nil && !p.HasLabel(*label) {
			continue
		}
		out = append(out, p)
	}

	if t.store.txDelay > 0 {
		timer := time.NewTimer(t.store.txDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return out, nil
}

func (t *memTx) ProtectedLabels(_ context.Context, projectID string) ([]string, error) {
	if err := t.fail("ProtectedLabels"); err != nil {
		return nil, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return slices.Clone(t.store.protected[projectID]), nil
}

func (t *memTx) dependents(projectID, name string, match func(edge) bool) []prompts.Dependency {
	var out []prompts.Dependency
	for _, e := range t.edges {
		if e.projectID != projectID || e.childName != name || !match(e) {
			continue
		}
		idx := slices.IndexFunc(t.rows, func(p prompts.PromptVersion) bool { return p.ID == e.parentID })
		if idx < 0 {
			continue
		}
		parent := t.rows[idx]
		out = append(out, prompts.Dependency{
			ParentName:    parent.Name,
			ParentVersion: parent.Version,
			ChildName:     e.childName,
			ChildVersion:  e.childVersion,
			ChildLabel:    e.childLabel,
		})
	}

	slices.SortFunc(out, func(a, b prompts.Dependency) int {
		if c := strings.Compare(a.ParentName, b.ParentName); c != 0 {
			return c
		}
		return a.ParentVersion - b.ParentVersion
	})
	return out
}

func (t *memTx) DependentsOfName(_ context.Context, projectID, name string) ([]prompts.Dependency, error) {
	if err := t.fail("DependentsOfName"); err != nil {
		return nil, err
	}
	return t.dependents(projectID, name, func(edge) bool { return true }), nil
}

func (t *memTx) DependentsOfTargets(_ context.Context, projectID, name string, versions []int, labels []string) ([]prompts.Dependency, error) {
	if err := t.fail("DependentsOfTargets"); err != nil {
		return nil, err
	}
	return t.dependents(projectID, name, func(e edge) bool {
		if e.childVersion != nil && slices.Contains(versions, *e.childVersion) {
			return true
		}
		return e.childLabel != nil && slices.Contains(labels, *e.childLabel)
	}), nil
}

func (t *memTx) DeleteVersions(_ context.Context, ids []uuid.UUID) (int, error) {
	if err := t.fail("DeleteVersions"); err != nil {
		return 0, err
	}

	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(p prompts.PromptVersion) bool {
		return slices.Contains(ids, p.ID)
	})
	t.deleted = append(t.deleted, ids...)
	return before - len(t.rows), nil
}

func (t *memTx) HighestVersion(_ context.Context, projectID, name string, exclude []uuid.UUID) (*prompts.PromptVersion, error) {
	if err := t.fail("HighestVersion"); err != nil {
		return nil, err
	}

	var best *prompts.PromptVersion
	for _, p := range filterRows(t.rows, projectID, name) {
		if slices.Contains(exclude, p.ID) {
			continue
		}
		if best == nil || p.Version > best.Version {
			best = &p
		}
	}
	return best, nil
}

func (t *memTx) AddLabel(_ context.Context, id uuid.UUID, label string) error {
	if err := t.fail("AddLabel"); err != nil {
		return err
	}

	if t.labeled == nil {
		t.labeled = make(map[uuid.UUID]string)
	}
	t.labeled[id] = label
	return nil
}

func filterRows(rows []prompts.PromptVersion, projectID, name string) []prompts.PromptVersion {
	var out []prompts.PromptVersion
	for _, p := range rows {
		if p.ProjectID == projectID && p.Name == name {
			p.Labels = slices.Clone(p.Labels)
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b prompts.PromptVersion) int { return a.Version - b.Version })
	return out
}

func cloneRows(rows []prompts.PromptVersion) []prompts.PromptVersion {
	out := make([]prompts.PromptVersion, len(rows))
	for i, p := range rows {
		p.Labels = slices.Clone(p.Labels)
		out[i] = p
	}
	return out
}
