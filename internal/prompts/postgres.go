package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/promptvault/pkg/pagination"
	"github.com/JaimeStill/promptvault/pkg/query"
	"github.com/JaimeStill/promptvault/pkg/repository"
)

type postgresStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewPostgresStore returns a Store backed by PostgreSQL. A positive
// lockTimeout bounds how long a transaction waits on row locks.
func NewPostgresStore(db *sql.DB, lockTimeout time.Duration) Store {
	return &postgresStore{db: db, lockTimeout: lockTimeout}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, fn(&postgresTx{tx: tx})
	})

	if repository.IsLockNotAvailable(err) {
		return fmt.Errorf("%w: row lock wait exceeded %s: %w", ErrLockUnavailable, s.lockTimeout, err)
	}
	return err
}

func (s *postgresStore) Find(ctx context.Context, q FindQuery) (*PromptVersion, error) {
	b := query.NewBuilder(projection).
		WhereEquals("ProjectID", q.ProjectID).
		WhereEquals("Name", q.Name)

	if q.Version != nil {
		b.WhereEquals("Version", q.Version)
	} else {
		b.WhereAny("Labels", q.Resolve())
	}

	sqlStr, args := b.BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, s.db, sqlStr, args, scanPromptVersion)
	if err != nil {
		return nil, repository.MapError(err, notFound(q), ErrStoreFailure)
	}

	return &p, nil
}

func (s *postgresStore) List(
	ctx context.Context,
	projectID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[PromptVersion], error) {
	qb := query.NewBuilder(projection, defaultSort).
		WhereEquals("ProjectID", projectID).
		WhereSearch(page.Search, "Name")
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count prompts: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanPromptVersion)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) Candidates(
	ctx context.Context,
	projectID, name string,
	version *int,
	label *string,
) ([]PromptVersion, error) {
	sqlStr, args := query.NewBuilder(projection, query.SortField{Field: "Version"}).
		WhereEquals("ProjectID", projectID).
		WhereEquals("Name", name).
		WhereEquals("Version", version).
		WhereAny("Labels", label).
		ForUpdate().
		Build()

	return repository.QueryMany(ctx, t.tx, sqlStr, args, scanPromptVersion)
}

func (t *postgresTx) ProtectedLabels(ctx context.Context, projectID string) ([]string, error) {
	const q = `
		SELECT label
		FROM prompt_protected_labels
		WHERE project_id = $1
		ORDER BY label`

	return repository.QueryMany(ctx, t.tx, q, []any{projectID}, func(s repository.Scanner) (string, error) {
		var label string
		err := s.Scan(&label)
		return label, err
	})
}

const dependentsSelect = `
	SELECT p.name, p.version, pd.child_name, pd.child_version, pd.child_label
	FROM prompt_dependencies pd
	INNER JOIN prompts p ON p.id = pd.parent_id
	WHERE p.project_id = $1
		AND pd.project_id = $1
		AND pd.child_name = $2`

func (t *postgresTx) DependentsOfName(ctx context.Context, projectID, name string) ([]Dependency, error) {
	q := dependentsSelect + `
	ORDER BY p.name, p.version`

	return repository.QueryMany(ctx, t.tx, q, []any{projectID, name}, scanDependency)
}

func (t *postgresTx) DependentsOfTargets(
	ctx context.Context,
	projectID, name string,
	versions []int,
	labels []string,
) ([]Dependency, error) {
	q := dependentsSelect + `
		AND (
			(pd.child_version IS NOT NULL AND pd.child_version = ANY($3::int[]))
			OR (pd.child_label IS NOT NULL AND pd.child_label = ANY($4::text[]))
		)
	ORDER BY p.name, p.version`

	if versions == nil {
		versions = []int{}
	}
	if labels == nil {
		labels = []string{}
	}

	return repository.QueryMany(ctx, t.tx, q, []any{projectID, name, versions, labels}, scanDependency)
}

func (t *postgresTx) DeleteVersions(ctx context.Context, ids []uuid.UUID) (int, error) {
	const q = `DELETE FROM prompts WHERE id = ANY($1::uuid[])`

	n, err := repository.ExecCount(ctx, t.tx, q, uuidStrings(ids))
	return int(n), err
}

func (t *postgresTx) HighestVersion(
	ctx context.Context,
	projectID, name string,
	exclude []uuid.UUID,
) (*PromptVersion, error) {
	q, args := query.NewBuilder(projection, defaultSort).
		WhereEquals("ProjectID", projectID).
		WhereEquals("Name", name).
		WhereNotAny("ID", uuidStrings(exclude), "uuid[]").
		Limit(1).
		Build()

	p, err := repository.QueryOne(ctx, t.tx, q, args, scanPromptVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (t *postgresTx) AddLabel(ctx context.Context, id uuid.UUID, label string) error {
	const q = `
		UPDATE prompts
		SET labels = array_append(labels, $2::text)
		WHERE id = $1 AND NOT ($2::text = ANY(labels))`

	_, err := repository.ExecCount(ctx, t.tx, q, id, label)
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
