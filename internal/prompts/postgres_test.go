package prompts_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/promptvault/internal/prompts"
	"github.com/JaimeStill/promptvault/migrations"
	"github.com/JaimeStill/promptvault/pkg/cache"
	"github.com/JaimeStill/promptvault/pkg/database"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/pagination"
)

const envTestDSN = "PROMPTVAULT_TEST_DSN"

type pgFixture struct {
	db  *sql.DB
	sys prompts.System
}

func newPostgresFixture(t *testing.T, protected ...string) *pgFixture {
	t.Helper()

	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("%s not set", envTestDSN)
	}

	require.NoError(t, database.Migrate(dsn, migrations.FS, discardLogger()))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`TRUNCATE prompt_dependencies, prompt_protected_labels, prompts`)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &pgFixture{
		db: db,
		sys: prompts.New(
			prompts.NewPostgresStore(db, 2*time.Second),
			lock.NewMemory(),
			cache.NewWithClient(client, "pg:", time.Minute, discardLogger()),
			prompts.Options{
				ProtectedLabels: protected,
				Lock:            lock.Policy{TTL: 5 * time.Second, Wait: 2 * time.Second, RetryInterval: 10 * time.Millisecond},
			},
			discardLogger(),
			pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		),
	}
}

func (f *pgFixture) insert(t *testing.T, name string, version int, labels ...string) uuid.UUID {
	t.Helper()
	if labels == nil {
		labels = []string{}
	}

	var id uuid.UUID
	err := f.db.QueryRow(
		`INSERT INTO prompts (project_id, name, version, labels, prompt)
		 VALUES ($1, $2, $3, $4, '{"text":"hi"}') RETURNING id`,
		project, name, version, labels,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *pgFixture) depend(t *testing.T, parent uuid.UUID, child string, version *int, label *string) {
	t.Helper()
	_, err := f.db.Exec(
		`INSERT INTO prompt_dependencies (project_id, parent_id, child_name, child_version, child_label)
		 VALUES ($1, $2, $3, $4, $5)`,
		project, parent, child, version, label,
	)
	require.NoError(t, err)
}

func (f *pgFixture) count(t *testing.T, name string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM prompts WHERE project_id = $1 AND name = $2`, project, name,
	).Scan(&n))
	return n
}

func (f *pgFixture) latest(t *testing.T, name string) []int {
	t.Helper()
	rows, err := f.db.Query(
		`SELECT version FROM prompts WHERE project_id = $1 AND name = $2 AND 'latest' = ANY(labels) ORDER BY version`,
		project, name,
	)
	require.NoError(t, err)
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestPostgresPartialDeletionReassignsLatest(t *testing.T) {
	f := newPostgresFixture(t)
	f.insert(t, "greeting", 1)
	id2 := f.insert(t, "greeting", 2, "staging")
	f.insert(t, "greeting", 3)
	id4 := f.insert(t, "greeting", 4, "staging", "latest")
	f.insert(t, "greeting", 5)

	result, err := f.sys.Delete(context.Background(), prompts.DeleteCommand{
		ProjectID: project,
		Name:      "greeting",
		Label:     ptr("staging"),
	})
	require.NoError(t, err)
	require.Equal(t, prompts.PartialDeletion{DeletedIDs: []uuid.UUID{id2, id4}}, result)
	require.Equal(t, 3, f.count(t, "greeting"))
	require.Equal(t, []int{5}, f.latest(t, "greeting"))
}

func TestPostgresFullDeletionBlockedByDependency(t *testing.T) {
	f := newPostgresFixture(t)
	f.insert(t, "base-template", 1)
	f.insert(t, "base-template", 2, "latest")
	composed := f.insert(t, "composed", 1, "latest")
	f.depend(t, composed, "base-template", ptr(2), nil)

	_, err := f.sys.Delete(context.Background(), prompts.DeleteCommand{ProjectID: project, Name: "base-template"})
	require.ErrorIs(t, err, prompts.ErrDependents)
	require.Contains(t, err.Error(), "composed v1 depends on base-template v2")
	require.Equal(t, 2, f.count(t, "base-template"))

	result, err := f.sys.Delete(context.Background(), prompts.DeleteCommand{ProjectID: project, Name: "composed"})
	require.NoError(t, err)
	require.Equal(t, prompts.FullDeletion{PromptName: "composed", Count: 1}, result)

	_, err = f.sys.Delete(context.Background(), prompts.DeleteCommand{ProjectID: project, Name: "base-template"})
	require.NoError(t, err, "cascade removed the edge with its parent")
}

func TestPostgresProtectedLabels(t *testing.T) {
	f := newPostgresFixture(t, "production")
	f.insert(t, "greeting", 3, "production")
	f.insert(t, "greeting", 4, "audited", "latest")

	_, err := f.db.Exec(`INSERT INTO prompt_protected_labels (project_id, label) VALUES ($1, 'audited')`, project)
	require.NoError(t, err)

	_, err = f.sys.Delete(context.Background(), prompts.DeleteCommand{
		ProjectID: project,
		Name:      "greeting",
		Version:   ptr(3),
		Label:     ptr("production"),
	})
	require.ErrorIs(t, err, prompts.ErrProtectedLabels)

	_, err = f.sys.Delete(context.Background(), prompts.DeleteCommand{
		ProjectID: project,
		Name:      "greeting",
		Label:     ptr("audited"),
	})
	var protectedErr *prompts.ProtectedLabelError
	require.ErrorAs(t, err, &protectedErr)
	require.Equal(t, []string{"audited"}, protectedErr.Labels)
	require.Equal(t, 2, f.count(t, "greeting"))
}

func TestPostgresFindAndList(t *testing.T) {
	f := newPostgresFixture(t)
	id := f.insert(t, "greeting", 1, "production")
	f.insert(t, "greeting", 2, "latest")

	p, err := f.sys.Find(context.Background(), prompts.FindQuery{ProjectID: project, Name: "greeting"})
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.Equal(t, []string{"production"}, p.Labels)
	require.JSONEq(t, `{"text":"hi"}`, string(p.Prompt))

	_, err = f.sys.Find(context.Background(), prompts.FindQuery{ProjectID: project, Name: "greeting", Version: ptr(9)})
	require.ErrorIs(t, err, prompts.ErrNotFound)

	page, err := f.sys.List(context.Background(), project, pagination.PageRequest{}, prompts.Filters{Label: ptr("latest")})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, 2, page.Data[0].Version)
}
