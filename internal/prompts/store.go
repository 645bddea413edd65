package prompts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/promptvault/pkg/pagination"
)

// Store is the transactional relational store holding prompt versions,
// dependency edges, and per-project protected labels.
type Store interface {
	// InTx runs fn in one atomic unit. Any error returned by fn rolls back
	// every write fn made.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Find returns the version matching q, or ErrNotFound.
	Find(ctx context.Context, q FindQuery) (*PromptVersion, error)

	List(
		ctx context.Context,
		projectID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[PromptVersion], error)
}

// Tx is the set of reads and writes the deletion engine performs inside one transaction.
type Tx interface {
	// Candidates returns the versions of name matching the optional version and label,
	// ordered by version and locked against concurrent writers.
	Candidates(ctx context.Context, projectID, name string, version *int, label *string) ([]PromptVersion, error)

	// ProtectedLabels returns the labels stored as protected for the project.
	ProtectedLabels(ctx context.Context, projectID string) ([]string, error)

	// DependentsOfName returns every edge targeting any version of name.
	DependentsOfName(ctx context.Context, projectID, name string) ([]Dependency, error)

	// DependentsOfTargets returns every edge targeting name by one of versions or one of labels.
	DependentsOfTargets(ctx context.Context, projectID, name string, versions []int, labels []string) ([]Dependency, error)

	// DeleteVersions removes the rows with the given ids and returns the number removed.
	DeleteVersions(ctx context.Context, ids []uuid.UUID) (int, error)

	// HighestVersion returns the remaining version of name with the highest
	// version number, skipping exclude. It returns nil when none remain.
	HighestVersion(ctx context.Context, projectID, name string, exclude []uuid.UUID) (*PromptVersion, error)

	// AddLabel appends label to the version's label set if absent.
	AddLabel(ctx context.Context, id uuid.UUID, label string) error
}
