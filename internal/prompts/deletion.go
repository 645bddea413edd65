package prompts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// State is a step of a deletion transaction.
type State string

const (
	StateSelecting          State = "selecting"
	StateGuarding           State = "guarding"
	StateDependencyChecking State = "dependency_checking"
	StateDeleting           State = "deleting"
	StateReassigning        State = "reassigning"
	StateCommitted          State = "committed"
	StateBlocked            State = "blocked"
	StateNotFound           State = "not_found"
)

// Deletion is the outcome of running a DeletionTransaction.
type Deletion struct {
	// State is the last state reached. Run never reports StateCommitted;
	// the caller sets it once the surrounding store transaction commits.
	State     State
	Result    DeleteResult
	Deleted   []PromptVersion
	NewLatest *PromptVersion
}

// DeletionTransaction selects, verifies, deletes, and repairs the latest
// label for one DeleteCommand. Run must execute inside a single store
// transaction so that any failure discards every write it made.
type DeletionTransaction struct {
	guard      *ProtectedLabelGuard
	deps       DependencyGraphChecker
	reassigner LatestLabelReassigner
}

// NewDeletionTransaction creates a transaction runner using guard for the protected-label check.
func NewDeletionTransaction(guard *ProtectedLabelGuard) *DeletionTransaction {
	return &DeletionTransaction{guard: guard}
}

// Run executes the state machine for cmd. The returned Deletion is never nil
// and reports the state where Run stopped, including on error.
func (d *DeletionTransaction) Run(ctx context.Context, tx Tx, cmd DeleteCommand) (*Deletion, error) {
	mode := cmd.Mode()
	out := &Deletion{State: StateSelecting}

	candidates, err := tx.Candidates(ctx, cmd.ProjectID, cmd.Name, cmd.Version, cmd.Label)
	if err != nil {
		return out, storeFailure("select candidates", err)
	}
	if len(candidates) == 0 {
		out.State = StateNotFound
		return out, selectorNotFound(cmd)
	}

	out.State = StateGuarding
	guard, err := d.guard.Check(ctx, tx, cmd.ProjectID, unionLabels(candidates))
	if err != nil {
		return out, storeFailure("read protected labels", err)
	}
	if guard.Blocked {
		out.State = StateBlocked
		return out, &ProtectedLabelError{Mode: mode, Labels: guard.Offending}
	}

	out.State = StateDependencyChecking
	conflicts, err := d.deps.Check(ctx, tx, mode, cmd.ProjectID, cmd.Name, candidates)
	if err != nil {
		return out, storeFailure("read dependencies", err)
	}
	if len(conflicts) > 0 {
		out.State = StateBlocked
		return out, &DependencyError{Mode: mode, Conflicts: conflicts}
	}

	out.State = StateDeleting
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	count, err := tx.DeleteVersions(ctx, ids)
	if err != nil {
		return out, storeFailure("delete versions", err)
	}
	out.Deleted = candidates

	if mode == ModeFull {
		out.Result = FullDeletion{PromptName: cmd.Name, Count: count}
		return out, nil
	}

	out.State = StateReassigning
	next, err := d.reassigner.Reassign(ctx, tx, cmd.ProjectID, cmd.Name, candidates)
	if err != nil {
		return out, storeFailure("reassign latest label", err)
	}
	out.NewLatest = next
	out.Result = PartialDeletion{DeletedIDs: ids}

	return out, nil
}

func selectorNotFound(cmd DeleteCommand) error {
	if cmd.Mode() == ModeFull {
		return fmt.Errorf("%w: '%s'", ErrNotFound, cmd.Name)
	}
	return fmt.Errorf("%w: '%s' with specified version or label", ErrNotFound, cmd.Name)
}
