package prompts

import (
	"context"

	"github.com/JaimeStill/promptvault/pkg/pagination"
)

// System defines the public contract for prompt domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		projectID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[PromptVersion], error)

	// Find resolves one version. Reads never wait on the mutation lock.
	Find(ctx context.Context, q FindQuery) (*PromptVersion, error)

	// Delete removes the versions selected by cmd under the name's mutation
	// lock. The result is a FullDeletion or a PartialDeletion by cmd.Mode().
	Delete(ctx context.Context, cmd DeleteCommand) (DeleteResult, error)
}
