package prompts

import "context"

// DependencyGraphChecker finds dependency edges that would dangle if the
// candidates were deleted.
type DependencyGraphChecker struct{}

// Check returns the conflicting edges for the candidates of a deletion.
//
// A full deletion conflicts with any edge naming the prompt. A partial
// deletion conflicts with edges targeting one of the candidate versions, or
// one of the labels the candidates carry.
func (DependencyGraphChecker) Check(
	ctx context.Context,
	tx Tx,
	mode Mode,
	projectID, name string,
	candidates []PromptVersion,
) ([]Dependency, error) {
	if mode == ModeFull {
		return tx.DependentsOfName(ctx, projectID, name)
	}

	versions := make([]int, len(candidates))
	for i, c := range candidates {
		versions[i] = c.Version
	}

	return tx.DependentsOfTargets(ctx, projectID, name, versions, unionLabels(candidates))
}
