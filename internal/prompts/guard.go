package prompts

import (
	"context"
	"slices"
)

// ProtectedLabelGuard rejects deletions touching labels the project protects.
// The protected set is the configured baseline joined with the labels the
// project stores as protected.
type ProtectedLabelGuard struct {
	baseline []string
}

// NewProtectedLabelGuard returns a guard that always treats baseline labels as protected.
func NewProtectedLabelGuard(baseline []string) *ProtectedLabelGuard {
	return &ProtectedLabelGuard{baseline: slices.Clone(baseline)}
}

// GuardResult reports the protected labels found among the checked labels.
type GuardResult struct {
	Blocked   bool
	Offending []string
}

// Check tests labels against the protected set. Offending labels keep the
// order of labels with duplicates removed.
func (g *ProtectedLabelGuard) Check(ctx context.Context, tx Tx, projectID string, labels []string) (GuardResult, error) {
	stored, err := tx.ProtectedLabels(ctx, projectID)
	if err != nil {
		return GuardResult{}, err
	}

	protected := make(map[string]struct{}, len(g.baseline)+len(stored))
	for _, l := range g.baseline {
		protected[l] = struct{}{}
	}
	for _, l := range stored {
		protected[l] = struct{}{}
	}

	var result GuardResult
	seen := make(map[string]struct{})
	for _, l := range labels {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}

		if _, ok := protected[l]; ok {
			result.Offending = append(result.Offending, l)
		}
	}
	result.Blocked = len(result.Offending) > 0

	return result, nil
}

// unionLabels returns the distinct labels across versions in first-seen order.
func unionLabels(versions []PromptVersion) []string {
	seen := make(map[string]struct{})
	var labels []string

	for _, v := range versions {
		for _, l := range v.Labels {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}

	return labels
}
