package prompts

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// LatestLabelReassigner moves the latest label to the highest surviving
// version after a partial deletion removes the version that carried it.
type LatestLabelReassigner struct{}

// Reassign returns the version that received the latest label, or nil when
// no deleted version carried it or no versions remain.
func (LatestLabelReassigner) Reassign(
	ctx context.Context,
	tx Tx,
	projectID, name string,
	deleted []PromptVersion,
) (*PromptVersion, error) {
	hadLatest := slices.ContainsFunc(deleted, func(p PromptVersion) bool {
		return p.HasLabel(LatestLabel)
	})
	if !hadLatest {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(deleted))
	for i, p := range deleted {
		ids[i] = p.ID
	}

	next, err := tx.HighestVersion(ctx, projectID, name, ids)
	if err != nil || next == nil {
		return nil, err
	}

	if err := tx.AddLabel(ctx, next.ID, LatestLabel); err != nil {
		return nil, err
	}

	if !next.HasLabel(LatestLabel) {
		next.Labels = append(next.Labels, LatestLabel)
	}

	return next, nil
}
