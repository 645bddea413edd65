// Package prompts implements versioned prompt storage for promptvault.
// It provides the prompt read path and the deletion engine that removes
// one, several, or all versions of a prompt name while keeping protected
// labels, dependency edges, and the latest label consistent.
package prompts

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Distinguished labels.
const (
	// LatestLabel marks the single current version of a prompt name.
	LatestLabel = "latest"
	// ProductionLabel is resolved when a read names neither version nor label.
	ProductionLabel = "production"
)

// PromptVersion is one immutable revision of a prompt.
type PromptVersion struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Labels    []string        `json:"labels"`
	Prompt    json.RawMessage `json:"prompt"`
	CreatedAt time.Time       `json:"created_at"`
}

// HasLabel reports whether the version carries label.
func (p PromptVersion) HasLabel(label string) bool {
	return slices.Contains(p.Labels, label)
}

// Dependency is an edge from a parent prompt version to a child prompt
// referenced either by exact version or by label.
type Dependency struct {
	ParentName    string  `json:"parent_name"`
	ParentVersion int     `json:"parent_version"`
	ChildName     string  `json:"child_name"`
	ChildVersion  *int    `json:"child_version,omitempty"`
	ChildLabel    *string `json:"child_label,omitempty"`
}

// Target renders the child reference as "v<version>" or the label.
func (d Dependency) Target() string {
	if d.ChildVersion != nil {
		return fmt.Sprintf("v%d", *d.ChildVersion)
	}
	if d.ChildLabel != nil {
		return *d.ChildLabel
	}
	return ""
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s v%d depends on %s %s", d.ParentName, d.ParentVersion, d.ChildName, d.Target())
}

// Mode distinguishes deleting every version of a name from deleting a subset.
type Mode string

const (
	ModeFull    Mode = "full"
	ModePartial Mode = "partial"
)

func (m Mode) subject() string {
	if m == ModeFull {
		return "prompt"
	}
	return "prompt version"
}

// DeleteCommand selects the versions of a prompt name to delete.
//
// No version and no label deletes every version. Version with label deletes
// the single version carrying that label. Label alone deletes every version
// carrying it. Version without label is rejected.
type DeleteCommand struct {
	ProjectID string  `json:"project_id"`
	Name      string  `json:"name"`
	Version   *int    `json:"version,omitempty"`
	Label     *string `json:"label,omitempty"`
}

// Mode returns ModeFull when neither version nor label is set.
func (c DeleteCommand) Mode() Mode {
	if c.Version == nil && c.Label == nil {
		return ModeFull
	}
	return ModePartial
}

// Validate rejects selectors the deletion engine never accepts.
func (c DeleteCommand) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("%w: project id required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: prompt name required", ErrInvalidInput)
	}
	if c.Version != nil && c.Label == nil {
		return fmt.Errorf("%w: cannot specify version without a label for deletion", ErrInvalidInput)
	}
	if c.Version != nil && *c.Version < 1 {
		return fmt.Errorf("%w: version must be positive", ErrInvalidInput)
	}
	if c.Label != nil && strings.TrimSpace(*c.Label) == "" {
		return fmt.Errorf("%w: label must not be empty", ErrInvalidInput)
	}
	return nil
}

// DeleteResult is either a FullDeletion or a PartialDeletion.
type DeleteResult interface {
	Mode() Mode
	Message() string
}

// FullDeletion reports how many versions were removed for a name.
type FullDeletion struct {
	PromptName string `json:"prompt_name"`
	Count      int    `json:"count"`
}

func (FullDeletion) Mode() Mode { return ModeFull }

func (r FullDeletion) Message() string {
	return fmt.Sprintf("Successfully deleted all versions of prompt '%s'", r.PromptName)
}

// PartialDeletion lists the ids of the removed versions in version order.
type PartialDeletion struct {
	DeletedIDs []uuid.UUID `json:"deleted_ids"`
}

func (PartialDeletion) Mode() Mode { return ModePartial }

func (r PartialDeletion) Message() string {
	ids := make([]string, len(r.DeletedIDs))
	for i, id := range r.DeletedIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("Successfully deleted prompt version(s) with ID(s): %s.", strings.Join(ids, ", "))
}

// FindQuery resolves a single prompt version by version, or by label when
// no version is given. An empty label resolves ProductionLabel.
type FindQuery struct {
	ProjectID string
	Name      string
	Version   *int
	Label     *string
}

// Resolve returns the label the query searches when Version is nil.
func (q FindQuery) Resolve() string {
	if q.Label == nil || *q.Label == "" {
		return ProductionLabel
	}
	return *q.Label
}
