package prompts

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/promptvault/pkg/query"
	"github.com/JaimeStill/promptvault/pkg/repository"
)

// Labels are read through to_jsonb so database/sql can scan the text[] column.
var projection = query.
	NewProjectionMap("public", "prompts", "p").
	Project("id", "ID").
	Project("project_id", "ProjectID").
	Project("name", "Name").
	Project("version", "Version").
	ProjectWith("labels", "Labels", "to_jsonb(%s)").
	Project("prompt", "Prompt").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{Field: "Version", Descending: true}

func scanPromptVersion(s repository.Scanner) (PromptVersion, error) {
	var (
		p      PromptVersion
		labels []byte
		prompt []byte
	)

	err := s.Scan(
		&p.ID,
		&p.ProjectID,
		&p.Name,
		&p.Version,
		&labels,
		&prompt,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(labels, &p.Labels); err != nil {
		return p, fmt.Errorf("decode labels: %w", err)
	}
	if p.Labels == nil {
		p.Labels = []string{}
	}
	p.Prompt = json.RawMessage(prompt)

	return p, nil
}

func scanDependency(s repository.Scanner) (Dependency, error) {
	var (
		d       Dependency
		version sql.NullInt64
		label   sql.NullString
	)

	if err := s.Scan(&d.ParentName, &d.ParentVersion, &d.ChildName, &version, &label); err != nil {
		return d, err
	}

	if version.Valid {
		v := int(version.Int64)
		d.ChildVersion = &v
	}
	if label.Valid {
		l := label.String
		d.ChildLabel = &l
	}

	return d, nil
}

// Filters narrows a prompt version listing.
type Filters struct {
	Name  *string `json:"name,omitempty"`
	Label *string `json:"label,omitempty"`
}

// FiltersFromQuery extracts listing filters from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	if l := values.Get("label"); l != "" {
		f.Label = &l
	}

	return f
}

// Apply adds the filter conditions to b.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Name", f.Name).
		WhereAny("Labels", f.Label)
}
