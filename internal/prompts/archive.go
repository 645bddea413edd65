package prompts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/promptvault/pkg/storage"
)

// Archiver copies deleted prompt versions to blob storage.
type Archiver struct {
	store storage.System
}

// NewArchiver returns an archiver writing to store. A nil store disables archiving.
func NewArchiver(store storage.System) *Archiver {
	return &Archiver{store: store}
}

// Enabled reports whether deleted versions are archived.
func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// ArchiveKey is the blob key for a deleted version.
func ArchiveKey(p PromptVersion) string {
	return fmt.Sprintf("%s/%s/v%d-%s.json", p.ProjectID, p.Name, p.Version, p.ID)
}

// Archive uploads every version and reports how many uploads failed along
// with the first failure.
func (a *Archiver) Archive(ctx context.Context, versions []PromptVersion) (int, error) {
	if !a.Enabled() {
		return 0, nil
	}

	failures := make([]error, len(versions))
	var g errgroup.Group
	g.SetLimit(4)

	for i, p := range versions {
		g.Go(func() error {
			data, err := json.Marshal(p)
			if err != nil {
				failures[i] = err
				return nil
			}

			if err := a.store.Upload(ctx, ArchiveKey(p), bytes.NewReader(data), "application/json"); err != nil {
				failures[i] = fmt.Errorf("archive %s: %w", ArchiveKey(p), err)
			}
			return nil
		})
	}
	g.Wait()

	var (
		count int
		first error
	)
	for _, err := range failures {
		if err == nil {
			continue
		}
		count++
		if first == nil {
			first = err
		}
	}

	return count, first
}
