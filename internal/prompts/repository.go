package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/promptvault/internal/metrics"
	"github.com/JaimeStill/promptvault/pkg/cache"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/pagination"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

// postCommitTimeout bounds cache invalidation and archiving after a deletion commits.
const postCommitTimeout = 10 * time.Second

// Options configures the deletion engine.
type Options struct {
	// ProtectedLabels are protected in every project in addition to the
	// labels each project stores.
	ProtectedLabels []string
	Lock            lock.Policy
	// Archive receives deleted versions. Nil disables archiving.
	Archive storage.System
}

type repo struct {
	store       Store
	locks       *LockCoordinator
	invalidator *CacheInvalidator
	archiver    *Archiver
	deletion    *DeletionTransaction
	logger      *slog.Logger
	pagination  pagination.Config
}

// New creates the prompt system implementing the System interface.
func New(
	store Store,
	locks lock.Manager,
	c cache.System,
	opts Options,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	logger = logger.With("system", "prompts")

	return &repo{
		store:       store,
		locks:       NewLockCoordinator(locks, opts.Lock, logger),
		invalidator: NewCacheInvalidator(c),
		archiver:    NewArchiver(opts.Archive),
		deletion:    NewDeletionTransaction(NewProtectedLabelGuard(opts.ProtectedLabels)),
		logger:      logger,
		pagination:  pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	projectID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[PromptVersion], error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", ErrInvalidInput)
	}

	page.Normalize(r.pagination)

	result, err := r.store.List(ctx, projectID, page, filters)
	if err != nil {
		return nil, storeFailure("list prompts", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, q FindQuery) (*PromptVersion, error) {
	if q.ProjectID == "" || q.Name == "" {
		return nil, fmt.Errorf("%w: project id and prompt name required", ErrInvalidInput)
	}
	if q.Version != nil && *q.Version < 1 {
		return nil, fmt.Errorf("%w: version must be positive", ErrInvalidInput)
	}

	// While a mutation holds the name, reads skip the cache entirely.
	held, err := r.locks.Held(ctx, q.ProjectID, q.Name)
	if err != nil {
		r.logger.Warn("lock state unavailable, bypassing cache", "name", q.Name, "error", err)
		held = true
	}
	cacheable := !held

	var gen int64
	if cacheable {
		p, ok, err := r.invalidator.get(ctx, q)
		if err != nil {
			r.logger.Warn("cache read failed", "name", q.Name, "error", err)
		} else if ok {
			return p, nil
		}

		// Read before the store: an invalidation landing between the store
		// read and the put advances it and the put is refused.
		if gen, err = r.invalidator.generation(ctx, q.ProjectID, q.Name); err != nil {
			r.logger.Warn("cache generation unavailable", "name", q.Name, "error", err)
			cacheable = false
		}
	}

	p, err := r.store.Find(ctx, q)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, storeFailure("find prompt", err)
	}

	if cacheable {
		stored, err := r.invalidator.put(ctx, q, gen, p)
		switch {
		case err != nil:
			r.logger.Warn("cache write failed", "name", q.Name, "error", err)
		case !stored:
			r.logger.Debug("cache write skipped, name invalidated during read", "name", q.Name)
		}
	}

	return p, nil
}

func (r *repo) Delete(ctx context.Context, cmd DeleteCommand) (result DeleteResult, err error) {
	mode := cmd.Mode()
	defer func() {
		metrics.RecordDeletion(string(mode), Outcome(err))
	}()

	if err = cmd.Validate(); err != nil {
		return nil, err
	}

	logger := r.logger.With("project_id", cmd.ProjectID, "name", cmd.Name, "mode", mode)

	lease, err := r.locks.Acquire(ctx, cmd.ProjectID, cmd.Name)
	if err != nil {
		return nil, err
	}
	defer r.locks.Release(lease)

	held, stop := r.locks.Hold(ctx, lease)
	defer stop()

	var deletion *Deletion
	err = r.store.InTx(held, func(tx Tx) error {
		var runErr error
		deletion, runErr = r.deletion.Run(held, tx, cmd)
		return runErr
	})

	if err != nil {
		if cause := leaseLost(held); cause != nil {
			err = lockUnavailable(cmd.Name, cause)
		} else if !isDomainError(err) {
			err = storeFailure("transaction", err)
		}

		state := StateSelecting
		if deletion != nil {
			state = deletion.State
		}
		logFailure(logger, state, err)

		return nil, err
	}

	deletion.State = StateCommitted
	logger.Info("prompt deleted", "state", deletion.State, "deleted", len(deletion.Deleted))

	if deletion.NewLatest != nil {
		logger.Info("latest label reassigned",
			"id", deletion.NewLatest.ID,
			"version", deletion.NewLatest.Version,
		)
	}

	r.afterCommit(ctx, logger, cmd, deletion.Deleted)

	return deletion.Result, nil
}

// afterCommit invalidates the name's cached reads and archives the deleted
// versions. Failures here are logged and counted; the deletion stands.
func (r *repo) afterCommit(ctx context.Context, logger *slog.Logger, cmd DeleteCommand, deleted []PromptVersion) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	var g errgroup.Group

	g.Go(func() error {
		n, err := r.invalidator.Invalidate(ctx, cmd.ProjectID, cmd.Name)
		if err != nil {
			metrics.CacheInvalidationFailures.Inc()
			logger.Error("cache invalidation failed", "error", err)
			return err
		}
		logger.Debug("cache invalidated", "entries", n)
		return nil
	})

	if r.archiver.Enabled() {
		g.Go(func() error {
			failed, err := r.archiver.Archive(ctx, deleted)
			if err != nil {
				metrics.ArchiveFailures.Add(float64(failed))
				logger.Error("archive failed", "failed", failed, "total", len(deleted), "error", err)
				return err
			}
			logger.Debug("deleted versions archived", "count", len(deleted))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("post-commit steps incomplete", "error", err)
	}
}

func logFailure(logger *slog.Logger, state State, err error) {
	switch Outcome(err) {
	case "store_failure":
		logger.Error("prompt deletion failed", "state", state, "error", err)
	case "lock_unavailable":
		logger.Warn("prompt deletion lock contention", "state", state, "error", err)
	default:
		logger.Info("prompt deletion rejected", "state", state, "outcome", Outcome(err), "error", err)
	}
}
