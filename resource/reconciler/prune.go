package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/func/seeder/journal"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// prune deletes seeded remote items that are no longer declared, in reverse
// plan order.
func (r *run) prune(ctx context.Context, plan []*resource.Kind) {
	for i := len(plan) - 1; i >= 0; i-- {
		kind := plan[i]
		if !r.Prune[kind.Name] {
			continue
		}
		logger := r.Logger.With(zap.String("kind", kind.Name))

		if err := r.stopped(ctx); err != nil {
			r.Journal.Note(fmt.Sprintf("pruning %s skipped: run was stopped", kind.Name))
			continue
		}
		pruner, ok := kind.Pruner()
		if !ok {
			r.Journal.Note(fmt.Sprintf("pruning %s skipped: kind does not support pruning", kind.Name))
			continue
		}
		if r.kindFailed(kind.Name) {
			r.Journal.Note(fmt.Sprintf("pruning %s skipped: not every item succeeded", kind.Name))
			continue
		}

		keep := make(map[string]bool)
		for _, it := range r.desired[kind.Name] {
			if id, ok := r.refs.Get(kind.Name, it.Key()); ok {
				keep[id] = true
			}
		}

		logger.Debug("Prune")
		lctx, tracker := retry.WithTracker(context.WithoutCancel(ctx))
		remotes, err := pruner.ListSeeded(lctx)
		if err != nil {
			r.record(journal.Entry{
				Kind:     kind.Name,
				State:    journal.Failed,
				Class:    resource.ClassOf(err),
				Message:  message(errors.Wrap(err, "list")),
				Attempts: tracker.Attempts(),
			})
			continue
		}

		for _, remote := range remotes {
			if !remote.Seeded || keep[remote.ID] {
				continue
			}
			if err := r.stopped(ctx); err != nil {
				r.Journal.Note(fmt.Sprintf("pruning %s stopped", kind.Name))
				break
			}
			r.delete(context.WithoutCancel(ctx), kind, pruner, remote, logger)
		}
	}
}

func (r *run) delete(ctx context.Context, kind *resource.Kind, pruner resource.Pruner, remote *resource.Remote, logger *zap.Logger) {
	start := time.Now()
	ctx, tracker := retry.WithTracker(ctx)
	err := pruner.Delete(ctx, remote)

	entry := journal.Entry{
		Kind:     kind.Name,
		Key:      remote.Key,
		ID:       remote.ID,
		State:    journal.Deleted,
		Attempts: tracker.Attempts(),
		Duration: time.Since(start),
	}
	if err != nil {
		entry.State = journal.Failed
		entry.Class = resource.ClassOf(err)
		entry.Message = message(err)
		if entry.Class == resource.AuthInvalid {
			r.stop(err)
		}
		logger.Info(entry.State.String(), zap.String("id", remote.ID), zap.Error(err))
	} else {
		logger.Info(entry.State.String(), zap.String("id", remote.ID))
	}
	r.record(entry)
}
