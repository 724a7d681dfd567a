package reconciler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/func/seeder/internal/task"
	"github.com/func/seeder/journal"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default maximum number of items of a parallel kind
// reconciled at the same time.
var DefaultConcurrency = 4

// MaxConcurrency is the upper bound for Concurrency.
const MaxConcurrency = 32

// Services reports the availability of the services hosting kinds.
type Services interface {
	// Check prepares a service for use. It returns resource.ErrSkipped if
	// the service is optional and not available.
	Check(ctx context.Context, service string) error

	// Concurrent reports whether a service allows concurrent writes.
	Concurrent(service string) bool
}

// A Reconciler reconciles desired items with remote state.
//
// See package doc for details.
type Reconciler struct {
	Registry *resource.Registry

	// Services is consulted before a kind is reconciled. If not set, all
	// services are available and allow concurrent writes.
	Services Services

	// Concurrency sets the maximum fan-out within a parallel kind.
	// If not set, DefaultConcurrency is used.
	Concurrency uint

	// Prune lists the kinds for which pruning is enabled.
	Prune map[string]bool

	// Logger logs reconciliation updates. If not set, logs are discarded.
	Logger *zap.Logger
}

// Reconcile reconciles the desired items of every kind in the plan, in plan
// order. The outcome of every item is recorded in the returned journal.
//
// The returned error is only set if the reconciler is not configured
// correctly; remote failures are recorded in the journal.
func (r *Reconciler) Reconcile(ctx context.Context, plan []*resource.Kind, desired resource.Desired) (*journal.Journal, error) {
	if r.Registry == nil {
		return nil, errors.New("no registry set")
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := r.Concurrency
	if c == 0 {
		c = uint(DefaultConcurrency)
	}
	if c > MaxConcurrency {
		c = MaxConcurrency
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &run{
		Registry:    r.Registry,
		Services:    r.Services,
		Journal:     &journal.Journal{},
		Logger:      logger,
		Concurrency: int(c),
		Sem:         semaphore.NewWeighted(int64(c)),
		Prune:       r.Prune,
		desired:     desired,
		cancel:      cancel,
		failed:      make(map[string]bool),
	}

	logger.Info("Reconcile", zap.Int("kinds", len(plan)), zap.Int("items", desired.Len()))

	for _, kind := range plan {
		run.reconcileKind(runCtx, kind)
	}
	run.prune(runCtx, plan)

	summary := run.Journal.Summary()
	logger.Info(
		"Done",
		zap.Int("created", summary.Total(journal.Created)),
		zap.Int("updated", summary.Total(journal.Updated)),
		zap.Int("unchanged", summary.Total(journal.Unchanged)),
		zap.Int("deleted", summary.Total(journal.Deleted)),
		zap.Int("failed", summary.Total(journal.Failed)+summary.Total(journal.Conflict)+summary.Total(journal.PrecursorFailed)),
		zap.Int("skipped", summary.Total(journal.Skipped)),
	)

	return run.Journal, nil
}

type run struct {
	Registry    *resource.Registry
	Services    Services
	Journal     *journal.Journal
	Logger      *zap.Logger
	Concurrency int
	Sem         *semaphore.Weighted
	Prune       map[string]bool

	desired resource.Desired
	refs    refMap

	services task.Group[struct{}] // Service checks, once per service.
	lookups  task.Group[string]   // Remote lookups of undeclared parents.

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopErr  error
	failed   map[string]bool // Kinds with at least one item that did not succeed.
	declared map[string]map[string]bool
}

// stop prevents new items from being started.
func (r *run) stop(err error) {
	r.mu.Lock()
	if r.stopErr == nil {
		r.stopErr = err
		r.Logger.Info("Stopping", zap.Error(err))
	}
	r.mu.Unlock()
	r.cancel()
}

// stopped returns the reason no new items should be started, or nil.
func (r *run) stopped(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopErr != nil {
		return r.stopErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (r *run) markFailed(kind string) {
	r.mu.Lock()
	r.failed[kind] = true
	r.mu.Unlock()
}

func (r *run) kindFailed(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[kind]
}

// isDeclared reports whether an item with the key is part of the desired
// state.
func (r *run) isDeclared(kind string, key resource.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared == nil {
		r.declared = make(map[string]map[string]bool)
		for k, items := range r.desired {
			m := make(map[string]bool, len(items))
			for _, it := range items {
				m[strings.Join(it.Key(), "\x00")] = true
			}
			r.declared[k] = m
		}
	}
	return r.declared[kind][strings.Join(key, "\x00")]
}

func (r *run) record(e journal.Entry) {
	if !e.State.Success() {
		r.markFailed(e.Kind)
	}
	r.Journal.Record(e)
}

func (r *run) skipAll(kind *resource.Kind, items []*resource.Item, state journal.State, cause error) {
	for _, it := range items {
		r.record(journal.Entry{
			Kind:    kind.Name,
			Key:     it.Key(),
			Index:   it.Index,
			State:   state,
			Class:   resource.ClassOf(cause),
			Message: message(cause),
		})
	}
}

// checkService checks the service of a kind once per run.
func (r *run) checkService(ctx context.Context, kind *resource.Kind) error {
	if r.Services == nil || kind.Service == "" {
		return nil
	}
	_, err := r.services.Do(kind.Service, func() (struct{}, error) {
		err := r.Services.Check(ctx, kind.Service)
		switch {
		case err == nil:
		case errors.Is(err, resource.ErrSkipped):
			r.Logger.Info("Service skipped", zap.String("service", kind.Service))
			r.Journal.Note(fmt.Sprintf("optional service %s is not available", kind.Service))
		default:
			r.Logger.Error("Service unavailable", zap.String("service", kind.Service), zap.Error(err))
			r.Journal.Note(fmt.Sprintf("service %s: %s", kind.Service, message(err)))
		}
		return struct{}{}, err
	})
	return err
}

func (r *run) reconcileKind(ctx context.Context, kind *resource.Kind) {
	items := r.desired[kind.Name]
	if len(items) == 0 {
		return
	}
	logger := r.Logger.With(zap.String("kind", kind.Name))

	if err := r.stopped(ctx); err != nil {
		r.skipAll(kind, items, journal.Skipped, resource.Classify(resource.Canceled, err))
		return
	}

	if err := r.checkService(ctx, kind); err != nil {
		if errors.Is(err, resource.ErrSkipped) {
			logger.Info("Kind skipped", zap.Int("items", len(items)))
			r.markFailed(kind.Name)
			return
		}
		if resource.ClassOf(err) == resource.AuthInvalid {
			r.skipAll(kind, items, journal.Failed, err)
			r.stop(err)
			return
		}
		r.skipAll(kind, items, journal.PrecursorFailed, err)
		return
	}

	parallel := kind.Parallel && r.Concurrency > 1
	if parallel && r.Services != nil {
		parallel = r.Services.Concurrent(kind.Service)
	}
	logger.Debug("Reconcile kind", zap.Int("items", len(items)), zap.Bool("parallel", parallel))

	if !parallel {
		for _, it := range items {
			if err := r.stopped(ctx); err != nil {
				r.skipAll(kind, []*resource.Item{it}, journal.Skipped, resource.Classify(resource.Canceled, err))
				continue
			}
			r.reconcileItem(context.WithoutCancel(ctx), it)
		}
		return
	}

	var g errgroup.Group
	for _, it := range items {
		it := it
		if err := r.stopped(ctx); err != nil {
			r.skipAll(kind, []*resource.Item{it}, journal.Skipped, resource.Classify(resource.Canceled, err))
			continue
		}
		if err := r.Sem.Acquire(ctx, 1); err != nil {
			r.skipAll(kind, []*resource.Item{it}, journal.Skipped, resource.Classify(resource.Canceled, err))
			continue
		}
		g.Go(func() error {
			defer r.Sem.Release(1)
			// Items scheduled before a stop are still started.
			r.reconcileItem(context.WithoutCancel(ctx), it)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *run) reconcileItem(ctx context.Context, item *resource.Item) {
	start := time.Now()
	logger := r.Logger.With(zap.String("kind", item.Kind.Name), zap.Stringer("key", item.Key()))
	ctx, tracker := retry.WithTracker(ctx)

	state, remote, delta, err := r.upsert(ctx, item, logger)

	entry := journal.Entry{
		Kind:     item.Kind.Name,
		Key:      item.Key(),
		Index:    item.Index,
		State:    state,
		Attempts: tracker.Attempts(),
		Duration: time.Since(start),
	}
	if remote != nil {
		entry.ID = remote.ID
	}
	if state == journal.Updated || state == journal.Conflict {
		entry.Changes = delta.Fields()
	}

	if err == nil && remote != nil {
		if perr := r.refs.Put(item.Kind.Name, item.Key(), remote.ID); perr != nil {
			state, err = journal.Failed, perr
			entry.State = state
		}
	}

	if err != nil {
		entry.Class = resource.ClassOf(err)
		entry.Message = message(err)
		if entry.Class == resource.AuthInvalid {
			r.stop(err)
		}
		logger.Info(state.String(), zap.Error(err), zap.Int("attempts", entry.Attempts))
	} else {
		logger.Info(state.String(), zap.String("id", entry.ID), zap.Int("attempts", entry.Attempts))
	}

	r.record(entry)
}

// upsert locates the item and creates or updates it as needed.
func (r *run) upsert(ctx context.Context, item *resource.Item, logger *zap.Logger) (journal.State, *resource.Remote, resource.Delta, error) {
	ids, err := r.resolve(ctx, item)
	if err != nil {
		logger.Debug("Unresolved reference", zap.Error(err))
		return journal.PrecursorFailed, nil, nil, err
	}
	item = item.WithIDs(ids)
	driver := item.Kind.Driver

	logger.Debug(journal.Locating.String())
	remote, err := driver.Find(ctx, item)
	if err != nil {
		return journal.Failed, nil, nil, errors.Wrap(err, "find")
	}

	if remote == nil {
		logger.Debug(journal.Creating.String())
		created, cerr := driver.Create(ctx, item)
		if cerr == nil {
			return journal.Created, created, nil, nil
		}
		if !retry.IsStatus(cerr, http.StatusConflict) {
			return journal.Failed, nil, nil, errors.Wrap(cerr, "create")
		}

		// The item exists. If an earlier attempt created it, the create
		// succeeded; otherwise it was created concurrently and is diffed.
		logger.Debug("Create conflict, locating again", zap.Error(cerr))
		found, ferr := driver.Find(ctx, item)
		if ferr != nil || found == nil {
			return journal.Failed, nil, nil, errors.Wrap(cerr, "create")
		}
		if resource.AttemptsOf(cerr) > 1 {
			return journal.Created, found, nil, nil
		}
		remote = found
	}

	logger.Debug(journal.Diffing.String(), zap.String("id", remote.ID))
	delta := resource.Diff(item, remote)
	if delta.Empty() {
		return journal.Unchanged, remote, nil, nil
	}
	if imm := delta.Immutable(); len(imm) > 0 {
		err := resource.Errorf(resource.Conflict, "immutable field(s) changed: %s", strings.Join(imm, ", "))
		return journal.Conflict, remote, delta, err
	}

	logger.Debug(journal.Updating.String(), zap.Strings("fields", delta.Fields()))
	updated, err := driver.Update(ctx, remote, delta, item)
	if err != nil {
		return journal.Failed, remote, delta, errors.Wrap(err, "update")
	}
	if updated == nil {
		updated = remote
	}
	return journal.Updated, updated, delta, nil
}

// resolve returns the identifier of every reference of the item.
func (r *run) resolve(ctx context.Context, item *resource.Item) (map[string]string, error) {
	refs := item.Refs()
	if len(refs) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(refs))
	for f := range refs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	ids := make(map[string]string, len(refs))
	for _, name := range fields {
		key := refs[name]
		target := item.Kind.Field(name).Ref.Kind

		if id, ok := r.refs.Get(target, key); ok {
			ids[name] = id
			continue
		}
		if r.isDeclared(target, key) {
			return nil, &resource.Error{
				Class: resource.UnresolvableReference,
				Err:   errors.Errorf("%s %s was not reconciled", target, resource.FormatRef(key)),
			}
		}
		id, err := r.lookup(ctx, target, key)
		if err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

// lookup finds an undeclared item remotely. Lookups are performed once per
// key.
func (r *run) lookup(ctx context.Context, kindName string, key resource.Key) (string, error) {
	return r.lookups.Do(refKey(kindName, key), func() (string, error) {
		kind := r.Registry.Kind(kindName)
		if kind == nil {
			return "", resource.Errorf(resource.UnknownKind, "unknown kind %q", kindName)
		}
		if err := r.checkService(ctx, kind); err != nil {
			return "", &resource.Error{
				Class: resource.UnresolvableReference,
				Err:   errors.Wrapf(err, "%s %s cannot be looked up", kindName, resource.FormatRef(key)),
			}
		}

		item, err := r.Registry.KeyItem(kindName, key)
		if err != nil {
			return "", err
		}
		ids, err := r.resolve(ctx, item)
		if err != nil {
			return "", err
		}
		item = item.WithIDs(ids)

		r.Logger.Debug("Lookup", zap.String("kind", kindName), zap.Stringer("key", key))
		remote, err := kind.Driver.Find(ctx, item)
		if err != nil {
			return "", errors.Wrapf(err, "find %s %s", kindName, resource.FormatRef(key))
		}
		if remote == nil {
			return "", resource.Errorf(resource.UnresolvableReference, "%s %s does not exist", kindName, resource.FormatRef(key))
		}
		if err := r.refs.Put(kindName, key, remote.ID); err != nil {
			return "", err
		}
		return remote.ID, nil
	})
}

// message returns a human readable message for an error.
func message(err error) string {
	if err == nil {
		return ""
	}
	if _, _, ok := retry.StatusCode(err); ok {
		return retry.Message(err)
	}
	var e *resource.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
