// Package reconciler reconciles desired items with remote services.
//
// Steps
//
// The reconciliation process consists at a high level of 2 steps:
//
//   1. Create or Update items
//
//      Kinds are processed in dependency order, one kind at a time. Each
//      item is located by its natural key.
//
//        - When no remote item exists, it is created.
//
//        - When a remote item exists and all declared fields match, the item
//          is unchanged.
//
//        - When a declared field differs, the remote item is updated with the
//          changed fields only. If a changed field is immutable, the item is
//          recorded as a conflict instead.
//
//      The identifier of every reconciled item is remembered, so that items
//      of later kinds can refer to it. References to items that are not
//      declared are looked up remotely. An item whose declared parent failed
//      is recorded as PrecursorFailed without any remote call.
//
//   2. Prune items
//
//      Only for kinds where pruning was enabled, in reverse dependency order.
//      Remote items carrying the seeder's marker that are not declared are
//      deleted. Pruning a kind is skipped unless every item of it succeeded.
//
// Concurrency
//
// Items of a kind are reconciled in declaration order. Kinds declared as
// parallel, hosted by a service that allows concurrent writes, are fanned out
// to a bounded number of workers instead.
//
// Cancellation
//
// When the context is cancelled or an item fails authentication, no new items
// are started and items not yet started are recorded as Skipped. Items in
// flight finish on a detached context; every remote call keeps its own
// timeout.
package reconciler
