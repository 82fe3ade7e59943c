// Package node is the typed handle layer over the metadata store. Handles
// cache a snapshot of the remote node; writes are idempotent get-or-create
// or optimistic-concurrency merge updates.
package node

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

const (
	conflictAttempts = 5
	conflictBackoff  = 100 * time.Millisecond
)

type Nodes struct {
	store metadata.Store
	scope metadata.Scope
}

func New(store metadata.Store, scope metadata.Scope) *Nodes {
	return &Nodes{
		store: store,
		scope: scope,
	}
}

func (n *Nodes) Store() metadata.Store {
	return n.store
}

func (n *Nodes) Scope() metadata.Scope {
	return n.scope
}

// retryOnConflict re-runs fn while it reports a version conflict. fn is
// responsible for refreshing its snapshot before returning the conflict so
// the next attempt applies the same patch on fresh state.
func retryOnConflict(ctx context.Context, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(conflictAttempts),
		retry.Delay(conflictBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(metadata.IsConflict),
	)
	if metadata.IsConflict(err) {
		return errors.Wrap(metadata.ErrConflictExceeded, err.Error())
	}
	return err
}

// retryOnCreateRace covers the get-or-create race: a concurrent client may
// create the node between our miss and our create. One fallback get suffices.
func retryOnCreateRace(fn func() error) error {
	err := fn()
	if metadata.IsAlreadyExists(err) {
		err = fn()
	}
	return err
}

func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
