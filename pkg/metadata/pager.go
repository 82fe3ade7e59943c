package metadata

import "context"

// PageFunc fetches one page for the given token and returns the items plus
// the token of the next page, empty when exhausted.
type PageFunc[T any] func(ctx context.Context, pageToken string) ([]T, string, error)

// Pager walks a paginated list lazily, one page per Next call.
type Pager[T any] struct {
	fetch PageFunc[T]
	token string
	done  bool
}

func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch}
}

// Next returns the next page of items, or (nil, nil) once exhausted.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	items, next, err := p.fetch(ctx, p.token)
	if err != nil {
		return nil, err
	}
	p.token = next
	if next == "" {
		p.done = true
	}
	return items, nil
}

// All materializes the remaining pages.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// ListAllArtifacts materializes every artifact under parent matching opts.
func ListAllArtifacts(ctx context.Context, store ArtifactStore, parent string, opts ListOptions) ([]*Artifact, error) {
	return NewPager(func(ctx context.Context, token string) ([]*Artifact, string, error) {
		o := opts
		o.PageToken = token
		return store.ListArtifacts(ctx, parent, o)
	}).All(ctx)
}

func ListAllExecutions(ctx context.Context, store ExecutionStore, parent string, opts ListOptions) ([]*Execution, error) {
	return NewPager(func(ctx context.Context, token string) ([]*Execution, string, error) {
		o := opts
		o.PageToken = token
		return store.ListExecutions(ctx, parent, o)
	}).All(ctx)
}

func ListAllContexts(ctx context.Context, store ContextStore, parent string, opts ListOptions) ([]*Context, error) {
	return NewPager(func(ctx context.Context, token string) ([]*Context, string, error) {
		o := opts
		o.PageToken = token
		return store.ListContexts(ctx, parent, o)
	}).All(ctx)
}
