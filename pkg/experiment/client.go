// Package experiment is the tracking surface of the SDK: experiments and
// their runs in the metadata store, lineage projection into rows, and the
// process-wide tracker. Runs come in two encodings, a context node for runs
// created here and an execution plus metrics artifact for runs written by
// older clients; reads see both, new-encoding-only writes reject the latter.
package experiment

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/tensorboard"
)

const (
	// fanOutLimit bounds the worker pool used when one call needs several
	// RPCs in flight.
	fanOutLimit = 10

	waitAttempts = 10
	waitDelay    = time.Second
)

type Client struct {
	nodes       *node.Nodes
	registry    *metadata.SchemaRegistry
	tensorboard tensorboard.Service
}

func NewClient(nodes *node.Nodes, registry *metadata.SchemaRegistry, tensorboard tensorboard.Service) *Client {
	return &Client{
		nodes:       nodes,
		registry:    registry,
		tensorboard: tensorboard,
	}
}

func (c *Client) Nodes() *node.Nodes {
	return c.nodes
}

// GetOrWaitForContext polls for a context that appears asynchronously, such
// as the one a pipeline job writes after submission.
func (c *Client) GetOrWaitForContext(ctx context.Context, idOrName string) (*node.Context, error) {
	var out *node.Context
	err := retry.Do(func() error {
		found, err := c.nodes.GetContext(ctx, idOrName)
		if err != nil {
			return err
		}
		out = found
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(waitAttempts),
		retry.Delay(waitDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(metadata.IsNotFound),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retryOnTransientNotFound covers linking against a node whose creation is
// racing in a sibling worker and may not be visible yet.
func retryOnTransientNotFound(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(metadata.IsNotFound),
	)
}

func wrongSchema(name, want, got string) error {
	return errors.Wrapf(metadata.ErrWrongSchema, "%s has schema %s, want %s", name, got, want)
}
