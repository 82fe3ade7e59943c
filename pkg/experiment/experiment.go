package experiment

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/tensorboard"
)

// Experiment is a context node with schema system.Experiment.
type Experiment struct {
	client  *Client
	context *node.Context
}

func shortID(name string) string {
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}

// GetExperiment resolves an experiment by id or full name. Contexts carrying
// a different schema title fail with WrongSchema; soft-deleted experiments
// read as absent.
func (c *Client) GetExperiment(ctx context.Context, idOrName string) (*Experiment, error) {
	found, err := c.nodes.GetContext(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if found.SchemaTitle() != schema.TitleExperiment {
		return nil, wrongSchema(found.Name(), schema.TitleExperiment, found.SchemaTitle())
	}
	if deleted, _ := found.Metadata()[schema.KeyExperimentDeleted].(bool); deleted {
		return nil, errors.Wrapf(metadata.ErrNotFound, "experiment %s is deleted", found.Name())
	}
	return &Experiment{client: c, context: found}, nil
}

// GetOrCreateExperiment is the idempotent constructor behind set_experiment.
func (c *Client) GetOrCreateExperiment(ctx context.Context, id, description string) (*Experiment, error) {
	if err := c.registry.Ensure(ctx, schema.TitleExperiment, schema.DefaultVersion, metadata.SchemaTypeContext); err != nil {
		return nil, err
	}
	found, err := c.nodes.GetOrCreateContext(ctx, node.ContextSpec{
		ID:            id,
		SchemaTitle:   schema.TitleExperiment,
		SchemaVersion: schema.DefaultVersion,
		DisplayName:   id,
		Description:   description,
		Metadata: map[string]interface{}{
			schema.KeyExperimentDeleted: false,
		},
	})
	if err != nil {
		return nil, err
	}
	if found.SchemaTitle() != schema.TitleExperiment {
		return nil, wrongSchema(found.Name(), schema.TitleExperiment, found.SchemaTitle())
	}
	return &Experiment{client: c, context: found}, nil
}

func (e *Experiment) Name() string {
	return e.context.Name()
}

// ID is the short experiment id, the last segment of the context name.
func (e *Experiment) ID() string {
	return shortID(e.context.Name())
}

func (e *Experiment) DisplayName() string {
	return e.context.DisplayName()
}

// BackingTensorboard is the tensorboard instance runs inherit, or empty.
func (e *Experiment) BackingTensorboard() string {
	backing, _ := e.context.Metadata()[schema.KeyBackingTensorboard].(string)
	return backing
}

// AssignBackingTensorboard binds the experiment to a tensorboard instance and
// bootstraps the matching tensorboard experiment. A different existing
// binding is refused.
func (e *Experiment) AssignBackingTensorboard(ctx context.Context, tensorboardResource string) error {
	existing := e.BackingTensorboard()
	if existing != "" && existing != tensorboardResource {
		return errors.Wrapf(metadata.ErrAlreadyExists,
			"experiment %s is already backed by %s", e.Name(), existing)
	}

	if _, err := e.ensureTensorboardExperiment(ctx, tensorboardResource); err != nil {
		return err
	}
	if existing == tensorboardResource {
		return nil
	}
	return e.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{
			schema.KeyBackingTensorboard: tensorboardResource,
		},
	})
}

func (e *Experiment) ensureTensorboardExperiment(ctx context.Context, tensorboardResource string) (string, error) {
	name := tensorboardResource + "/experiments/" + e.ID()
	existing, err := tensorboard.GetExperimentOrNull(ctx, e.client.tensorboard, name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Name, nil
	}
	created, err := e.client.tensorboard.CreateExperiment(ctx, tensorboardResource, e.ID(), &tensorboard.Experiment{
		DisplayName: e.DisplayName(),
	})
	if metadata.IsAlreadyExists(err) {
		return name, nil
	}
	if err != nil {
		return "", err
	}
	return created.Name, nil
}

// Delete marks the experiment deleted and removes the context. The marker
// lands first so cached handles observe the tombstone.
func (e *Experiment) Delete(ctx context.Context) error {
	err := e.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{
			schema.KeyExperimentDeleted: true,
		},
	})
	if err != nil {
		return err
	}
	return e.context.Delete(ctx)
}
