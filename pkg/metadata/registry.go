package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// SchemaRegistry lazily soft-creates metadata schemas in the target store the
// first time a node of that schema is written. Creation is idempotent; a
// racing create by another client is not an error.
type SchemaRegistry struct {
	store SchemaStore
	scope Scope

	mu      sync.Mutex
	ensured map[string]bool
}

func NewSchemaRegistry(store SchemaStore, scope Scope) *SchemaRegistry {
	return &SchemaRegistry{
		store:   store,
		scope:   scope,
		ensured: make(map[string]bool),
	}
}

// schemaID derives the store-local schema id from a title, e.g.
// system.ExperimentRun -> system-experimentrun.
func schemaID(title string) string {
	return strings.ToLower(strings.NewReplacer(".", "-", "_", "-").Replace(title))
}

// schemaBody renders the minimal schema document the service accepts.
// Readers never depend on the body; typed projection happens client-side.
func schemaBody(title string) string {
	return fmt.Sprintf("title: %s\ntype: object\nproperties: {}\n", title)
}

// Ensure registers (title, version) in the store if this process has not done
// so already. AlreadyExists answers are swallowed.
func (r *SchemaRegistry) Ensure(ctx context.Context, title, version string, schemaType SchemaType) error {
	key := fmt.Sprintf("%s/%s@%s", r.scope.Parent(), title, version)

	r.mu.Lock()
	done := r.ensured[key]
	r.mu.Unlock()
	if done {
		return nil
	}

	id := schemaID(title)
	name, err := r.scope.FullName(NounMetadataSchemas, id)
	if err != nil {
		return err
	}

	existing, err := r.store.GetMetadataSchema(ctx, name)
	if err != nil && !IsNotFound(err) {
		return err
	}
	if existing == nil {
		_, err = r.store.CreateMetadataSchema(ctx, r.scope.Parent(), id, &MetadataSchema{
			SchemaVersion: version,
			Schema:        schemaBody(title),
			SchemaType:    schemaType,
		})
		if IsAlreadyExists(err) {
			log.Debugf("schema %s already registered by another client", title)
			err = nil
		}
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.ensured[key] = true
	r.mu.Unlock()
	return nil
}
