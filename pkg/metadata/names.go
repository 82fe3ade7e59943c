package metadata

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	NounArtifacts       = "artifacts"
	NounContexts        = "contexts"
	NounExecutions      = "executions"
	NounMetadataSchemas = "metadataSchemas"
)

var idPattern = regexp.MustCompile(`^[a-z][-a-z0-9]{0,127}$`)

// ResourceName is the parsed form of
// projects/<p>/locations/<l>/metadataStores/<s>/<noun>/<id>[@version].
type ResourceName struct {
	Project       string
	Location      string
	MetadataStore string
	Noun          string
	ID            string
	Version       string
}

func ParseResourceName(name string) (*ResourceName, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 8 || parts[0] != "projects" || parts[2] != "locations" || parts[4] != "metadataStores" {
		return nil, errors.Wrap(ErrMalformedName, name)
	}
	noun := parts[6]
	switch noun {
	case NounArtifacts, NounContexts, NounExecutions, NounMetadataSchemas:
	default:
		return nil, errors.Wrapf(ErrMalformedName, "unknown collection %q in %q", noun, name)
	}

	id := parts[7]
	version := ""
	if at := strings.Index(id, "@"); at >= 0 {
		id, version = id[:at], id[at+1:]
		if version == "" {
			return nil, errors.Wrap(ErrMalformedName, name)
		}
	}
	for _, p := range []string{parts[1], parts[3], parts[5], id} {
		if p == "" {
			return nil, errors.Wrap(ErrMalformedName, name)
		}
	}

	return &ResourceName{
		Project:       parts[1],
		Location:      parts[3],
		MetadataStore: parts[5],
		Noun:          noun,
		ID:            id,
		Version:       version,
	}, nil
}

func (n *ResourceName) String() string {
	id := n.ID
	if n.Version != "" {
		id = id + "@" + n.Version
	}
	return fmt.Sprintf("projects/%s/locations/%s/metadataStores/%s/%s/%s",
		n.Project, n.Location, n.MetadataStore, n.Noun, id)
}

// ValidateID checks a short resource id against the service grammar.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return errors.Wrapf(ErrMalformedName, "invalid resource id %q", id)
	}
	return nil
}

// Scope carries the ambient project, location, and metadata store used to
// qualify short resource ids.
type Scope struct {
	Project       string `env:"METADATA_PROJECT"`
	Location      string `env:"METADATA_LOCATION"`
	MetadataStore string `env:"METADATA_STORE" envDefault:"default"`
}

// Parent is the metadata store path all collections hang off.
func (s Scope) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s/metadataStores/%s", s.Project, s.Location, s.MetadataStore)
}

// FullName qualifies idOrName into the given collection. Fully-qualified
// names pass through after validation; short ids are checked against the id
// grammar and joined onto the scope.
func (s Scope) FullName(noun, idOrName string) (string, error) {
	if strings.HasPrefix(idOrName, "projects/") {
		parsed, err := ParseResourceName(idOrName)
		if err != nil {
			return "", err
		}
		if parsed.Noun != noun {
			return "", errors.Wrapf(ErrMalformedName, "expected a %s name, got %q", noun, idOrName)
		}
		return parsed.String(), nil
	}
	if err := ValidateID(idOrName); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.Parent(), noun, idOrName), nil
}
