package metadata

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testScope = Scope{Project: "proj", Location: "us-central1", MetadataStore: "default"}

func TestParseResourceName(t *testing.T) {
	name := "projects/proj/locations/us-central1/metadataStores/default/artifacts/my-artifact"
	parsed, err := ParseResourceName(name)
	require.NoError(t, err)
	assert.Equal(t, "proj", parsed.Project)
	assert.Equal(t, "us-central1", parsed.Location)
	assert.Equal(t, "default", parsed.MetadataStore)
	assert.Equal(t, NounArtifacts, parsed.Noun)
	assert.Equal(t, "my-artifact", parsed.ID)
	assert.Equal(t, name, parsed.String())
}

func TestParseResourceNameVersion(t *testing.T) {
	parsed, err := ParseResourceName("projects/p/locations/l/metadataStores/s/contexts/ctx@12")
	require.NoError(t, err)
	assert.Equal(t, "ctx", parsed.ID)
	assert.Equal(t, "12", parsed.Version)
	assert.Equal(t, "projects/p/locations/l/metadataStores/s/contexts/ctx@12", parsed.String())
}

func TestParseResourceNameRejects(t *testing.T) {
	for _, name := range []string{
		"",
		"projects/p/locations/l/artifacts/a",
		"projects/p/locations/l/metadataStores/s/widgets/a",
		"projects/p/locations/l/metadataStores/s/artifacts/a@",
		"projects//locations/l/metadataStores/s/artifacts/a",
	} {
		_, err := ParseResourceName(name)
		assert.ErrorIs(t, err, ErrMalformedName, "name %q", name)
	}
}

func TestParseResourceNameRoundTrip(t *testing.T) {
	idGen := rapid.StringMatching(`[a-z][-a-z0-9]{0,20}`)
	nounGen := rapid.SampledFrom([]string{NounArtifacts, NounContexts, NounExecutions, NounMetadataSchemas})
	rapid.Check(t, func(t *rapid.T) {
		name := fmt.Sprintf("projects/%s/locations/%s/metadataStores/%s/%s/%s",
			idGen.Draw(t, "project"), idGen.Draw(t, "location"), idGen.Draw(t, "store"),
			nounGen.Draw(t, "noun"), idGen.Draw(t, "id"))
		parsed, err := ParseResourceName(name)
		if err != nil {
			t.Fatalf("parse %q: %s", name, err)
		}
		if parsed.String() != name {
			t.Fatalf("round trip %q != %q", parsed.String(), name)
		}
	})
}

func TestFullNameFromID(t *testing.T) {
	name, err := testScope.FullName(NounContexts, "exp1")
	require.NoError(t, err)
	assert.Equal(t, "projects/proj/locations/us-central1/metadataStores/default/contexts/exp1", name)
}

func TestFullNamePassthrough(t *testing.T) {
	full := "projects/other/locations/l/metadataStores/s/contexts/exp1"
	name, err := testScope.FullName(NounContexts, full)
	require.NoError(t, err)
	assert.Equal(t, full, name)
}

func TestFullNameWrongCollection(t *testing.T) {
	_, err := testScope.FullName(NounContexts, "projects/p/locations/l/metadataStores/s/artifacts/a")
	assert.ErrorIs(t, err, ErrMalformedName)
}

func TestFullNameBadID(t *testing.T) {
	for _, id := range []string{"", "UPPER", "1leading", "-dash", "has_underscore"} {
		_, err := testScope.FullName(NounArtifacts, id)
		assert.ErrorIs(t, err, ErrMalformedName, "id %q", id)
	}
}
