package metadata

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFilterSingleClauses(t *testing.T) {
	assert.Equal(t, `schema_title="system.Experiment"`, NewFilter().SchemaTitle("system.Experiment").String())
	assert.Equal(t, `(schema_title="a" OR schema_title="b")`, NewFilter().SchemaTitle("a", "b").String())
	assert.Equal(t, `in_context("ctx")`, NewFilter().InContext("ctx").String())
	assert.Equal(t, `parent_contexts:"c1,c2"`, NewFilter().ParentContexts("c1", "c2").String())
	assert.Equal(t, `uri="https://x/y"`, NewFilter().Uri("https://x/y").String())
}

func TestFilterEmptyInputsDropped(t *testing.T) {
	assert.Equal(t, "", NewFilter().SchemaTitle().InContext("").Uri("").String())
}

func TestFilterComposition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := NewFilter()
		var want []string
		if rapid.Bool().Draw(t, "title") {
			f.SchemaTitle("system.Run")
			want = append(want, `schema_title="system.Run"`)
		}
		if rapid.Bool().Draw(t, "ctx") {
			f.InContext("ctx")
			want = append(want, `in_context("ctx")`)
		}
		if rapid.Bool().Draw(t, "uri") {
			f.Uri("u")
			want = append(want, `uri="u"`)
		}
		if rapid.Bool().Draw(t, "after") {
			f.CreateTimeAtOrAfter("2024-01-01")
			want = append(want, `create_time>="2024-01-01T00:00:00Z"`)
		}
		got, err := f.Build()
		if err != nil {
			t.Fatalf("build: %s", err)
		}
		if got != strings.Join(want, " AND ") {
			t.Fatalf("got %q, want %q", got, strings.Join(want, " AND "))
		}
	})
}

func TestFormatTimestampDateOnly(t *testing.T) {
	ts, err := FormatTimestamp("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T00:00:00Z", ts)
}

func TestFormatTimestampNaiveDatetime(t *testing.T) {
	ts, err := FormatTimestamp("2024-03-05T10:20:30")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:20:30Z", ts)
}

func TestFormatTimestampRFC3339(t *testing.T) {
	ts, err := FormatTimestamp("2024-03-05T10:20:30+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T08:20:30Z", ts)
}

func TestFormatTimestampNative(t *testing.T) {
	ts, err := FormatTimestamp(time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:20:30Z", ts)
}

func TestFormatTimestampRejectsGarbage(t *testing.T) {
	_, err := FormatTimestamp("not a date")
	assert.Error(t, err)
	_, err = FormatTimestamp(42)
	assert.Error(t, err)
}

func TestFilterSurfacesTimestampError(t *testing.T) {
	_, err := NewFilter().CreateTimeAtOrAfter("nope").Build()
	assert.Error(t, err)
}
