package diff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func paths(fields []Field) []string {
	result := make([]string, len(fields))
	for i, f := range fields {
		result[i] = f.Path
	}
	return result
}

func TestDocumentsIdenticalYieldsNoChanges(t *testing.T) {
	doc := []byte(`{"question":"Q1","details":{"a":1,"b":[1,2]},"priority":"high"}`)
	fields, err := Documents(doc, doc)
	require.NoError(t, err)
	require.NotEmpty(t, fields)
	for _, f := range fields {
		require.False(t, f.Changed, "path %q should be unchanged", f.Path)
	}
}

func TestDocumentsCoversUnionOfKeysExactlyOnce(t *testing.T) {
	existing := []byte(`{"question":"Q1","crop":"wheat","details":{"a":1}}`)
	proposed := []byte(`{"question":"Q1","state":"UP","details":{"a":2,"b":3}}`)

	fields, err := Documents(existing, proposed)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, f := range fields {
		seen[f.Path]++
	}
	for _, path := range []string{"question", "crop", "state", "details.a", "details.b"} {
		require.Equal(t, 1, seen[path], "path %q must appear exactly once", path)
	}
	require.Len(t, fields, 5)
}

func TestDocumentsChangedFlags(t *testing.T) {
	existing := []byte(`{"question":"Q1","details":{"a":1}}`)
	proposed := []byte(`{"question":"Q1","details":{"a":2,"b":3}}`)

	fields, err := Documents(existing, proposed)
	require.NoError(t, err)
	require.Equal(t, []string{"question", "details.a", "details.b"}, paths(fields))

	require.False(t, fields[0].Changed)
	require.True(t, fields[1].Changed)
	require.Equal(t, float64(1), fields[1].OldValue)
	require.Equal(t, float64(2), fields[1].NewValue)
	require.True(t, fields[2].Changed)
	require.Nil(t, fields[2].OldValue)
}

func TestDocumentsMissingSideIsChanged(t *testing.T) {
	fields, err := Documents([]byte(`{"remarks":"x"}`), []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "remarks", fields[0].Path)
	require.True(t, fields[0].Changed)
	require.Nil(t, fields[0].NewValue)
}

func TestDocumentsTypeMismatchIsChangedLeaf(t *testing.T) {
	fields, err := Documents([]byte(`{"meta":{"a":1}}`), []byte(`{"meta":"flat"}`))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "meta", fields[0].Path)
	require.True(t, fields[0].Changed)
}

func TestDocumentsNilInputsTreatedAsEmpty(t *testing.T) {
	fields, err := Documents(nil, nil)
	require.NoError(t, err)
	require.Empty(t, fields)

	fields, err = Documents(nil, []byte(`{"question":"Q"}`))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.True(t, fields[0].Changed)
}

func TestPathLessOrdering(t *testing.T) {
	// question first, details last, others lexicographic.
	require.True(t, PathLess("question", "crop"))
	require.True(t, PathLess("question", "details.a"))
	require.True(t, PathLess("crop", "details.a"))
	require.True(t, PathLess("crop", "state"))
	require.True(t, PathLess("details.a", "details.b"))
	require.False(t, PathLess("details.a", "zzz"))
	require.False(t, PathLess("crop", "question"))

	// detailsfoo is not under the details prefix
	require.True(t, PathLess("detailsfoo", "details.a"))
}

func TestSortScenario(t *testing.T) {
	existing := []byte(`{"question":"Q1","details":{"a":1}}`)
	proposed := []byte(`{"question":"Q1","details":{"a":2,"b":3}}`)
	fields, err := Documents(existing, proposed)
	require.NoError(t, err)
	require.Equal(t, "question", fields[0].Path)
	require.Equal(t, []string{"details.a", "details.b"}, paths(fields[1:]))
}
