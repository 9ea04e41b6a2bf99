package sequence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstore/gridstore-go/internal/grid"
)

func sequenceKey(name string) grid.RowKey {
	return grid.RowKey{
		Table:        "sequences",
		ColumnNames:  []string{"sequence_name"},
		ColumnValues: []any{name},
	}
}

func TestMemorySource_SeedsAndAdvances(t *testing.T) {
	ctx := context.Background()
	source := NewMemorySource()

	first, err := source.NextValue(ctx, nil, sequenceKey("person_id"), 1, 1)
	require.NoError(t, err)
	second, err := source.NextValue(ctx, nil, sequenceKey("person_id"), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestMemorySource_HonorsIncrementAndInitialValue(t *testing.T) {
	ctx := context.Background()
	source := NewMemorySource()

	first, err := source.NextValue(ctx, nil, sequenceKey("hilo"), 50, 100)
	require.NoError(t, err)
	second, err := source.NextValue(ctx, nil, sequenceKey("hilo"), 50, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), first)
	assert.Equal(t, int64(150), second)
}

func TestMemorySource_SequencesAreIndependent(t *testing.T) {
	ctx := context.Background()
	source := NewMemorySource()

	_, err := source.NextValue(ctx, nil, sequenceKey("a"), 1, 1)
	require.NoError(t, err)

	other, err := source.NextValue(ctx, nil, sequenceKey("b"), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestBoltSource_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sequences.db")

	source, err := OpenBolt(path)
	require.NoError(t, err)

	first, err := source.NextValue(ctx, nil, sequenceKey("person_id"), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	require.NoError(t, source.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	second, err := reopened.NextValue(ctx, nil, sequenceKey("person_id"), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestBoltSource_IndependentSequences(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sequences.db")

	source, err := OpenBolt(path)
	require.NoError(t, err)
	defer source.Close()

	_, err = source.NextValue(ctx, nil, sequenceKey("a"), 10, 5)
	require.NoError(t, err)

	other, err := source.NextValue(ctx, nil, sequenceKey("b"), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), other)
}
