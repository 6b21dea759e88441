package cursorstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcscan/bridge-indexer/pkg/infra"
	"github.com/arcscan/bridge-indexer/pkg/kvstore"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	kv, err := kvstore.NewBadgerStore(t.TempDir(), "test", infra.JSON)
	require.NoError(t, err)
	s := New(kv)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatestBlockRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetLatestBlock("arc")
	assert.Error(t, err, "no cursor saved yet")

	require.NoError(t, s.SaveLatestBlock("arc", 123456))
	got, err := s.GetLatestBlock("arc")
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), got)

	// cursors are per chain
	_, err = s.GetLatestBlock("ethereum")
	assert.Error(t, err)
}

func TestSaveLatestBlockValidation(t *testing.T) {
	s := newTestStore(t)

	assert.Error(t, s.SaveLatestBlock("", 10))
	assert.Error(t, s.SaveLatestBlock("arc", 0))
}

func TestFailedBlocksDedupAndRemove(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveFailedBlock("arc", 30))
	require.NoError(t, s.SaveFailedBlock("arc", 10))
	require.NoError(t, s.SaveFailedBlock("arc", 30)) // duplicate
	require.NoError(t, s.SaveFailedBlock("arc", 20))

	blocks, err := s.GetFailedBlocks("arc")
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, blocks, "sorted and deduplicated")

	require.NoError(t, s.RemoveFailedBlocks("arc", []uint64{10, 30}))
	blocks, err = s.GetFailedBlocks("arc")
	require.NoError(t, err)
	assert.Equal(t, []uint64{20}, blocks)
}

func TestFailedBlocksConcurrentSaves(t *testing.T) {
	s := newTestStore(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(block uint64) {
			defer wg.Done()
			assert.NoError(t, s.SaveFailedBlock("arc", block))
		}(uint64(i))
	}
	wg.Wait()

	blocks, err := s.GetFailedBlocks("arc")
	require.NoError(t, err)
	assert.Len(t, blocks, n, "no save may be lost to a concurrent writer")
}

func TestBackfillRangeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveBackfillRange("arc", BackfillRange{Start: 100, End: 200, Current: 99}))
	require.NoError(t, s.SaveBackfillRange("arc", BackfillRange{Start: 201, End: 300, Current: 250}))

	ranges, err := s.GetBackfillRanges("arc")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, BackfillRange{Start: 100, End: 200, Current: 99}, ranges[0])
	assert.Equal(t, BackfillRange{Start: 201, End: 300, Current: 250}, ranges[1])

	// progress update overwrites the same key
	require.NoError(t, s.SaveBackfillRange("arc", BackfillRange{Start: 100, End: 200, Current: 150}))
	ranges, err = s.GetBackfillRanges("arc")
	require.NoError(t, err)
	assert.Equal(t, uint64(150), ranges[0].Current)

	require.NoError(t, s.DeleteBackfillRange("arc", 100, 200))
	ranges, err = s.GetBackfillRanges("arc")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, uint64(201), ranges[0].Start)
}

func TestSaveBackfillRangeValidation(t *testing.T) {
	s := newTestStore(t)

	assert.Error(t, s.SaveBackfillRange("", BackfillRange{Start: 1, End: 2}))
	assert.Error(t, s.SaveBackfillRange("arc", BackfillRange{Start: 0, End: 2}))
	assert.Error(t, s.SaveBackfillRange("arc", BackfillRange{Start: 5, End: 2}))
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name    string
		in      BackfillRange
		maxSize uint64
		want    []BackfillRange
	}{
		{
			name:    "fits in one chunk",
			in:      BackfillRange{Start: 1, End: 10, Current: 0},
			maxSize: 20,
			want:    []BackfillRange{{Start: 1, End: 10, Current: 0}},
		},
		{
			name:    "split into chunks",
			in:      BackfillRange{Start: 1, End: 25, Current: 0},
			maxSize: 10,
			want: []BackfillRange{
				{Start: 1, End: 10, Current: 0},
				{Start: 11, End: 20, Current: 10},
				{Start: 21, End: 25, Current: 20},
			},
		},
		{
			name:    "current inside second chunk",
			in:      BackfillRange{Start: 1, End: 20, Current: 15},
			maxSize: 10,
			want: []BackfillRange{
				{Start: 1, End: 10, Current: 10},
				{Start: 11, End: 20, Current: 15},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitRange(tt.in, tt.maxSize))
		})
	}
}
