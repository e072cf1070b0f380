package paging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		items, size, want int
	}{
		{0, 500, 0},
		{1, 500, 1},
		{500, 500, 1},
		{501, 500, 2},
		{1234, 500, 3},
		{1234, 0, 3},
		{10, 3, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.items, tt.size), "items=%d size=%d", tt.items, tt.size)
	}
}

func TestPages(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Pages(1234, DefaultPageSize))
	assert.Empty(t, Pages(0, DefaultPageSize))
}

func TestCursor(t *testing.T) {
	c := NewCursor(1001, 500)
	require.Equal(t, 3, c.PageCount)

	var seen []int
	for ; c.Valid(); c = c.Next() {
		seen = append(seen, c.CurrentPage)
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.False(t, NewCursor(0, 500).Valid())
}

func TestWalkRereadsPageCount(t *testing.T) {
	// page count grows from 1 to 3 while walking
	reported := map[int]int{1: 2, 2: 3, 3: 3}
	var fetched []int

	err := Walk(func(page int) (int, error) {
		fetched = append(fetched, page)
		return reported[page], nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, fetched)
}

func TestWalkShrinkingPageCount(t *testing.T) {
	reported := map[int]int{1: 3, 2: 2}
	var fetched []int

	err := Walk(func(page int) (int, error) {
		fetched = append(fetched, page)
		return reported[page], nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fetched)
}

func TestWalkEmptyListingFetchesOnce(t *testing.T) {
	calls := 0
	err := Walk(func(page int) (int, error) {
		calls++
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Walk(func(page int) (int, error) {
		calls++
		if page == 2 {
			return 0, boom
		}
		return 5, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
