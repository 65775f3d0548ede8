package viewstate

import (
	"errors"
	"sync"
	"testing"

	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDefaults(t *testing.T) {
	store := NewStore()
	st := store.Get(HubClustersView)

	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, 10, st.PageSize)
	assert.Equal(t, paging.Sort{Field: paging.FieldDisplayName, Ascending: true}, st.Sort)
	assert.True(t, st.Filter.IsEmpty())
	assert.Equal(t, []ViewID{HubClustersView}, store.Views())
}

func TestStoreOptions(t *testing.T) {
	store := NewStore(
		WithDefaultPageSize(20),
		WithDefaultSort(paging.Sort{Field: paging.FieldCreationTimestamp}),
		WithDefaultPageSize(0), // ignored
	)
	st := store.Get(ClustersView)
	assert.Equal(t, 20, st.PageSize)
	assert.Equal(t, paging.FieldCreationTimestamp, st.Sort.Field)
	assert.False(t, st.Sort.Ascending)
}

func TestViewsDoNotCollide(t *testing.T) {
	store := NewStore()
	_, err := store.SetPage(ClustersView, 4)
	require.NoError(t, err)
	store.SetSort(ClustersView, paging.Sort{Field: paging.FieldState})

	hub := store.Get(HubClustersView)
	assert.Equal(t, 1, hub.CurrentPage)
	assert.Equal(t, paging.FieldDisplayName, hub.Sort.Field)
	assert.Equal(t, []ViewID{HubClustersView, ClustersView}, store.Views())
}

func TestSetPageValidation(t *testing.T) {
	store := NewStore()
	_, err := store.SetPage(ClustersView, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPage))

	_, err = store.SetPageSize(ClustersView, -5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPageSize))
}

func TestSetPageSizeReanchors(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		oldSize  int
		newSize  int
		wantPage int
	}{
		// page 3 of 10 starts at item 21 -> page 2 of 20 (items 21-40)
		{name: "grow", page: 3, oldSize: 10, newSize: 20, wantPage: 2},
		// page 2 of 20 starts at item 21 -> page 5 of 5 (items 21-25)
		{name: "shrink", page: 2, oldSize: 20, newSize: 5, wantPage: 5},
		{name: "first_page_stays_first", page: 1, oldSize: 10, newSize: 50, wantPage: 1},
		// page 4 of 10 starts at item 31 -> page 2 of 20 (items 21-40 contain it)
		{name: "non_aligned", page: 4, oldSize: 10, newSize: 20, wantPage: 2},
		{name: "same_size", page: 3, oldSize: 10, newSize: 10, wantPage: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(WithDefaultPageSize(tt.oldSize))
			_, err := store.SetPage(HubClustersView, tt.page)
			require.NoError(t, err)

			st, err := store.SetPageSize(HubClustersView, tt.newSize)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, st.CurrentPage)
			assert.Equal(t, tt.newSize, st.PageSize)
		})
	}
}

func TestSetFilterReturnsToFirstPage(t *testing.T) {
	store := NewStore()
	_, err := store.SetPage(ClustersView, 3)
	require.NoError(t, err)

	st := store.SetFilter(ClustersView, Filter{Text: "prod"})
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, "prod", st.Filter.Text)

	_, err = store.SetPage(ClustersView, 2)
	require.NoError(t, err)
	st = store.SetFilter(ClustersView, Filter{Text: "prod"})
	assert.Equal(t, 2, st.CurrentPage, "unchanged filter keeps the page")
}

func TestReset(t *testing.T) {
	store := NewStore()
	_, err := store.SetPage(HubClustersView, 3)
	require.NoError(t, err)
	store.SetFilter(HubClustersView, Filter{Expression: "cluster.state == 'ready'"})

	st := store.Reset(HubClustersView)
	assert.Equal(t, store.defaults(), st)
	assert.Equal(t, st, store.Get(HubClustersView))
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.SetPage(ClustersView, i)
			_ = store.Get(HubClustersView)
			_, _ = store.SetPageSize(HubClustersView, i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.Views(), 2)
}
