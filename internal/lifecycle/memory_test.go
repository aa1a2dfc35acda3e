package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeMemory struct {
	count      int
	countErr   error
	byQuery    map[string]*QueryResponse
	queryErr   error
	queriesLog []string
}

func (f *fakeMemory) Count(collection string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeMemory) Query(query string, nResults int, timeout time.Duration) (*QueryResponse, error) {
	f.queriesLog = append(f.queriesLog, query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.byQuery[query], nil
}

func TestInjectMemoriesNilMemoryReturnsNil(t *testing.T) {
	assert.Nil(t, InjectMemories(nil, HandoffDigest{}))
}

func TestInjectMemoriesEmptyCollectionReturnsNil(t *testing.T) {
	mem := &fakeMemory{count: 0}
	assert.Nil(t, InjectMemories(mem, HandoffDigest{}))
}

func TestInjectMemoriesCountErrorReturnsNil(t *testing.T) {
	mem := &fakeMemory{countErr: errors.New("boom")}
	assert.Nil(t, InjectMemories(mem, HandoffDigest{}))
}

func TestInjectMemoriesMergesAndDedupes(t *testing.T) {
	projectQuery := buildProjectContextQuery(HandoffDigest{Project: "vc-sentinel", Feature: "lifecycle"})
	correctionQuery := "behavioral correction critical mistake rules priority"

	mem := &fakeMemory{
		count: 10,
		byQuery: map[string]*QueryResponse{
			projectQuery: {
				IDs:       []string{"abcd1234", "dupe0000"},
				Documents: []string{"project note one", "shared note"},
				Distances: []float64{0.1, 0.2},
			},
			correctionQuery: {
				IDs:       []string{"dupe0000", "efgh5678"},
				Documents: []string{"shared note (correction copy)", "correction note"},
				Distances: []float64{0.05, 0.1},
			},
		},
	}

	entries := InjectMemories(mem, HandoffDigest{Project: "vc-sentinel", Feature: "lifecycle"})

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"abcd1234", "dupe0000", "efgh5678"}, ids)
	assert.Contains(t, entries[0].Display, "[abcd1234]")
	assert.Contains(t, entries[2].Display, "[CORRECTION]")
}

func TestInjectMemoriesFiltersLowRelevance(t *testing.T) {
	projectQuery := buildProjectContextQuery(HandoffDigest{})
	mem := &fakeMemory{
		count: 5,
		byQuery: map[string]*QueryResponse{
			projectQuery: {
				IDs:       []string{"low"},
				Documents: []string{"barely related"},
				Distances: []float64{0.9},
			},
		},
	}
	entries := InjectMemories(mem, HandoffDigest{})
	assert.Empty(t, entries)
}

func TestBuildProjectContextQueryFallsBackWhenEmpty(t *testing.T) {
	q := buildProjectContextQuery(HandoffDigest{})
	assert.Equal(t, "recent session activity framework", q)
}

func TestTruncateWithEllipsis(t *testing.T) {
	assert.Equal(t, "short", truncateWithEllipsis("short", 58))
	long := "this string is going to be longer than fifty eight characters for sure"
	got := truncateWithEllipsis(long, 10)
	assert.Equal(t, long[:10]+"..", got)
}
