package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	nominationID int64
	userID       int64
	name         string
}

func TestGroupUnique(t *testing.T) {
	rows := []row{
		{1, 10, "a"},
		{1, 11, "b"},
		{2, 10, "a"},
		{1, 10, "a"}, // fan-out duplicate
		{2, 12, "c"},
		{2, 12, "c"},
	}

	groups := GroupUnique(rows,
		func(r row) int64 { return r.nominationID },
		func(r row) int64 { return r.userID },
	)

	assert.Len(t, groups, 2)
	assert.Equal(t, []row{{1, 10, "a"}, {1, 11, "b"}}, groups[1])
	assert.Equal(t, []row{{2, 10, "a"}, {2, 12, "c"}}, groups[2])
	assert.Nil(t, groups[3])
}

func TestGroupUniqueEmpty(t *testing.T) {
	groups := GroupUnique([]row(nil),
		func(r row) int64 { return r.nominationID },
		func(r row) int64 { return r.userID },
	)
	assert.Empty(t, groups)
}

func TestUnique(t *testing.T) {
	ids := Unique([]int64{3, 1, 3, 2, 1}, func(id int64) int64 { return id })
	assert.Equal(t, []int64{3, 1, 2}, ids)
}
