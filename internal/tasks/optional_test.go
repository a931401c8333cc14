package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTask_DistinguishesAbsentNullAndValue(t *testing.T) {
	var p UpdateTask
	require.NoError(t, json.Unmarshal([]byte(`{"description":null,"completed":false}`), &p))

	assert.False(t, p.Title.Set, "absent field must stay unset")

	assert.True(t, p.Description.Set)
	assert.True(t, p.Description.Null)
	assert.Nil(t, p.Description.Ptr())

	assert.True(t, p.Completed.Set)
	assert.False(t, p.Completed.Null)
	assert.False(t, p.Completed.Value)
}

func TestUpdateTask_Apply(t *testing.T) {
	desc := "d"
	base := Task{ID: 3, Title: "t", Description: &desc, Completed: false}

	got := UpdateTask{Completed: Some(true)}.apply(base)
	assert.Equal(t, Task{ID: 3, Title: "t", Description: &desc, Completed: true}, got)

	got = UpdateTask{Description: Null[string]()}.apply(base)
	assert.Nil(t, got.Description)
	assert.Equal(t, "t", got.Title)

	assert.True(t, UpdateTask{}.Empty())
	assert.Equal(t, base, UpdateTask{}.apply(base))
}

func TestUpdateTask_Check(t *testing.T) {
	assert.NoError(t, UpdateTask{Description: Null[string]()}.check())
	assert.ErrorIs(t, UpdateTask{Title: Some("")}.check(), ErrTitleRequired)
	assert.ErrorIs(t, UpdateTask{Title: Null[string]()}.check(), ErrInvalidPatch)
	assert.ErrorIs(t, UpdateTask{Completed: Null[bool]()}.check(), ErrInvalidPatch)
}
