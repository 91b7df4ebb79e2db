package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdate(t *testing.T) {
	existing := Task{ID: 5, Title: "A", Description: "B", Completed: false}

	merged := ApplyUpdate(existing, TaskUpdate{Title: "X", Description: "Y", Completed: true})

	assert.Equal(t, Task{ID: 5, Title: "X", Description: "Y", Completed: true}, merged)
	// The original value is left untouched
	assert.Equal(t, Task{ID: 5, Title: "A", Description: "B", Completed: false}, existing)
}

func TestApplyUpdate_ClearsFields(t *testing.T) {
	existing := Task{ID: 9, Title: "A", Description: "B", Completed: true}

	merged := ApplyUpdate(existing, TaskUpdate{})

	assert.Equal(t, Task{ID: 9}, merged)
}

func TestTaskUpdate_IgnoresClientID(t *testing.T) {
	var update TaskUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"id":99,"title":"X","description":"Y","completed":true}`), &update))

	merged := ApplyUpdate(Task{ID: 5}, update)

	assert.Equal(t, int64(5), merged.ID)
	assert.Equal(t, "X", merged.Title)
}

func TestTask_JSONShape(t *testing.T) {
	data, err := json.Marshal(Task{ID: 1, Title: "A", Description: "B"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":1,"title":"A","description":"B","completed":false}`, string(data))
}

func TestTask_CompletedDefaultsFalse(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"title":"A","description":"B"}`), &task))

	assert.False(t, task.Completed)
}
