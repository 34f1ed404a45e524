package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppliesTo(t *testing.T) {
	untagged := &Script{Name: "1_a.sql"}
	stage := &Script{Name: "2_b.stage.sql", Environments: []string{"stage"}}
	multi := &Script{Name: "3_c.dev.stage.sql", Environments: []string{"dev", "stage"}}

	assert.True(t, untagged.AppliesTo(nil))
	assert.True(t, untagged.AppliesTo([]string{"prod"}))

	assert.True(t, stage.AppliesTo(nil))
	assert.True(t, stage.AppliesTo([]string{"stage"}))
	assert.True(t, stage.AppliesTo([]string{"STAGE"}))
	assert.False(t, stage.AppliesTo([]string{"prod"}))

	assert.True(t, multi.AppliesTo([]string{"prod", "dev"}))
	assert.False(t, multi.AppliesTo([]string{"prod", "test"}))
}

func TestString(t *testing.T) {
	s := &Script{Version: 4, Name: "4_add_index.sql", Category: Up}
	assert.Equal(t, "up/4_add_index.sql [4]", s.String())
}
