package ygggo_db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermission_Keywords(t *testing.T) {
	assert.Equal(t, "SELECT,DELETE", (PermSelect | PermDelete).String())
	assert.Equal(t, "SELECT,INSERT,UPDATE,DELETE", PermAll.String())
	assert.Equal(t, []string{"UPDATE"}, PermUpdate.Keywords())
	assert.Empty(t, Permission(0).Keywords())
	assert.Equal(t, "", Permission(0).String())
	assert.Equal(t, "INSERT", (PermInsert | 0x80).String())
}
