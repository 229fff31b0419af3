package partdime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	partdime "github.com/devprabhu18/PartDImeApp"
)

func TestRoleIsValid(t *testing.T) {
	assert.True(t, partdime.RoleEmployer.IsValid())
	assert.True(t, partdime.RoleEmployee.IsValid())
	assert.False(t, partdime.RoleUnset.IsValid())
	assert.False(t, partdime.Role("admin").IsValid())
}

func TestRoleCollection(t *testing.T) {
	assert.Equal(t, partdime.CollectionEmployers, partdime.RoleEmployer.Collection())
	assert.Equal(t, partdime.CollectionEmployees, partdime.RoleEmployee.Collection())
	assert.Equal(t, "", partdime.RoleUnset.Collection())
}

func TestParseRole(t *testing.T) {
	role, ok := partdime.ParseRole("employer")
	assert.True(t, ok)
	assert.Equal(t, partdime.RoleEmployer, role)

	role, ok = partdime.ParseRole("employee")
	assert.True(t, ok)
	assert.Equal(t, partdime.RoleEmployee, role)

	role, ok = partdime.ParseRole("admin")
	assert.False(t, ok)
	assert.Equal(t, partdime.RoleUnset, role)

	_, ok = partdime.ParseRole("")
	assert.False(t, ok)
}
