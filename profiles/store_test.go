package profiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSetClausesSkipsNilFields(t *testing.T) {
	clauses, args := buildSetClauses(Patch{
		FirstName: StringPtr("Jane"),
		Company:   StringPtr("Valey"),
	})

	require.Equal(t, []string{"first_name = $1", "company = $2"}, clauses)
	require.Equal(t, []interface{}{"Jane", "Valey"}, args)
}

func TestBuildSetClausesWritesExplicitEmptyStrings(t *testing.T) {
	clauses, args := buildSetClauses(Patch{Phone: StringPtr("")})

	require.Equal(t, []string{"phone = $1"}, clauses)
	require.Equal(t, []interface{}{""}, args)
}

func TestBuildSetClausesEmptyPatch(t *testing.T) {
	clauses, args := buildSetClauses(Patch{})
	assert.Empty(t, clauses)
	assert.Empty(t, args)
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{AvatarURL: StringPtr("x")}.IsEmpty())
}

func TestUpdateRequestPatchCarriesOnlyProvidedFields(t *testing.T) {
	first := "Jane"
	req := UpdateProfileRequest{FirstName: &first}
	patch := req.Patch()

	assert.Equal(t, "Jane", *patch.FirstName)
	assert.Nil(t, patch.LastName)
	assert.Nil(t, patch.Phone)
	assert.False(t, patch.IsEmpty())
}
