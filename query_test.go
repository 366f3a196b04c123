package modscope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolvedEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	loadFixture(t, e)
	require.NoError(t, e.ResolveAll(context.Background()))
	return e
}

func TestQuery_FindDeclaration(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	sites, err := q.FindDeclaration("sortBy", QueryFilter{})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "Lib", sites[0].Module)
	assert.Equal(t, "pkg:base-set:base-4.18", sites[0].Location)
	assert.False(t, sites[0].Local)
	assert.Equal(t, []Import{unqual("Data.List")}, sites[0].Via)

	// id is in scope in both file modules via the implicit import.
	sites, err = q.FindDeclaration("id", QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	sites, err = q.FindDeclaration("no-such-name", QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestQuery_FindDeclaration_Filters(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	// helper is defined in a project file; sortBy in a package.
	sites, err := q.FindDeclaration("helper", QueryFilter{Project: "app"})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.True(t, sites[0].Local)

	sites, err = q.FindDeclaration("sortBy", QueryFilter{Project: "app"})
	require.NoError(t, err)
	assert.Empty(t, sites)

	sites, err = q.FindDeclaration("sortBy", QueryFilter{PackageSet: "base-set"})
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}

func TestQuery_BrowseModule(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	sites, err := q.BrowseModule("Lib")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "sortBy", sites[0].Name)
	assert.Equal(t, "Lib", sites[0].Module)
}

func TestQuery_BrowseModule_PackageFallsBackToDecls(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	// Package-origin modules have no computed export rows; browsing one
	// lists its declarations instead.
	sites, err := q.BrowseModule("Prelude")
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "id", sites[0].Name)
	assert.Equal(t, "const", sites[1].Name)
	assert.True(t, sites[0].Local)
}

func TestQuery_BrowseModule_Unknown(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	sites, err := q.BrowseModule("Does.Not.Exist")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestQuery_Complete(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	sites, err := q.Complete("Lib", "s", QueryFilter{})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "sortBy", sites[0].Name)

	sites, err = q.Complete("Lib", "", QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, sites, 4) // helper, id, const, sortBy

	sites, err = q.Complete("Lib", "zz", QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestQuery_DefinitionOf(t *testing.T) {
	t.Parallel()
	q := newResolvedEngine(t).Query()

	sites, err := q.DefinitionOf("Main", "id")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "pkg:base-set:base-4.18", sites[0].Location)
	assert.Equal(t, []Import{{Module: "Prelude"}}, sites[0].Via)

	sites, err = q.DefinitionOf("Main", "main")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.True(t, sites[0].Local)
	assert.Empty(t, sites[0].Via)

	// Data.List is imported by Lib, not Main.
	sites, err = q.DefinitionOf("Main", "sortBy")
	require.NoError(t, err)
	assert.Empty(t, sites)
}
