package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistWritesArtifact(t *testing.T) {
	p := NewPersister(t.TempDir())

	path, err := p.Persist("todo-app", "# Requirements\n\n- REQ-001")
	require.NoError(t, err)
	assert.Equal(t, ArtifactName, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Requirements\n\n- REQ-001", string(data))
}

func TestPersistRejectsPathTraversal(t *testing.T) {
	p := NewPersister(t.TempDir())

	// Traversal wins over the grammar check even though the name would
	// also fail it.
	for _, name := range []string{"../../etc", "a/../b", `a\b`, "nested/name"} {
		_, err := p.Persist(name, "content")
		require.Error(t, err, name)
		assert.True(t, IsKind(err, KindInvalidArgument), name)
		assert.Contains(t, err.Error(), "path traversal", name)
	}
}

func TestPersistRejectsInvalidNames(t *testing.T) {
	p := NewPersister(t.TempDir())

	for _, name := range []string{"Todo-App", "todo app", "todo.app", "über-app"} {
		_, err := p.Persist(name, "content")
		require.Error(t, err, name)
		assert.True(t, IsKind(err, KindInvalidArgument), name)
	}
}

func TestPersistRejectsEmptyInputs(t *testing.T) {
	p := NewPersister(t.TempDir())

	_, err := p.Persist("  ", "content")
	assert.True(t, IsKind(err, KindInvalidArgument))

	_, err = p.Persist("todo-app", "   \n")
	assert.True(t, IsKind(err, KindInvalidArgument))
}

func TestPersistOverwritesExistingArtifact(t *testing.T) {
	p := NewPersister(t.TempDir())

	first, err := p.Persist("todo-app", "first version")
	require.NoError(t, err)

	second, err := p.Persist("todo-app", "second version")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "second version", string(data))
}

func TestPersistPathConflictOnNonDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "todo-app"), []byte("x"), 0o644))

	p := NewPersister(root)
	_, err := p.Persist("todo-app", "content")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPathConflict))
}

func TestPersistCreatesRootIfAbsent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "projects")

	p := NewPersister(root)
	path, err := p.Persist("todo_app", "content")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
