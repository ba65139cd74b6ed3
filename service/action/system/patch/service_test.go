package patch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestGenerateDiff(t *testing.T) {
	old := "steps:\n  train:\n    action: automl:trainModel\n"
	updated := "steps:\n  train:\n    action: automl:trainModel\n  evaluate:\n    action: gate:evaluate\n"

	result, err := GenerateDiff([]byte(old), []byte(updated), "deploy.yaml", 3)
	assert.NoError(t, err)
	assert.Contains(t, result.Patch, "--- a/deploy.yaml")
	assert.Contains(t, result.Patch, "+++ b/deploy.yaml")
	assert.Equal(t, 2, result.Stats.Insertions)
	assert.Equal(t, 0, result.Stats.Deletions)
	assert.Equal(t, 1, result.Stats.FilesChanged)

	_, err = GenerateDiff([]byte(old), []byte(old), "deploy.yaml", 3)
	assert.ErrorIs(t, err, ErrNoChange)
}

func TestSession_UpdateRollback(t *testing.T) {
	dir := chdirTemp(t)
	target := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(target, []byte("threshold: 2000\n"), 0o644))

	session, err := NewSession()
	require.NoError(t, err)
	require.NoError(t, session.Update(target, []byte("threshold: 1500\n")))
	require.NoError(t, session.Update(target, []byte("threshold: 1000\n")))

	data, _ := os.ReadFile(target)
	assert.Equal(t, "threshold: 1000\n", string(data))

	require.NoError(t, session.Rollback())
	data, _ = os.ReadFile(target)
	// rollback restores the pre-session content, not the intermediate revision
	assert.Equal(t, "threshold: 2000\n", string(data))
}

func TestSession_ApplyPatch(t *testing.T) {
	chdirTemp(t)
	original := "name: deploy\nthreshold: 2000\n"
	require.NoError(t, os.WriteFile("deploy.yaml", []byte(original), 0o644))

	patchText := strings.Join([]string{
		"--- a/deploy.yaml",
		"+++ b/deploy.yaml",
		"@@ -1,2 +1,2 @@",
		" name: deploy",
		"-threshold: 2000",
		"+threshold: 1500",
		"",
	}, "\n")

	session, err := NewSession()
	require.NoError(t, err)
	require.NoError(t, session.ApplyPatch(patchText))

	data, _ := os.ReadFile("deploy.yaml")
	assert.Equal(t, "name: deploy\nthreshold: 1500\n", string(data))

	require.NoError(t, session.Rollback())
	data, _ = os.ReadFile("deploy.yaml")
	assert.Equal(t, original, string(data))
}

func TestSession_ApplyPatchAddDelete(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("old.yaml", []byte("obsolete: true\n"), 0o644))

	patchText := strings.Join([]string{
		"--- /dev/null",
		"+++ b/new.yaml",
		"@@ -0,0 +1,1 @@",
		"+name: fresh",
		"--- a/old.yaml",
		"+++ /dev/null",
		"@@ -1,1 +0,0 @@",
		"-obsolete: true",
		"",
	}, "\n")

	session, err := NewSession()
	require.NoError(t, err)
	require.NoError(t, session.ApplyPatch(patchText))

	_, err = os.Stat("old.yaml")
	assert.True(t, os.IsNotExist(err))
	data, _ := os.ReadFile("new.yaml")
	assert.Equal(t, "name: fresh\n", string(data))

	require.NoError(t, session.Rollback())
	_, err = os.Stat("new.yaml")
	assert.True(t, os.IsNotExist(err))
	data, _ = os.ReadFile("old.yaml")
	assert.Equal(t, "obsolete: true\n", string(data))
}

func TestService_DiffMethod(t *testing.T) {
	srv := New()
	method, err := srv.Method("diff")
	require.NoError(t, err)

	output := &DiffOutput{}
	err = method(context.Background(), &DiffInput{
		OldContent: "a\n",
		NewContent: "b\n",
		Path:       "spec.yaml",
	}, output)
	assert.NoError(t, err)
	assert.Equal(t, 1, output.Stats.Insertions)
	assert.Equal(t, 1, output.Stats.Deletions)
}

func TestService_ApplyCommit(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("gate.yaml", []byte("rmse: 2000\n"), 0o644))

	srv := New()
	apply, err := srv.Method("apply")
	require.NoError(t, err)
	output := &ApplyOutput{}
	err = apply(context.Background(), &ApplyInput{Patch: strings.Join([]string{
		"--- a/gate.yaml",
		"+++ b/gate.yaml",
		"@@ -1,1 +1,1 @@",
		"-rmse: 2000",
		"+rmse: 1800",
		"",
	}, "\n")}, output)
	require.NoError(t, err)
	assert.Equal(t, 1, output.Stats.Hunks)

	commit, err := srv.Method("commit")
	require.NoError(t, err)
	require.NoError(t, commit(context.Background(), &EmptyInput{}, &EmptyOutput{}))

	data, _ := os.ReadFile("gate.yaml")
	assert.Equal(t, "rmse: 1800\n", string(data))
}
