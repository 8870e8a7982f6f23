package graph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartmake/internal/model"
)

// chainSpec is a linear pipeline: src (leaf) -> mid -> top.
func chainSpec() *model.Spec {
	return &model.Spec{
		Files: []model.FileAlias{
			{Name: "src", PathTemplate: "src.txt"},
			{Name: "mid", PathTemplate: "mid.txt"},
			{Name: "top", PathTemplate: "top.txt"},
		},
		Tasks: []model.TaskDefinition{
			{Name: "MakeMid", Command: "make mid", Dependencies: []string{"src"}, Generates: []string{"mid"}},
			{Name: "MakeTop", Command: "make top", Dependencies: []string{"mid"}, Generates: []string{"top"}},
		},
	}
}

// touch creates the file under root with the given modification time.
func touch(t *testing.T, root, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func buildChain(t *testing.T, root string) *Graph {
	t.Helper()
	g, err := NewBuilder(chainSpec(), root).Build("top", nil)
	require.NoError(t, err)
	return g
}

func staleByName(g *Graph) map[string]bool {
	out := make(map[string]bool, g.Len())
	for _, in := range g.Instances() {
		out[in.Name] = in.Stale
	}
	return out
}

// TestStaleness_MissingOnly_AllMissing marks every instance stale when no
// output exists yet.
func TestStaleness_MissingOnly_AllMissing(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src.txt", time.Now())

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, MissingOnly))

	stale := staleByName(g)
	assert.True(t, stale["MakeMid[]"])
	assert.True(t, stale["MakeTop[]"])
}

// TestStaleness_MissingOnly_IgnoresTimestamps leaves everything fresh when
// all outputs exist, even with a dependency newer than its consumer.
func TestStaleness_MissingOnly_IgnoresTimestamps(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, root, "mid.txt", base)
	touch(t, root, "top.txt", base.Add(time.Minute))
	touch(t, root, "src.txt", base.Add(2*time.Minute)) // newer than both

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, MissingOnly))

	stale := staleByName(g)
	assert.False(t, stale["MakeMid[]"])
	assert.False(t, stale["MakeTop[]"])
}

// TestStaleness_MissingOnly_TransitiveForcing forces a downstream rebuild
// when a producer will run, even though the downstream file exists.
func TestStaleness_MissingOnly_TransitiveForcing(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src.txt", time.Now())
	touch(t, root, "top.txt", time.Now())
	// mid.txt missing: MakeMid runs, so MakeTop must too.

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, MissingOnly))

	stale := staleByName(g)
	assert.True(t, stale["MakeMid[]"])
	assert.True(t, stale["MakeTop[]"])
}

// TestStaleness_RedoIfModified_UpToDate keeps a properly ordered chain fresh.
func TestStaleness_RedoIfModified_UpToDate(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, root, "src.txt", base)
	touch(t, root, "mid.txt", base.Add(time.Minute))
	touch(t, root, "top.txt", base.Add(2*time.Minute))

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, RedoIfModified))

	stale := staleByName(g)
	assert.False(t, stale["MakeMid[]"])
	assert.False(t, stale["MakeTop[]"])
}

// TestStaleness_RedoIfModified_LeafNewer cascades a touched leaf through the
// whole chain.
func TestStaleness_RedoIfModified_LeafNewer(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, root, "mid.txt", base)
	touch(t, root, "top.txt", base.Add(time.Minute))
	touch(t, root, "src.txt", base.Add(2*time.Minute))

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, RedoIfModified))

	stale := staleByName(g)
	assert.True(t, stale["MakeMid[]"], "leaf newer than output")
	assert.True(t, stale["MakeTop[]"], "forced by stale producer")
}

// TestStaleness_RedoIfModified_SubSecondModification keeps full mtime
// precision: a dependency touched within the same second as its consumer's
// output, but strictly later, still triggers a rebuild.
func TestStaleness_RedoIfModified_SubSecondModification(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	touch(t, root, "mid.txt", base)
	touch(t, root, "top.txt", base.Add(300*time.Millisecond))
	touch(t, root, "src.txt", base.Add(700*time.Millisecond))

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, RedoIfModified))

	stale := staleByName(g)
	assert.True(t, stale["MakeMid[]"], "src.txt is newer than mid.txt")
	assert.True(t, stale["MakeTop[]"], "forced by stale producer")
}

// TestStaleness_RedoIfModified_MidNewerThanTop rebuilds only the tail of the
// chain when an intermediate was touched.
func TestStaleness_RedoIfModified_MidNewerThanTop(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, root, "src.txt", base)
	touch(t, root, "top.txt", base.Add(time.Minute))
	touch(t, root, "mid.txt", base.Add(2*time.Minute))

	g := buildChain(t, root)
	require.NoError(t, EvaluateStaleness(g, RedoIfModified))

	stale := staleByName(g)
	assert.False(t, stale["MakeMid[]"])
	assert.True(t, stale["MakeTop[]"])
}

// TestStaleness_RedoIfModified_OldestOutputRule compares dependencies
// against the oldest generated file, so one regenerated output does not
// mask a sibling left behind.
func TestStaleness_RedoIfModified_OldestOutputRule(t *testing.T) {
	spec := &model.Spec{
		Files: []model.FileAlias{
			{Name: "src", PathTemplate: "src.txt"},
			{Name: "out1", PathTemplate: "out1.txt"},
			{Name: "out2", PathTemplate: "out2.txt"},
		},
		Tasks: []model.TaskDefinition{
			{Name: "Gen", Command: "gen", Dependencies: []string{"src"}, Generates: []string{"out1", "out2"}},
		},
	}
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, root, "out1.txt", base)
	touch(t, root, "src.txt", base.Add(time.Minute))
	touch(t, root, "out2.txt", base.Add(2*time.Minute))

	g, err := NewBuilder(spec, root).Build("out1", nil)
	require.NoError(t, err)
	require.NoError(t, EvaluateStaleness(g, RedoIfModified))

	assert.True(t, g.Targets()[0].Stale)
}

// TestStaleness_MissingLeafFile fails the pass when a leaf disappeared
// between graph construction and evaluation.
func TestStaleness_MissingLeafFile(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src.txt", time.Now())

	g := buildChain(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, "src.txt")))

	err := EvaluateStaleness(g, MissingOnly)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src")
}
