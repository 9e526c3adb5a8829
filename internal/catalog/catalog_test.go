package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.csv")

	content := "instance_id,repo,repo_language,problem_statement,requirements,interface\n"
	for _, r := range rows {
		content += r[0] + "," + r[1] + "," + r[2] + "," + r[3] + "," + r[4] + "," + r[5] + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeCatalogCSV(t, [][]string{
		{"instance_foo-bar-1", "Acme/Widgets", "go", "fix the bug", "none", "func Fix()"},
	})

	cat, err := Load(path)
	require.NoError(t, err)

	row, ok := cat.Lookup("instance_foo-bar-1")
	require.True(t, ok)
	assert.Equal(t, "Acme/Widgets", row.Repo)
	assert.Equal(t, "go", row.RepoLanguage)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.csv")
	content := "instance_id,repo,repo_language,problem_statement,requirements,interface\n" +
		"instance_ok,a/b,go,stmt,req,iface\n" +
		"this line has too few fields\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	_, ok := cat.Lookup("instance_ok")
	assert.True(t, ok)
}

func TestImageTag_Default(t *testing.T) {
	row := Row{InstanceID: "instance_abc123", Repo: "Acme/Widgets"}
	assert.Equal(t, "acme.widgets-abc123", ImageTag(row))
}

func TestImageTag_StripsTrailingVnan(t *testing.T) {
	row := Row{InstanceID: "instance_abc123-vnan", Repo: "Acme/Widgets"}
	assert.Equal(t, "acme.widgets-abc123", ImageTag(row))
}

func TestImageTag_ElementWebPinnedID(t *testing.T) {
	row := Row{
		InstanceID: "instance_element-hq__element-web-ec0f940ef0e8e3b61078f145f34dc40d1938e6c5-vnan",
		Repo:       "element-hq/element-web",
	}
	tag := ImageTag(row)
	assert.Equal(t, "element-hq.element-web-element-hq__element-web-ec0f940ef0e8e3b61078f145f34dc40d1938e6c5-vnan", tag)
}

func TestImageTag_OtherElementWebRow(t *testing.T) {
	row := Row{
		InstanceID: "instance_element-hq__element-web-deadbeef-vnan",
		Repo:       "element-hq/element-web",
	}
	assert.Equal(t, "element-hq.element-element-hq__element-web-deadbeef", ImageTag(row))
}

func TestImageTag_TruncatesTo128(t *testing.T) {
	longHash := ""
	for i := 0; i < 200; i++ {
		longHash += "a"
	}
	row := Row{InstanceID: "instance_" + longHash, Repo: "acme/widgets"}
	tag := ImageTag(row)
	assert.LessOrEqual(t, len(tag), 128)
}

func TestImageReference(t *testing.T) {
	row := Row{InstanceID: "instance_abc", Repo: "acme/widgets"}
	assert.Equal(t, "myregistry/base:acme.widgets-abc", ImageReference("myregistry/base", row))
}
