package patch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

const replaceDiff = `--- a/target.txt
+++ b/target.txt
@@ -1 +1 @@
-bad
+good
`

func TestApplyReplacesLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "target.txt", "bad\n")

	require.NoError(t, Apply(replaceDiff, dir))
	require.Equal(t, "good\n", readFile(t, path))
}

func TestApplyTwiceFailsWithRemovalMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "target.txt", "bad\n")

	require.NoError(t, Apply(replaceDiff, dir))

	err := Apply(replaceDiff, dir)
	require.ErrorIs(t, err, ErrRemovalMismatch)
	require.Equal(t, "good\n", readFile(t, path), "failed apply must not corrupt the file")
}

func TestApplyCreatesFile(t *testing.T) {
	dir := t.TempDir()
	diffText := `--- /dev/null
+++ b/pkg/new.go
@@ -0,0 +1,2 @@
+package pkg
+// fresh file
`
	require.NoError(t, Apply(diffText, dir))
	require.Equal(t, "package pkg\n// fresh file\n", readFile(t, filepath.Join(dir, "pkg", "new.go")))
}

func TestApplyCreatesFileWithoutTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	diffText := "--- /dev/null\n+++ b/notes.txt\n@@ -0,0 +1 @@\n+just one line\n\\ No newline at end of file\n"

	require.NoError(t, Apply(diffText, dir))
	require.Equal(t, "just one line", readFile(t, filepath.Join(dir, "notes.txt")))
}

func TestApplyRejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "escape.txt")
	root := filepath.Join(dir, "work")
	require.NoError(t, os.MkdirAll(root, 0755))

	diffText := `--- /dev/null
+++ b/../escape.txt
@@ -0,0 +1 @@
+pwned
`
	err := Apply(diffText, root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes the work tree")
	require.NoFileExists(t, outside)
}

func TestApplyMultiFile(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "alpha\n")
	two := writeFile(t, dir, "two.txt", "beta\n")

	diffText := `--- a/one.txt
+++ b/one.txt
@@ -1 +1 @@
-alpha
+ALPHA
--- a/two.txt
+++ b/two.txt
@@ -1 +1 @@
-beta
+BETA
`
	require.NoError(t, Apply(diffText, dir))
	require.Equal(t, "ALPHA\n", readFile(t, one))
	require.Equal(t, "BETA\n", readFile(t, two))
}

func TestApplyPreservesLinesOutsideHunks(t *testing.T) {
	dir := t.TempDir()
	content := "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\n"
	path := writeFile(t, dir, "long.txt", content)

	diffText := `--- a/long.txt
+++ b/long.txt
@@ -1,3 +1,3 @@
 l1
-l2
+L2
 l3
@@ -7,3 +7,3 @@
 l7
-l8
+L8
 l9
`
	require.NoError(t, Apply(diffText, dir))
	require.Equal(t, "l1\nL2\nl3\nl4\nl5\nl6\nl7\nL8\nl9\n", readFile(t, path))
}

func TestApplyMalformedHunkHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "target.txt", "bad\n")

	diffText := "--- a/target.txt\n+++ b/target.txt\n@@ nonsense @@\n-bad\n+good\n"
	err := Apply(diffText, dir)
	require.Error(t, err)
	require.Equal(t, "bad\n", readFile(t, filepath.Join(dir, "target.txt")))
}

func TestApplyContextMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "target.txt", "drifted\nkeep\n")

	diffText := `--- a/target.txt
+++ b/target.txt
@@ -1,2 +1,2 @@
 original
-keep
+kept
`
	err := Apply(diffText, dir)
	require.ErrorIs(t, err, ErrContextMismatch)
	require.Equal(t, "drifted\nkeep\n", readFile(t, filepath.Join(dir, "target.txt")))
}

func TestApplyNoNewlineMarker(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "target.txt", "old")

	diffText := "--- a/target.txt\n+++ b/target.txt\n@@ -1 +1 @@\n-old\n\\ No newline at end of file\n+new\n\\ No newline at end of file\n"
	require.NoError(t, Apply(diffText, dir))
	require.Equal(t, "new", readFile(t, path))
}

func TestApplyFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "alpha\n")
	writeFile(t, dir, "two.txt", "drifted\n")

	diffText := `--- a/one.txt
+++ b/one.txt
@@ -1 +1 @@
-alpha
+ALPHA
--- a/two.txt
+++ b/two.txt
@@ -1 +1 @@
-beta
+BETA
`
	err := Apply(diffText, dir)
	require.ErrorIs(t, err, ErrRemovalMismatch)
	require.Equal(t, "alpha\n", readFile(t, one), "earlier file must be untouched when a later file fails")
}

func TestApplyEmptyDocument(t *testing.T) {
	err := Apply("", t.TempDir())
	require.ErrorIs(t, err, ErrNoFiles)
}
