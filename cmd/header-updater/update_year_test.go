package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUpdateYear_BumpsHeaderYear(t *testing.T) {
	tmp := t.TempDir()
	path := writeTestFile(t, tmp, "file.go", `// Copyright 2026 Sonic Labs
package main
`)

	require.NoError(t, updateYear(tmp))

	assert.Contains(t, readTestFile(t, path), "// Copyright 2027 Sonic Labs")
}

func TestUpdateYear_BumpsAppCopyright(t *testing.T) {
	tmp := t.TempDir()
	path := writeTestFile(t, tmp, "cli.go", `
package main

var runCoverApp = &cli.App{
	Name:      "Contract coverage collector",
	Copyright: "(c) 2025 Sonic Labs",
}
`)

	require.NoError(t, updateYear(tmp))

	assert.Contains(t, readTestFile(t, path), `Copyright: "(c) 2026 Sonic Labs"`)
}

func TestUpdateYear_LeavesOtherFilesAlone(t *testing.T) {
	tmp := t.TempDir()
	goPath := writeTestFile(t, tmp, "other.go", "package main")
	txtPath := writeTestFile(t, tmp, "notes.txt", "// Copyright 2026 Sonic Labs")

	require.NoError(t, updateYear(tmp))

	assert.Equal(t, "package main", readTestFile(t, goPath))
	assert.Contains(t, readTestFile(t, txtPath), "2026")
}

func TestUpdateYear_SkipsMocks(t *testing.T) {
	tmp := t.TempDir()
	path := writeTestFile(t, tmp, "client_mock.go", `// Copyright 2026 Sonic Labs
package poller
`)

	require.NoError(t, updateYear(tmp))

	assert.Contains(t, readTestFile(t, path), "2026", "generated mocks must not be touched")
}
