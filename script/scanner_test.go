package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func versions(scripts []*Script) []int64 {
	v := make([]int64, 0, len(scripts))
	for _, s := range scripts {
		v = append(v, s.Version)
	}
	return v
}

func TestScanOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/up/10_ten.sql":   {Data: []byte("ten")},
		"scripts/up/2_two.sql":    {Data: []byte("two")},
		"scripts/up/001_one.sql":  {Data: []byte("one")},
		"scripts/up/README.md":    {Data: []byte("docs")},
		"scripts/up/nested/3.sql": {Data: []byte("ignored")},
	}
	s := &FolderScanner{FS: fsys}

	scripts, skipped, err := s.Scan("scripts/up", Up, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 10}, versions(scripts))
	assert.Equal(t, []string{"README.md"}, skipped)
	assert.Equal(t, "one", scripts[0].Content)
	assert.Equal(t, "001_one.sql", scripts[0].Name)
	assert.Equal(t, Up, scripts[2].Category)
}

func TestScanFiltersEnvironments(t *testing.T) {
	fsys := fstest.MapFS{
		"down/1_all.sql":        {Data: []byte("all")},
		"down/2_seed.stage.sql": {Data: []byte("stage")},
		"down/3_seed.prod.sql":  {Data: []byte("prod")},
		"down/4_seed.Stage.sql": {Data: []byte("stage too")},
	}
	s := &FolderScanner{FS: fsys}

	tt := []struct {
		environments []string
		expected     []int64
	}{
		{environments: nil, expected: []int64{1, 2, 3, 4}},
		{environments: []string{"prod"}, expected: []int64{1, 3}},
		{environments: []string{"stage"}, expected: []int64{1, 2, 4}},
		{environments: []string{"stage", "prod"}, expected: []int64{1, 2, 3, 4}},
		{environments: []string{"test"}, expected: []int64{1}},
	}

	for _, tc := range tt {
		scripts, _, err := s.Scan("down", Down, tc.environments)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, versions(scripts), "environments %v", tc.environments)
	}
}

func TestScanMissingFolder(t *testing.T) {
	s := &FolderScanner{FS: fstest.MapFS{"up/1_a.sql": {Data: []byte("a")}}}

	scripts, skipped, err := s.Scan("term", Term, nil)
	require.NoError(t, err)
	assert.Empty(t, scripts)
	assert.Empty(t, skipped)
}

func TestScanDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"up/1_a.sql":      {Data: []byte("a")},
		"up/1_b.sql":      {Data: []byte("b")},
		"up/2_c.dev.sql":  {Data: []byte("c dev")},
		"up/2_c.prod.sql": {Data: []byte("c prod")},
	}
	s := &FolderScanner{FS: fsys}

	_, _, err := s.Scan("up", Up, []string{"dev"})
	require.Error(t, err)

	var dup ErrDuplicateScript
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "1_a.sql", dup.Existing.Name)
	assert.Equal(t, "1_b.sql", dup.Script.Name)

	// without an environment both version 2 scripts are selected
	_, _, err = s.Scan("up", Up, nil)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
}

func TestScanInvalidVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"up/1_a.sql":                    {Data: []byte("a")},
		"up/99999999999999999999_b.sql": {Data: []byte("b")},
	}
	s := &FolderScanner{FS: fsys}

	scripts, _, err := s.Scan("up", Up, nil)
	assert.Nil(t, scripts)

	var invalid ErrInvalidVersion
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "99999999999999999999_b.sql", invalid.Filename)
}

func TestScanOperatingSystemFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_b.sql"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_a.sql"), []byte("a"), 0o644))

	s := NewFolderScanner()
	scripts, _, err := s.Scan(dir, Init, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, versions(scripts))

	scripts, _, err = s.Scan(filepath.Join(dir, "missing"), Init, nil)
	require.NoError(t, err)
	assert.Empty(t, scripts)
}
