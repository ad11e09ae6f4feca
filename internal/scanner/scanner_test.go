package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSScannerWalkFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.JPG"), []byte("x"), 0o644))

	s := NewFSScanner()
	entries, errs := s.Walk(context.Background(), dir, []string{".jpg"})

	var paths []string
	for e := range entries {
		paths = append(paths, e.Path)
	}
	require.NoError(t, <-errs)

	assert.Len(t, paths, 2)
}
