package build_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/adapters/build"
)

func writeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "demo-1.0.0.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractArchive_TarGz(t *testing.T) {
	archive := writeTarGz(t, map[string]string{
		"demo-1.0.0/setup.py":         "from setuptools import setup\n",
		"demo-1.0.0/demo/__init__.py": "",
	})
	dest := t.TempDir()

	require.NoError(t, build.ExtractArchive(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "demo-1.0.0", "setup.py"))
	require.NoError(t, err)
	require.Contains(t, string(data), "setuptools")
}

func TestExtractArchive_Zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("demo-1.0.0/pyproject.toml")
	require.NoError(t, err)
	_, err = w.Write([]byte("[build-system]\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	archive := filepath.Join(t.TempDir(), "demo-1.0.0.zip")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))
	dest := t.TempDir()

	require.NoError(t, build.ExtractArchive(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "demo-1.0.0", "pyproject.toml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "build-system")
}

func TestExtractArchive_RejectsEscapingEntries(t *testing.T) {
	archive := writeTarGz(t, map[string]string{
		"../evil.txt": "pwned",
	})
	dest := t.TempDir()

	err := build.ExtractArchive(archive, dest)
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestExtractArchive_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.rar")
	require.NoError(t, os.WriteFile(path, []byte("xx"), 0o644))

	err := build.ExtractArchive(path, t.TempDir())
	require.ErrorIs(t, err, build.ErrUnsupportedArchive)
}
