package build

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/zerr"
)

// ErrUnsupportedArchive is returned for archive formats the extractor does not
// understand.
var ErrUnsupportedArchive = zerr.New("unsupported archive format")

// ErrEntryTooLarge is returned when a single archive entry exceeds the
// extraction size limit.
var ErrEntryTooLarge = zerr.New("archive entry exceeds size limit")

// extractFileLimit caps the size of a single extracted file. A variable so
// tests can lower it.
var extractFileLimit int64 = 1 << 30

// ExtractArchive unpacks a source archive into dest. Gzipped tarballs and zip
// files are supported. Entries escaping dest are rejected.
func ExtractArchive(archivePath, dest string) error {
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTarGz(archivePath, dest)
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZip(archivePath, dest)
	default:
		return zerr.With(ErrUnsupportedArchive, "path", archivePath)
	}
}

func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath) //nolint:gosec // cache-managed path
	if err != nil {
		return zerr.Wrap(err, "opening archive")
	}
	defer f.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(f)
	if err != nil {
		return zerr.Wrap(err, "reading gzip stream")
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "reading tar entry")
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return zerr.Wrap(err, "creating directory")
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Symlinks and special files are dropped. Source archives for
			// builds should not contain them.
		}
	}
}

func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return zerr.Wrap(err, "opening zip archive")
	}
	defer zr.Close() //nolint:errcheck // read-only archive

	for _, entry := range zr.File {
		target, err := securePath(dest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return zerr.Wrap(err, "creating directory")
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return zerr.Wrap(err, "opening zip entry")
		}
		err = writeEntry(target, rc, entry.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// securePath joins name under dest and rejects entries that would escape it.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", zerr.With(zerr.New("archive entry escapes destination"), "entry", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return zerr.Wrap(err, "creating parent directory")
	}

	if perm&0o200 == 0 {
		perm |= 0o200
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // path validated by securePath
	if err != nil {
		return zerr.Wrap(err, "creating file")
	}

	// Read one byte past the limit so an oversized entry fails instead of
	// landing truncated on disk.
	n, err := io.Copy(f, io.LimitReader(r, extractFileLimit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return zerr.Wrap(err, "writing file")
	}
	if n > extractFileLimit {
		_ = os.Remove(target)
		return zerr.With(ErrEntryTooLarge, "entry", target)
	}
	return nil
}
