package materialize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/zerr"
)

// fetchRetries bounds transport-level retry attempts per download.
const fetchRetries = 3

// fetch downloads url to dest. Transient transport failures and server
// errors are retried with exponential backoff; content verification happens
// in the caller, after the download, and is never retried.
func (m *Materializer) fetch(ctx context.Context, url, dest string) error {
	if strings.HasPrefix(url, "file://") {
		return copyLocal(strings.TrimPrefix(url, "file://"), dest)
	}

	op := func() error {
		return m.fetchOnce(ctx, url, dest)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return zerr.With(zerr.Wrap(err, "downloading artifact"), "url", url)
	}
	return nil
}

func (m *Materializer) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // response body

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		return zerr.With(zerr.New("index server error"), "status", resp.StatusCode)
	default:
		return backoff.Permanent(zerr.With(zerr.New("unexpected index response"), "status", resp.StatusCode))
	}

	f, err := os.Create(dest) //nolint:gosec // cache scratch path
	if err != nil {
		return backoff.Permanent(err)
	}

	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

func copyLocal(src, dest string) error {
	in, err := os.Open(src) //nolint:gosec // manifest-configured local directory
	if err != nil {
		return zerr.Wrap(err, "opening local artifact")
	}
	defer in.Close() //nolint:errcheck // read-only file

	out, err := os.Create(dest) //nolint:gosec // cache scratch path
	if err != nil {
		return zerr.Wrap(err, "creating artifact file")
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return zerr.Wrap(err, "copying local artifact")
	}
	return nil
}

// verify checks the downloaded file against the artifact's hash of record. A
// mismatch is fatal for the job; it is never retried.
func verify(path string, artifact domain.Artifact) error {
	f, err := os.Open(path) //nolint:gosec // cache scratch path
	if err != nil {
		return zerr.Wrap(err, "opening downloaded artifact")
	}
	defer f.Close() //nolint:errcheck // read-only file

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return zerr.Wrap(err, "hashing downloaded artifact")
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != artifact.SHA256 {
		err := zerr.With(domain.ErrHashMismatch, "package", artifact.Identity.String())
		err = zerr.With(err, "expected", artifact.SHA256)
		err = zerr.With(err, "actual", actual)
		return err
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}
