// Package index provides the candidate index backends: a remote metadata
// API, a local artifact directory, and a closed world derived from an
// existing lock, plus a composite that fans out over several of them.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxFetchRetries       = 3
)

var _ ports.CandidateIndex = (*Remote)(nil)

// Remote queries a package index over HTTP. Metadata for an identity is
// fetched once per resolution run and served from memory afterwards, so
// ListCandidates and Dependencies hit the network at most once per package.
type Remote struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	cache map[domain.Identity]*packageMetadata
}

// NewRemote creates a Remote index client for the given base URL.
func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		cache:   make(map[domain.Identity]*packageMetadata),
	}
}

// packageMetadata mirrors the index's JSON document for one package.
type packageMetadata struct {
	Name     string                     `json:"name"`
	Versions map[string]versionMetadata `json:"versions"`
}

type versionMetadata struct {
	Artifacts []artifactMetadata `json:"artifacts"`
	Requires  []string           `json:"requires"`
}

type artifactMetadata struct {
	Filename string   `json:"filename"`
	URL      string   `json:"url"`
	SHA256   string   `json:"sha256"`
	Size     int64    `json:"size"`
	Tags     []string `json:"tags"`
}

// ListCandidates implements ports.CandidateIndex.
func (r *Remote) ListCandidates(ctx context.Context, id domain.Identity) ([]domain.Artifact, error) {
	meta, err := r.metadata(ctx, id)
	if err != nil {
		return nil, err
	}

	var artifacts []domain.Artifact
	for version, vm := range meta.Versions {
		for _, am := range vm.Artifacts {
			art, err := am.toDomain(id, version)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, art)
		}
	}
	if len(artifacts) == 0 {
		return nil, zerr.With(domain.ErrUnknownPackage, "package", id.String())
	}
	return artifacts, nil
}

// Dependencies implements ports.CandidateIndex.
func (r *Remote) Dependencies(ctx context.Context, artifact domain.Artifact) ([]domain.Requirement, error) {
	meta, err := r.metadata(ctx, artifact.Identity)
	if err != nil {
		return nil, err
	}
	vm, ok := meta.Versions[artifact.Version]
	if !ok {
		return nil, zerr.With(zerr.With(domain.ErrUnknownPackage,
			"package", artifact.Identity.String()), "version", artifact.Version)
	}

	reqs := make([]domain.Requirement, 0, len(vm.Requires))
	for _, raw := range vm.Requires {
		req, err := domain.ParseRequirement(raw)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "index dependency metadata"),
				"package", artifact.Identity.String())
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (am artifactMetadata) toDomain(id domain.Identity, version string) (domain.Artifact, error) {
	art := domain.Artifact{
		Identity: id,
		Version:  version,
		Kind:     domain.KindSource,
		URL:      am.URL,
		SHA256:   am.SHA256,
		Size:     am.Size,
	}
	if len(am.Tags) > 0 {
		art.Kind = domain.KindBinary
		for _, raw := range am.Tags {
			tag, err := domain.ParseTag(raw)
			if err != nil {
				return domain.Artifact{}, zerr.With(zerr.Wrap(err, "index artifact metadata"),
					"filename", am.Filename)
			}
			art.Tags = append(art.Tags, tag)
		}
	}
	return art, nil
}

func (r *Remote) metadata(ctx context.Context, id domain.Identity) (*packageMetadata, error) {
	r.mu.Lock()
	if meta, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return meta, nil
	}
	r.mu.Unlock()

	meta, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = meta
	r.mu.Unlock()
	return meta, nil
}

// fetch retrieves the metadata document with bounded retries on transient
// failures. 404 is definitive (unknown package) and never retried.
func (r *Remote) fetch(ctx context.Context, id domain.Identity) (*packageMetadata, error) {
	endpoint := fmt.Sprintf("%s/packages/%s", r.baseURL, url.PathEscape(id.String()))

	var meta *packageMetadata
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(zerr.Wrap(err, "failed to build index request"))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return zerr.Wrap(err, "index request failed")
		}
		defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(zerr.With(domain.ErrUnknownPackage, "package", id.String()))
		case resp.StatusCode >= 500:
			return zerr.With(zerr.New("index server error"), "status", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(zerr.With(zerr.New("unexpected index response"),
				"status", resp.StatusCode))
		}

		var decoded packageMetadata
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return zerr.Wrap(err, "failed to decode index response")
		}
		meta = &decoded
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(100*time.Millisecond)),
		maxFetchRetries,
	), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, zerr.With(zerr.Wrap(err, "index unavailable"), "package", id.String())
	}
	return meta, nil
}
