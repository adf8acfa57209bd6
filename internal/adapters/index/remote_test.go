package index_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/pakt/internal/adapters/index"
	"go.trai.ch/pakt/internal/core/domain"
)

const demoMetadata = `{
	"name": "demo",
	"versions": {
		"1.0.0": {
			"artifacts": [
				{
					"filename": "demo-1.0.0-py3-none-any.whl",
					"url": "https://files.example.test/demo-1.0.0-py3-none-any.whl",
					"sha256": "aa11",
					"size": 1234,
					"tags": ["py3-none-any"]
				},
				{
					"filename": "demo-1.0.0.tar.gz",
					"url": "https://files.example.test/demo-1.0.0.tar.gz",
					"sha256": "bb22",
					"size": 999
				}
			],
			"requires": ["lib>=1.0", "fast-lib; extra == \"fast\""]
		}
	}
}`

func TestRemote_ListCandidates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/packages/demo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, demoMetadata)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	artifacts, err := remote.ListCandidates(context.Background(), domain.NewIdentity("demo"))
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	byKind := map[domain.ArtifactKind]domain.Artifact{}
	for _, a := range artifacts {
		byKind[a.Kind] = a
	}

	wheel := byKind[domain.KindBinary]
	assert.Equal(t, "1.0.0", wheel.Version)
	assert.Equal(t, "aa11", wheel.SHA256)
	assert.Equal(t, int64(1234), wheel.Size)
	require.Len(t, wheel.Tags, 1)
	assert.Equal(t, "py3-none-any", wheel.Tags[0].String())

	sdist := byKind[domain.KindSource]
	assert.Equal(t, "bb22", sdist.SHA256)
	assert.Empty(t, sdist.Tags)
}

func TestRemote_Dependencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, demoMetadata)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	art := domain.Artifact{Identity: domain.NewIdentity("demo"), Version: "1.0.0"}

	reqs, err := remote.Dependencies(context.Background(), art)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "lib", reqs[0].Identity.String())
	assert.False(t, reqs[1].Marker.IsZero())

	art.Version = "9.9.9"
	_, err = remote.Dependencies(context.Background(), art)
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestRemote_MetadataFetchedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, demoMetadata)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	id := domain.NewIdentity("demo")

	_, err := remote.ListCandidates(context.Background(), id)
	require.NoError(t, err)
	_, err = remote.Dependencies(context.Background(),
		domain.Artifact{Identity: id, Version: "1.0.0"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
}

func TestRemote_NotFoundIsDefinitive(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	_, err := remote.ListCandidates(context.Background(), domain.NewIdentity("ghost"))
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
	assert.Equal(t, int32(1), hits.Load(), "404 must not be retried")
}

func TestRemote_ServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, demoMetadata)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	artifacts, err := remote.ListCandidates(context.Background(), domain.NewIdentity("demo"))
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRemote_EmptyDocumentIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name": "demo", "versions": {}}`)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	_, err := remote.ListCandidates(context.Background(), domain.NewIdentity("demo"))
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestRemote_MalformedTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name": "demo", "versions": {"1.0.0": {"artifacts": [
			{"filename": "demo.whl", "url": "u", "sha256": "aa", "tags": ["not-a"]}
		]}}}`)
	}))
	defer srv.Close()

	remote := index.NewRemote(srv.URL)
	_, err := remote.ListCandidates(context.Background(), domain.NewIdentity("demo"))
	require.Error(t, err)
}
