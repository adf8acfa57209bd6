package build_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/adapters/build"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// emptyFileSHA256 is the digest of a zero-byte file.
const emptyFileSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func quietLogger(t *testing.T) ports.Logger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func testJob(t *testing.T) ports.BuildJob {
	t.Helper()
	target, err := domain.NewTargetEnvironment("cp", "3.11", "linux-x86_64", "cp311")
	require.NoError(t, err)
	return ports.BuildJob{
		Artifact: domain.Artifact{
			Identity: domain.NewIdentity("demo"),
			Version:  "1.0.0",
			Kind:     domain.KindSource,
		},
		Target:    target,
		SourceDir: t.TempDir(),
		OutputDir: t.TempDir(),
	}
}

func TestBackend_Build_Success(t *testing.T) {
	// The output directory and the source directory are appended to the
	// configured arguments, so they arrive as $1 and $2.
	backend := build.NewBackend("sh", []string{"-c", `touch "$1/demo-1.0.0-py3-none-any.whl"`}, quietLogger(t))
	require.True(t, backend.Available())

	job := testJob(t)
	result, err := backend.Build(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, "demo-1.0.0-py3-none-any.whl", filepath.Base(result.ArtifactPath))
	require.Equal(t, emptyFileSHA256, result.SHA256)

	// The artifact stays in the caller-owned output directory; the backend
	// creates no scratch of its own.
	require.Equal(t, job.OutputDir, filepath.Dir(result.ArtifactPath))
	_, err = os.Stat(result.ArtifactPath)
	require.NoError(t, err)
}

func TestBackend_Build_Failure(t *testing.T) {
	backend := build.NewBackend("sh", []string{"-c", `echo boom >&2; exit 3`}, quietLogger(t))

	_, err := backend.Build(context.Background(), testJob(t))
	require.ErrorIs(t, err, domain.ErrBuild)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)

	meta := zErr.Metadata()
	require.Equal(t, 3, meta["exit_code"])
	require.Contains(t, meta["log_tail"], "boom")
	require.Equal(t, "demo", meta["package"])
}

func TestBackend_Build_NoArtifactProduced(t *testing.T) {
	backend := build.NewBackend("sh", []string{"-c", "true"}, quietLogger(t))

	_, err := backend.Build(context.Background(), testJob(t))
	require.ErrorIs(t, err, domain.ErrBuild)
	require.Contains(t, err.Error(), "no artifact")
}

func TestBackend_Build_MultipleArtifactsRejected(t *testing.T) {
	backend := build.NewBackend("sh", []string{"-c", `touch "$1/a.whl" "$1/b.whl"`}, quietLogger(t))

	_, err := backend.Build(context.Background(), testJob(t))
	require.ErrorIs(t, err, domain.ErrBuild)
	require.Contains(t, err.Error(), "multiple artifacts")
}

func TestBackend_Available_MissingTool(t *testing.T) {
	backend := build.NewBackend("definitely-not-a-real-build-tool", nil, quietLogger(t))
	require.False(t, backend.Available())
}
