package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"

	"go.trai.ch/pakt/internal/adapters/index"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports/mocks"
)

func TestComposite_FirstBackendWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := domain.NewIdentity("demo")
	want := []domain.Artifact{{Identity: id, Version: "1.0.0", SHA256: "aa"}}

	first := mocks.NewMockCandidateIndex(ctrl)
	first.EXPECT().ListCandidates(gomock.Any(), id).Return(want, nil)
	// The second backend must not be consulted.
	second := mocks.NewMockCandidateIndex(ctrl)

	c := index.NewComposite(first, second)
	got, err := c.ListCandidates(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComposite_FallsThroughUnknownPackage(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := domain.NewIdentity("demo")
	want := []domain.Artifact{{Identity: id, Version: "1.0.0", SHA256: "aa"}}

	first := mocks.NewMockCandidateIndex(ctrl)
	first.EXPECT().ListCandidates(gomock.Any(), id).
		Return(nil, zerr.With(domain.ErrUnknownPackage, "package", "demo"))
	second := mocks.NewMockCandidateIndex(ctrl)
	second.EXPECT().ListCandidates(gomock.Any(), id).Return(want, nil)

	c := index.NewComposite(first, second)
	got, err := c.ListCandidates(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComposite_PropagatesRealErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := domain.NewIdentity("demo")
	boom := zerr.New("index unreachable")

	first := mocks.NewMockCandidateIndex(ctrl)
	first.EXPECT().ListCandidates(gomock.Any(), id).Return(nil, boom)
	// A transport failure stops the fan-out; falling through could silently
	// resolve against a stale lower-priority backend.
	second := mocks.NewMockCandidateIndex(ctrl)

	c := index.NewComposite(first, second)
	_, err := c.ListCandidates(context.Background(), id)
	require.ErrorIs(t, err, boom)
}

func TestComposite_AllBackendsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := domain.NewIdentity("ghost")

	first := mocks.NewMockCandidateIndex(ctrl)
	first.EXPECT().ListCandidates(gomock.Any(), id).Return(nil, domain.ErrUnknownPackage)
	second := mocks.NewMockCandidateIndex(ctrl)
	second.EXPECT().ListCandidates(gomock.Any(), id).Return(nil, domain.ErrUnknownPackage)

	c := index.NewComposite(first, second)
	_, err := c.ListCandidates(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestComposite_Dependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	art := domain.Artifact{Identity: domain.NewIdentity("demo"), Version: "1.0.0"}
	want := []domain.Requirement{{Identity: domain.NewIdentity("lib"), Via: "demo==1.0.0"}}

	first := mocks.NewMockCandidateIndex(ctrl)
	first.EXPECT().Dependencies(gomock.Any(), art).Return(nil, domain.ErrUnknownPackage)
	second := mocks.NewMockCandidateIndex(ctrl)
	second.EXPECT().Dependencies(gomock.Any(), art).Return(want, nil)

	c := index.NewComposite(first, second)
	got, err := c.Dependencies(context.Background(), art)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComposite_Empty(t *testing.T) {
	c := index.NewComposite()
	_, err := c.ListCandidates(context.Background(), domain.NewIdentity("demo"))
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}
