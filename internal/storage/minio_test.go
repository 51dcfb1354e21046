package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Guard paths run before the client is touched, so a zero-value store is
// enough; transfer behavior is covered by integration environments.

func TestMinioStoreArgumentGuards(t *testing.T) {
	s := &MinioStore{bucket: "files", publicBase: "http://localhost:9000/files"}
	ctx := context.Background()

	_, err := s.Upload(ctx, strings.NewReader(""), "a.txt", 0, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Upload(ctx, nil, "a.txt", 10, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Download(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = s.Delete(ctx, "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMinioStoreFileURL(t *testing.T) {
	s := &MinioStore{bucket: "files", publicBase: "http://localhost:9000/files"}

	url, err := s.FileURL("2024/11/26/x.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/files/2024/11/26/x.png", url)

	_, err = s.FileURL("")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
