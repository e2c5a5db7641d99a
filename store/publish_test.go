package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "dt.json")
	labels := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`{"kind":"decision_tree"}`), 0o644))
	require.NoError(t, os.WriteFile(labels, []byte(`{"classes":["Good","Poor"]}`), 0o644))

	s := NewMemoryStore()
	keys, err := Publish(ctx, s, "performance", ModelFiles{Artifact: artifact, Labels: labels})
	require.NoError(t, err)
	assert.Equal(t, []string{ArtifactKey("performance"), LabelsKey("performance")}, keys)

	got, err := s.BatchGet(ctx, []string{ArtifactKey("performance"), MetaKey("performance"), LabelsKey("performance")})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, `{"classes":["Good","Poor"]}`, string(got[LabelsKey("performance")]))

	_, err = Publish(ctx, s, "x", ModelFiles{})
	assert.Error(t, err)
	_, err = Publish(ctx, s, "x", ModelFiles{Artifact: filepath.Join(dir, "missing.json")})
	assert.Error(t, err)
}
