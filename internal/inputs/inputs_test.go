package inputs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/testutil"
)

func TestDiscover(t *testing.T) {
	t.Run("finds both documents case insensitively", func(t *testing.T) {
		dir := t.TempDir()
		testutil.TouchFile(t, filepath.Join(dir, "labels-ups.PDF"))
		testutil.TouchFile(t, filepath.Join(dir, "fba15abcde-boxes.pdf"))
		testutil.TouchFile(t, filepath.Join(dir, "FBA15ABCDE.xlsx"))
		testutil.TouchFile(t, filepath.Join(dir, "notes.pdf"))

		pair, err := Discover(dir, DefaultPrefixes)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "fba15abcde-boxes.pdf"), pair.Boxes)
		assert.Equal(t, filepath.Join(dir, "labels-ups.PDF"), pair.Labels)
		assert.NoError(t, pair.Check())
	})

	t.Run("first in name order wins", func(t *testing.T) {
		dir := t.TempDir()
		testutil.TouchFile(t, filepath.Join(dir, "FBA2.pdf"))
		testutil.TouchFile(t, filepath.Join(dir, "FBA1.pdf"))
		testutil.TouchFile(t, filepath.Join(dir, "Labels.pdf"))

		pair, err := Discover(dir, DefaultPrefixes)
		require.NoError(t, err)
		assert.Equal(t, "FBA1.pdf", filepath.Base(pair.Boxes))
	})

	t.Run("missing labels", func(t *testing.T) {
		dir := t.TempDir()
		testutil.TouchFile(t, filepath.Join(dir, "FBA1.pdf"))

		_, err := Discover(dir, DefaultPrefixes)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingInput))

		var missing *MissingError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, document.RoleLabels, missing.Role)
		assert.Contains(t, err.Error(), "LABELS*.pdf")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Discover(filepath.Join(t.TempDir(), "nope"), DefaultPrefixes)
		assert.Error(t, err)
	})
}

func TestPair_Check(t *testing.T) {
	dir := t.TempDir()
	boxes := testutil.TouchFile(t, filepath.Join(dir, "FBA1.pdf"))

	err := Pair{Boxes: boxes, Labels: filepath.Join(dir, "gone.pdf")}.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInput))
	assert.Contains(t, err.Error(), "labels document")
	assert.Contains(t, err.Error(), "gone.pdf")

	err = Pair{Labels: boxes}.Check()
	assert.Contains(t, err.Error(), "boxes document")

	err = Pair{Boxes: dir, Labels: boxes}.Check()
	assert.True(t, errors.Is(err, ErrMissingInput))
}

func TestShipmentID(t *testing.T) {
	tests := []struct {
		path string
		sep  string
		want string
	}{
		{"/data/FBA15ABCDE-boxes.pdf", "-", "FBA15ABCDE"},
		{"FBA15ABCDE.pdf", "-", "FBA15ABCDE"},
		{"FBA15ABCDE-1-2.pdf", "-", "FBA15ABCDE"},
		{"FBA15ABCDE_boxes.pdf", "_", "FBA15ABCDE"},
		{"FBA15ABCDE-boxes.pdf", "", "FBA15ABCDE-boxes"},
		{"-lead.pdf", "-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ShipmentID(tt.path, tt.sep))
		})
	}
}
