package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseModelID(t *testing.T) {
	dataset, timestamp, err := ParseModelID("demo_data/20250101T120000")
	assert.NoError(t, err)
	assert.Equal(t, "demo_data", dataset)
	assert.Equal(t, "20250101T120000", timestamp)

	for _, malformed := range []string{
		"", "demo_data", "a/b/c", "/20250101T120000", "demo_data/",
		"../20250101T120000", "demo_data/..", "./20250101T120000", "demo_data/.",
	} {
		_, _, err := ParseModelID(malformed)
		assert.ErrorIs(t, err, ErrModelIDMalformed, "model_id=%q", malformed)
	}
}

func TestArtifactStoreRejectsTraversalModelID(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	assert.NoError(t, os.WriteFile(filepath.Join(store.Root, "outside.png"), []byte("x"), 0o644))

	_, err := store.ListPlots("../" + filepath.Base(store.Root))
	assert.ErrorIs(t, err, ErrModelIDMalformed)

	_, err = store.RunDir("models/..")
	assert.ErrorIs(t, err, ErrModelIDMalformed)
}

func TestArtifactStoreDatasetPath(t *testing.T) {
	store := NewArtifactStore("/data")

	p, err := store.DatasetPath("demo.csv")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "demo.csv"), p)

	_, err = store.DatasetPath("")
	assert.ErrorIs(t, err, ErrDatasetNameRequired)

	_, err = store.DatasetPath("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidDatasetName)

	_, err = NewArtifactStore("").DatasetPath("demo.csv")
	assert.ErrorIs(t, err, ErrArtifactStoreRootEmpty)
}

func TestArtifactStoreCreateRunDir(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	store.now = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	modelID, dir, err := store.CreateRunDir("demo_data.csv")
	assert.NoError(t, err)
	assert.Equal(t, "demo_data/20250314T150926", modelID)
	assert.DirExists(t, dir)
	assert.Equal(t,
		filepath.Join(store.Root, "models", "demo_data", "20250314T150926"), dir)

	_, _, err = store.CreateRunDir("")
	assert.ErrorIs(t, err, ErrDatasetNameRequired)
}

func TestArtifactStoreListPlots(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	_, err := store.ListPlots("not-a-model-id")
	assert.ErrorIs(t, err, ErrModelIDMalformed)

	_, err = store.ListPlots("demo/20250101T000000")
	assert.ErrorIs(t, err, ErrArtifactSetNotFound)

	dir := filepath.Join(store.Root, "models", "demo", "20250101T000000")
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{"roi.png", "posterior.png", "model.json"} {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	plots, err := store.ListPlots("demo/20250101T000000")
	assert.NoError(t, err)
	assert.Equal(t, []PlotRef{
		{Name: "posterior", URL: "/models/demo/20250101T000000/posterior.png"},
		{Name: "roi", URL: "/models/demo/20250101T000000/roi.png"},
	}, plots)
}

func TestArtifactStoreListPlotsNoImages(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	dir := filepath.Join(store.Root, "models", "demo", "20250101T000000")
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "model.json"), []byte("{}"), 0o644))

	_, err := store.ListPlots("demo/20250101T000000")
	assert.ErrorIs(t, err, ErrArtifactSetNotFound)
}

func TestArtifactStoreWriteDiagnostics(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	dir := t.TempDir()

	diag := Diagnostics{
		MediaCols:      []string{"tv_spend", "radio_spend"},
		ExtraCols:      []string{},
		TargetCol:      "sales",
		MediaEffectHat: []float64{0.4, 0.1},
		RoiHat:         []float64{2.5, 1.1},
	}
	assert.NoError(t, store.WriteDiagnostics(dir, diag))

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics.json"))
	assert.NoError(t, err)

	var decoded Diagnostics
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, diag, decoded)
}
