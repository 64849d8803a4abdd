package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/frame-sieve/sieve/dedup"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/filesystem/common"
	"github.com/ZanzyTHEbar/frame-sieve/sieve/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, v uint8) {
	t.Helper()
	g := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, g))
	require.NoError(t, f.Close())
}

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	content := "sieve:\n" +
		"  datasetDir: " + filepath.Join(root, "dataset") + "\n" +
		"  essentialsDir: " + filepath.Join(root, "essentials") + "\n" +
		"  nonessentialDir: " + filepath.Join(root, "nonessential") + "\n" +
		"log:\n" +
		"  dir: " + filepath.Join(root, "logs") + "\n"
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommandClassifiesDataset(t *testing.T) {
	root := t.TempDir()
	dataset := filepath.Join(root, "dataset")
	require.NoError(t, os.Mkdir(dataset, 0o755))
	writePNG(t, filepath.Join(dataset, "a.png"), 40)
	writePNG(t, filepath.Join(dataset, "b.png"), 40)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"--config", writeConfig(t, root)})

	require.NoError(t, rootCmd.Execute())

	assert.FileExists(t, filepath.Join(root, "essentials", "a.png"))
	assert.FileExists(t, filepath.Join(root, "nonessential", "b.png"))
	assert.DirExists(t, filepath.Join(root, "dataset.copy"))

	logs, err := filepath.Glob(filepath.Join(root, "logs", "image_processor_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.Contains(t, out.String(), "Classification summary")
	assert.Contains(t, out.String(), "Listed:        2")
	assert.Contains(t, out.String(), "File ops:      2 moved / 2 copied")
	assert.Contains(t, out.String(), "a.png -> "+filepath.Join(root, "essentials", "a.png"))
	assert.Contains(t, out.String(), "b.png -> "+filepath.Join(root, "nonessential", "b.png"))
}

func TestPrintSummaryListsOutcomes(t *testing.T) {
	shot := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	report := &dedup.Report{
		Listed:  2,
		FileOps: common.OperationStats{Operations: 3, Moves: 2, Copies: 1, BytesCopied: 42},
		Outcomes: []dedup.Outcome{
			{Path: "/data/a.png", State: ledger.Essential, Destination: "/keep/a.png", CapturedAt: shot},
			{Path: "/data/b.png", State: ledger.Errored, Errors: 1},
		},
	}

	var out bytes.Buffer
	printSummary(&out, report, "")

	assert.Contains(t, out.String(), "File ops:      2 moved / 1 copied (42 bytes)")
	assert.Contains(t, out.String(), "a.png -> /keep/a.png (captured 2024-03-09 14:05:07)")
	assert.Contains(t, out.String(), "errored")
	assert.NotContains(t, out.String(), "b.png ->")
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	root := t.TempDir()
	cmd := rootCmd
	require.NoError(t, cmd.Flags().Set("config", writeConfig(t, root)))
	require.NoError(t, cmd.Flags().Set("dataset", filepath.Join(root, "frames")))
	require.NoError(t, cmd.Flags().Set("threshold", "1234"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))
	t.Cleanup(func() {
		for _, name := range []string{"config", "dataset", "threshold", "dry-run"} {
			f := cmd.Flags().Lookup(name)
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "frames"), cfg.Sieve.DatasetDir)
	assert.Equal(t, filepath.Join(root, "essentials"), cfg.Sieve.EssentialsDir)
	assert.Equal(t, 1234.0, cfg.Sieve.Threshold)
	assert.True(t, cfg.Sieve.DryRun)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "sieve dev\n", out.String())
}
