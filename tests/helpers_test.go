package tests_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// exportHeader is passed as --bands, since the fixtures carry only three of the default bands.
const exportHeader = "25.1188643150958,31.6227766016838,39.8107170553497"

// writeExport writes a three-band PAMGuide export, one row per level, every band at that level.
func writeExport(helpers test.Helpers, path string, levels []float64) {
	lines := []string{exportHeader}

	for _, level := range levels {
		cell := strconv.FormatFloat(level, 'g', -1, 64)
		lines = append(lines, strings.Join([]string{cell, cell, cell}, ","))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		helpers.T().Log(err.Error())
		helpers.T().Fail()
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		helpers.T().Log(err.Error())
		helpers.T().Fail()
	}
}

// quietWithBursts returns rows at a steady level with a burst of loud rows at each given index.
func quietWithBursts(rows int, bursts ...int) []float64 {
	levels := make([]float64, rows)
	for i := range levels {
		levels[i] = 50
	}

	for _, idx := range bursts {
		levels[idx] = 85
	}

	return levels
}

// rawDataset lays out two months of exports and returns the raw root.
func rawDataset(data test.Data, helpers test.Helpers) string {
	root := data.Temp().Path("raw")

	writeExport(helpers,
		filepath.Join(root, "2018_10", "ICLISTENHF1266_20181003T120000.000Z_TOL_1sHannWindow_50PercentOverlap.csv"),
		quietWithBursts(40, 10, 11, 12, 30))
	writeExport(helpers,
		filepath.Join(root, "2018_11", "ICLISTENHF1266_20181105T000000.000Z_TOL_1sHannWindow_50PercentOverlap.csv"),
		quietWithBursts(40, 20))

	return root
}

// expectContains returns a comparator verifying the output contains a substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectFiles returns a comparator verifying the given files exist under dir.
func expectFiles(dir string, names ...string) test.Comparator {
	return func(_ string, testing tig.T) {
		testing.Helper()

		for _, name := range names {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				testing.Log(fmt.Sprintf("expected %s in %s: %v", name, dir, err))
				testing.Fail()
			}
		}
	}
}

// expectLines returns a comparator verifying a CSV file holds the given number of data rows.
func expectLines(path string, rows int) test.Comparator {
	return func(_ string, testing tig.T) {
		testing.Helper()

		content, err := os.ReadFile(path) //nolint:gosec // test output
		if err != nil {
			testing.Log(err.Error())
			testing.Fail()

			return
		}

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		if len(lines)-1 != rows {
			testing.Log(fmt.Sprintf("expected %d rows in %s, got %d:\n%s", rows, path, len(lines)-1, content))
			testing.Fail()
		}
	}
}
