package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continual-gem/nn"
)

func writeExperience(t *testing.T, dir, name string, classA, classB int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 12; i++ {
		v, y := 1+float64(i%3)/3, classA
		if i%2 == 1 {
			v, y = -v, classB
		}
		fmt.Fprintf(&b, "%g,%g,%d\n", v, float64(i%4)/4, y)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeExperience(t, dir, "exp0.csv", 0, 1)
	b := writeExperience(t, dir, "exp1.csv", 2, 3)
	out := filepath.Join(dir, "out", "model.json")

	v.Set("model.hidden", []int{4})
	rootCmd.SetArgs([]string{"train", a, b,
		"--epochs", "2", "--batch", "4", "--patterns", "3", "--init", "", "--out", out,
		"--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	m, err := nn.NewMLP([]int{2, 4, 4}, 0)
	require.NoError(t, err)
	runID, err := nn.LoadModelJSON(out, m)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
}

func TestTrainCommandInitialWeights(t *testing.T) {
	dir := t.TempDir()
	a := writeExperience(t, dir, "exp0.csv", 0, 1)
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	run := func(args ...string) error {
		base := []string{"train", a, "--epochs", "1", "--batch", "4", "--patterns", "3", "--log-level", "error"}
		rootCmd.SetArgs(append(base, args...))
		return rootCmd.Execute()
	}

	v.Set("model.hidden", []int{4})
	require.NoError(t, run("--init", "", "--out", first))

	// negligible learning rate: the second run must end exactly where the first one did
	require.NoError(t, run("--init", first, "--lr", "1e-300", "--out", second))
	want, _ := nn.NewMLP([]int{2, 4, 2}, 0)
	got, _ := nn.NewMLP([]int{2, 4, 2}, 0)
	_, err := nn.LoadModelJSON(first, want)
	require.NoError(t, err)
	_, err = nn.LoadModelJSON(second, got)
	require.NoError(t, err)
	for i, p := range want.Parameters() {
		assert.Equal(t, p.Value.Data, got.Parameters()[i].Value.Data, p.Name)
	}

	err = run("--init", filepath.Join(dir, "missing.json"), "--lr", "0.1", "--out", "")
	assert.ErrorContains(t, err, "loading initial weights")

	v.Set("model.hidden", []int{5})
	err = run("--init", first, "--out", "")
	assert.ErrorContains(t, err, "loading initial weights")
	v.Set("model.hidden", []int{4})
}
