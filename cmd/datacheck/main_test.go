package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/schema"
)

const peopleSchema = `name: cli-people
files:
  - name: person
    path: person.csv
    columns:
      - name: id
        type: long
        save: person.id
      - name: name
        type: string
  - name: knows
    path: knows.csv
    columns:
      - name: a
        type: long
        check: person.id
      - name: b
        type: long
        check: person.id
`

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DB_URL", "REDIS_URL", "CHECK_SCHEMA_FILES", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	t.Setenv("CHECK_REF_BACKEND", "memory")
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--color", "off"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheck_Passes(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	schemaPath := filepath.Join(root, "people.yaml")
	writeFiles(t, root, map[string]string{"people.yaml": peopleSchema})
	writeFiles(t, filepath.Join(root, "data"), map[string]string{
		"person.csv": "1|Ana\n2|Bo\n",
		"knows.csv":  "1|2\n",
	})

	out, err := execute(t, "check", "--dataset", schemaPath, "--policy", "terminate",
		"--format", "text", "--max-violations=-1", filepath.Join(root, "data"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "person")
}

func TestCheck_FailsWithJSONReport(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	schemaPath := filepath.Join(root, "people.yaml")
	writeFiles(t, root, map[string]string{"people.yaml": peopleSchema})
	writeFiles(t, filepath.Join(root, "data"), map[string]string{
		"person.csv": "1|Ana\n",
		"knows.csv":  "1|7\n8|1\n",
	})

	out, err := execute(t, "check", "--dataset", schemaPath, "--policy", "collect",
		"--format", "json", "--max-violations=0", filepath.Join(root, "data"))
	require.ErrorIs(t, err, errChecksFailed)

	var rep runner.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, runner.StatusFailed, rep.Status)
	assert.Equal(t, runner.PolicyCollect, rep.Policy)
	assert.Equal(t, 2, rep.Total)
	assert.Len(t, rep.Violations, 2)
}

func TestCheck_BadFormat(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "check", "--format", "xml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errChecksFailed)
}

func TestSchemasShow_LoadsBack(t *testing.T) {
	isolateEnv(t)
	for _, format := range []string{"yaml", "toml", "json"} {
		t.Run(format, func(t *testing.T) {
			out, err := execute(t, "schemas", "show", "snb-social", "--format", format)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "snb."+format)
			require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

			got, err := schema.Load(path)
			require.NoError(t, err)
			want, _ := schema.Get("snb-social")
			assert.Equal(t, want.Name, got.Name)
			assert.Len(t, got.Files, len(want.Files))
		})
	}
}

func TestSchemasValidate(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.yaml": peopleSchema,
		"bad.yaml":  "name: broken\nfiles:\n  - name: x\n    path: x.csv\n    columns:\n      - name: id\n        type: decimal\n",
	})

	out, err := execute(t, "schemas", "validate", filepath.Join(dir, "good.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	out, err = execute(t, "schemas", "validate", filepath.Join(dir, "good.yaml"), filepath.Join(dir, "bad.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, err.Error(), "1 of 2")
}
