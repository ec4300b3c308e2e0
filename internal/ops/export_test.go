package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
)

func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestExport_JSONL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()

	env.add(t, "bill", bill("Water", "42", "2024-03-05", "pending"))
	env.add(t, "wifi", wifi("Home", "pw", "Home"))
	env.kv.Put(household.LegacyWifiKey, `[{"id":7,"ssid":"Old"}]`)

	path := filepath.Join(dir, "all.jsonl")
	out, err := Export(ctx, env.store, exportConfig(dir), testNow, ExportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, path, out.Path)
	require.Equal(t, FormatJSONL, out.Format)
	require.Equal(t, 3, out.Count)
	require.Equal(t, testNow.Unix(), out.ExportedAt)

	lines := readLines(t, path)
	require.Len(t, lines, 4)

	var header ExportHeader
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	require.True(t, header.GharExport)
	require.Equal(t, "1.0", header.SchemaVersion)

	var first struct {
		Key    string         `json:"key"`
		Record map[string]any `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &first))
	require.Equal(t, "bills", first.Key)
	require.Equal(t, "Water", first.Record["name"])
	require.Contains(t, lines[3], `"key":"wifiPasswords"`)

	// Passwords are exported as stored.
	require.Contains(t, lines[2], `"password":"pw"`)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches, "temp file removed")
}

func TestExport_CSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()

	env.add(t, "vehicle", vehicle("Toyota", "Camry", "2020"))

	path := filepath.Join(dir, "vehicles.csv")
	out, err := Export(ctx, env.store, exportConfig(dir), testNow, ExportInput{Path: path, Format: "csv", Domain: "vehicle"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "id,createdAt,make,model,year,licensePlate,insurance_provider"), lines[0])
	require.Contains(t, lines[1], "Toyota,Camry,2020,ABC-1234,Acme")
}

func TestExport_CSVEmptyDomainWritesHeader(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "savings.csv")
	out, err := Export(context.Background(), env.store, exportConfig(dir), testNow, ExportInput{Path: path, Format: "csv", Domain: "savings"})
	require.NoError(t, err)
	require.Equal(t, 0, out.Count)
	require.Equal(t, []string{"id,createdAt,goalType,name,targetAmount,currentAmount,deadline"}, readLines(t, path))
}

func TestExport_DefaultPath(t *testing.T) {
	t.Setenv("GHAR_HOME", t.TempDir())
	env := newTestEnv(t)

	out, err := Export(context.Background(), env.store, config.DefaultConfig(), testNow, ExportInput{Domain: "bill", Format: "csv"})
	require.NoError(t, err)

	exports, err := DefaultExportsDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(exports, "bills-2024-03-01T120000.csv"), out.Path)
	_, err = os.Stat(out.Path)
	require.NoError(t, err)
}

func TestExport_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()
	cfg := exportConfig(dir)

	tests := []ExportInput{
		{Path: filepath.Join(dir, "x.jsonl"), Format: "xml"},
		{Path: filepath.Join(dir, "x.csv"), Format: "csv"},
		{Path: filepath.Join(dir, "x.csv"), Format: "jsonl"},
		{Path: filepath.Join(dir, "x.jsonl"), Domain: "boats"},
		{Path: filepath.Join(t.TempDir(), "x.jsonl")},
	}
	for _, in := range tests {
		_, err := Export(ctx, env.store, cfg, testNow, in)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "%+v: %v", in, err)
	}
}
