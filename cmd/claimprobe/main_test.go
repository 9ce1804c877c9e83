package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"claimprobe/internal/claims"
	"claimprobe/internal/config"
	"claimprobe/internal/logging"
	"claimprobe/internal/report"
	"claimprobe/internal/window"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRootLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, rootLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, rootLevel("error"))
	assert.Equal(t, zapcore.WarnLevel, rootLevel("loud"))
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	setGlobal(t, &configPath, filepath.Join(dir, "missing.yaml"))
	setGlobal(t, &envName, "production")
	setGlobal(t, &tokenFlag, "copied-token")
	setGlobal(t, &outputDir, dir)
	setGlobal(t, &jobAPIFlag, config.JobAPIBulk)

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "copied-token", c.Token)
	assert.Equal(t, dir, c.Output.Dir)
	assert.Equal(t, config.JobAPIBulk, c.Bulk.JobAPI)
}

func TestLoadConfig_RejectsUnknownJobAPI(t *testing.T) {
	setGlobal(t, &configPath, filepath.Join(t.TempDir(), "missing.yaml"))
	setGlobal(t, &jobAPIFlag, "ftp-jobs")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestRun_FailedCommandFlushesLogs(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("logging:\n  debug_mode: true\n"), 0644))

	setGlobal(t, &configPath, "")
	setGlobal(t, &outputDir, "")
	setGlobal(t, &logger, nil)
	t.Cleanup(func() {
		cfg = nil
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		_ = logging.Initialize(dir, config.LoggingConfig{})
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"inspect-export", filepath.Join(dir, "missing.csv"), "--config", conf, "--output", dir})

	assert.Equal(t, 1, run(context.Background()))
	assert.Contains(t, out.String(), "Read export failed")

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, ".claimprobe", "logs", date+"_boot.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "command inspect-export")
}

func TestShutdown_NilLogger(t *testing.T) {
	setGlobal(t, &logger, nil)
	assert.NotPanics(t, shutdown)
	assert.NotPanics(t, shutdown)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"auth", "batch-check", "build-csv", "bulk", "dump", "find-claim", "harvest",
		"inspect-export", "practices", "scenarios", "search", "status-filter", "templates", "upload",
	}
	var got []string
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		got = append(got, c.Name())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("registered commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchWindow(t *testing.T) {
	clock = func() time.Time { return fixedNow }
	t.Cleanup(func() { clock = time.Now })

	w, err := searchWindow("", "", 7)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-08", w.StartISO())
	assert.Equal(t, "2025-07-15", w.EndISO())

	w, err = searchWindow("2025-07-01", "2025-07-03", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Days())

	_, err = searchWindow("2025-07-01", "", 30)
	assert.Error(t, err)

	_, err = searchWindow("07/01/2025", "07/03/2025", 30)
	assert.Error(t, err)
}

func TestSearchScenarios(t *testing.T) {
	month, err := window.Parse("2025-06-16", "2025-07-15")
	require.NoError(t, err)
	week, err := window.Parse("2025-07-09", "2025-07-15")
	require.NoError(t, err)

	got := searchScenarios(month, week, "7")
	require.Len(t, got, 4)

	for _, sc := range got {
		assert.Equal(t, "7", sc.criteria.PracticeID, sc.name)
	}
	assert.Empty(t, got[0].criteria.PatientLastName)
	assert.Equal(t, "KISA", got[1].criteria.PatientLastName)
	assert.Empty(t, got[1].criteria.PatientDOB)
	assert.Equal(t, "1975-05-10", got[2].criteria.PatientDOB)
	assert.Equal(t, "CHANTAL", got[2].criteria.PatientFirstName)
	assert.Equal(t, "2025-07-09", got[3].criteria.FirstServiceDate)
	assert.Equal(t, "2025-06-16", got[0].criteria.FirstServiceDate)
}

func TestHeaderPairs(t *testing.T) {
	h := http.Header{}
	h.Add("X-Request-Id", "abc")
	h.Add("Content-Type", "application/json")
	h.Add("Vary", "Accept")
	h.Add("Vary", "Origin")

	want := []report.Pair{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "Vary", Value: "Accept, Origin"},
		{Key: "X-Request-Id", Value: "abc"},
	}
	if diff := cmp.Diff(want, headerPairs(h)); diff != "" {
		t.Fatalf("headerPairs mismatch (-want +got):\n%s", diff)
	}
}

func TestRawClaims_KeepsUnmodeledFields(t *testing.T) {
	res, err := claims.DecodeSearchResult([]byte(`{"claims":[{"claimNumber":"1","payerClaimControlNumber":"PCN-9"}],"count":1}`))
	require.NoError(t, err)

	raw, err := rawClaims(res)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw[0], &m))
	assert.Equal(t, "PCN-9", m["payerClaimControlNumber"])
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 claim", plural(1, "claim"))
	assert.Equal(t, "0 claims", plural(0, "claim"))
	assert.Equal(t, "3 claims", plural(3, "claim"))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"DENIED", "PAID", "PENDING"}, sortedKeys(map[string]int{"PENDING": 1, "DENIED": 2, "PAID": 3}))
}
