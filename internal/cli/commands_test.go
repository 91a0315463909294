package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/report"
)

// execute runs the root command with args against a temp sqlite database.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func useTempDatabase(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "binarypay.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestResolveCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "resolve", "--left-joins", "30", "--right-joins", "30", "--eligible")
		require.NoError(t, err)
		assert.Contains(t, out, "binary            5 pairs, 2500.00")
		assert.Contains(t, out, "flashout          5 units, 5000.00")
		assert.Contains(t, out, "sponsor mirror    2500.00")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "resolve", "--format", "json", "--left-carry", "4", "--right-joins", "1")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, true, got["unlocked"])
		assert.Equal(t, float64(4), got["left_carry"])
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := execute(t, "resolve", "--left-joins", "-1")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestEnrollRunReport(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "enroll", "--id", "root", "--name", "Root", "--joined", "2024-02-01")
	require.NoError(t, err)
	_, err = execute(t, "enroll", "--id", "a", "--name", "A", "--parent", "root", "--side", "left", "--sponsor", "root", "--joined", "2024-03-01")
	require.NoError(t, err)
	_, err = execute(t, "enroll", "--id", "b", "--name", "B", "--parent", "root", "--side", "right", "--sponsor", "root", "--joined", "2024-03-01")
	require.NoError(t, err)

	t.Run("occupied slot", func(t *testing.T) {
		_, err := execute(t, "enroll", "--name", "C", "--parent", "root", "--side", "left", "--joined", "2024-03-01")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("bad side", func(t *testing.T) {
		_, err := execute(t, "enroll", "--name", "C", "--parent", "a", "--side", "middle")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidSide)
	})

	out, err := execute(t, "run", "--date", "2024-03-01", "--format", "json")
	require.NoError(t, err)
	var first report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "completed", first.Status)
	assert.Equal(t, 3, first.Settled)
	assert.Equal(t, 0, first.AlreadySettled)

	out, err = execute(t, "run", "--date", "2024-03-01", "--format", "json")
	require.NoError(t, err)
	var second report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, 0, second.Settled)
	assert.Equal(t, 3, second.AlreadySettled)

	out, err = execute(t, "report", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Settlement report 2024-03-01")
	assert.Contains(t, out, "root")

	out, err = execute(t, "report", "--date", "2024-03-01", "--format", "json")
	require.NoError(t, err)
	var day report.Day
	require.NoError(t, json.Unmarshal([]byte(out), &day))
	assert.Len(t, day.Settlements, 3)

	out, err = execute(t, "reset-eligibility", "root")
	require.NoError(t, err)
	assert.Contains(t, out, "reset eligibility of root")

	_, err = execute(t, "reset-eligibility", "nobody")
	require.Error(t, err)
}

func TestRunInvalidDate(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "run", "--date", "2024-13-45")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportCommand(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "enroll", "--id", "p1", "--name", "P1", "--joined", "2024-01-01")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "legacy.yaml")
	legacy := `
- id: old
  participant_id: p1
  date: "2024-01-05"
  pairs: 1
  binary_income: "500"
  created_at: 100
- id: new
  participant_id: p1
  date: "2024-01-05"
  pairs: 2
  binary_income: "1000"
  created_at: 200
`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 row, 1 row discarded as duplicates")

	out, err = execute(t, "report", "--date", "2024-01-05", "--format", "json")
	require.NoError(t, err)
	var day report.Day
	require.NoError(t, json.Unmarshal([]byte(out), &day))
	require.Len(t, day.Settlements, 1)
	assert.Equal(t, "1000", day.Settlements[0].BinaryIncome.String())
	assert.Equal(t, "1000", day.Totals.Total.String())
}

func TestTokenCommand(t *testing.T) {
	t.Run("requires secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := execute(t, "token", "--operator", "ops")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("signs", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		out, err := execute(t, "token", "--operator", "ops")
		require.NoError(t, err)
		assert.Len(t, bytes.Split(bytes.TrimSpace([]byte(out)), []byte(".")), 3)
	})
}
