package migration

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrderedPairs(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)

	var versions []uint
	for {
		versions = append(versions, version)

		up, _, err := src.ReadUp(version)
		require.NoError(t, err)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		up.Close()
		require.NotEmpty(t, strings.TrimSpace(string(body)))

		down, _, err := src.ReadDown(version)
		require.NoError(t, err)
		down.Close()

		next, err := src.Next(version)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
		version = next
	}

	require.Equal(t, []uint{1, 2, 3}, versions)
}

func TestSchemaDeclaresUniqueKeys(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, "migrations/000001_activity_metrics.up.sql")
	require.NoError(t, err)

	schema := string(body)
	for _, index := range []string{
		"ux_user_sessions_user_session",
		"ux_daily_metric_snapshots_date",
		"ux_productivity_records_user_date",
	} {
		require.Contains(t, schema, index)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	require.Error(t, RunMigrations(nil))
}
