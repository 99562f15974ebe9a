package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header
CREATE TABLE a (x UInt64) ENGINE = Memory;

-- second
CREATE VIEW b AS SELECT 'x' AS s FROM a;
`
	stmts, err := SplitStatements(input)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt64) ENGINE = Memory", stmts[0])
	assert.Contains(t, stmts[1], "CREATE VIEW b")
}

func TestSplitStatements_RejectsQuotedSemicolon(t *testing.T) {
	_, err := SplitStatements(`SELECT 'a;b';`)
	assert.Error(t, err)

	// Escaped quote does not toggle literal state.
	stmts, err := SplitStatements(`SELECT 'it''s';`)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
}

func TestLoad_EmbeddedOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	for i := 1; i < len(pg); i++ {
		assert.Less(t, pg[i-1].name, pg[i].name)
	}

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		_, err := SplitStatements(m.sql)
		assert.NoError(t, err, m.name)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://user:pw@localhost:9000/lending")
	require.NoError(t, err)
	assert.Equal(t, "lending", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
