package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/domain/catalog"
	"pharmastock/internal/domain/lots"
)

// tableColumns extracts the column names of a CREATE TABLE statement.
func tableColumns(t *testing.T, table string) []string {
	t.Helper()

	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	m := re.FindStringSubmatch(schemaSQL)
	require.Len(t, m, 2, "table %s not found in schema", table)

	var cols []string
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "CONSTRAINT" || fields[0] == "CHECK" {
			continue
		}
		cols = append(cols, fields[0])
	}
	return cols
}

func TestSchema_MatchesMappedColumns(t *testing.T) {
	assert.ElementsMatch(t, ExtractDBColumns[catalog.Product](), tableColumns(t, "products"))
	assert.ElementsMatch(t, ExtractDBColumns[lots.Batch](), tableColumns(t, "batches"))
	assert.ElementsMatch(t, ExtractDBColumns[auditRow](), tableColumns(t, "commit_audit"))
}
