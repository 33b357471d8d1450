package adapter

import (
	"strings"

	"github.com/cockroachdb/cockroach-go/v2/crdb"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
)

// CockroachDB speaks the PostgreSQL wire protocol and catalog, so it reuses
// the Postgres adapter. Transactions go through crdb.ExecuteTx, which
// retries serialization failures (SQLSTATE 40001) that CockroachDB reports
// far more often than PostgreSQL.
type CockroachDB struct {
	Postgres
}

// NewCockroachDB creates the CockroachDB adapter.
func NewCockroachDB() (*CockroachDB, error) {
	c := &CockroachDB{Postgres: Postgres{dialect: postgresDialect("cockroachdb")}}
	c.introspect = c.CurrentSchema
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// TxRunner returns the crdb retrying transaction runner.
func (c *CockroachDB) TxRunner() database.TxRunner {
	return crdb.ExecuteTx
}

// cockroachFactory rewrites cockroachdb:// to postgresql:// for pgx.
func cockroachFactory(conn string, opts ConnOptions) (Adapter, database.Config, error) {
	a, err := NewCockroachDB()
	if err != nil {
		return nil, database.Config{}, err
	}
	dsn := "postgresql://" + strings.TrimPrefix(conn, "cockroachdb://")
	return a, serverConfig(pgxDriverName, dsn, opts), nil
}

func init() {
	Register("cockroachdb", cockroachFactory)
}

var (
	_ Adapter  = (*CockroachDB)(nil)
	_ TxRunner = (*CockroachDB)(nil)
)
