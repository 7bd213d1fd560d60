package pgdb

import (
	"database/sql"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/infrastructure/db/sqldb"
)

var dialect = sqldb.Dialect{
	Name:                 driverName,
	NumberedPlaceholders: true,
	TxOptions:            &sql.TxOptions{Isolation: sql.LevelSerializable},
	IsConflictError:      isConflictError,
}

func NewLedgerRepository(config ...interface{}) (domain.LedgerRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("cannot open ledger repository: invalid config, expected db at 0")
	}

	return sqldb.NewLedgerRepository(db, dialect)
}
