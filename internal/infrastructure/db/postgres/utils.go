package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const driverName = "postgres"

// OpenDb connects to the postgres server at dsn. With autoCreate set, a
// missing database (3D000) is created once before retrying.
func OpenDb(dsn string, autoCreate bool) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if isMissingDatabase(err) && autoCreate {
		if err = createDatabase(ctx, dsn); err == nil {
			err = db.PingContext(ctx)
		}
	}
	if err != nil {
		//nolint:all
		db.Close()
		return nil, fmt.Errorf("unable to establish connection with db: %w", err)
	}
	return db, nil
}

func isMissingDatabase(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "3D000"
}

// createDatabase connects to the server default database and creates the
// one named in the path of dsn. Only url-style DSNs are supported.
func createDatabase(ctx context.Context, dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("cannot auto-create database unless the DSN uses URL format")
	}

	serverUrl, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	dbName := strings.TrimPrefix(serverUrl.Path, "/")
	if dbName == "" {
		return fmt.Errorf("cannot auto-create when database name is empty")
	}
	serverUrl.Path = ""

	server, err := sql.Open(driverName, serverUrl.String())
	if err != nil {
		return err
	}
	defer server.Close()

	log.Infof("postgres database %s does not exist, creating it", dbName)
	_, err = server.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	return err
}

// isConflictError reports serialization failures (40001) and deadlocks
// (40P01), the transaction can be retried from scratch.
func isConflictError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
