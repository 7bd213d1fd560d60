package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

const maxRetries = 5

// Dialect adapts the shared queries to a specific sql driver.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of '?'.
	NumberedPlaceholders bool
	TxOptions            *sql.TxOptions
	IsConflictError      func(error) bool
}

type ledgerRepository struct {
	db      *sql.DB
	dialect Dialect
	queries map[string]string
}

// NewLedgerRepository returns a ledger backed by db. The schema must already
// be migrated.
func NewLedgerRepository(db *sql.DB, dialect Dialect) (domain.LedgerRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if dialect.IsConflictError == nil {
		dialect.IsConflictError = func(error) bool { return false }
	}

	queries := make(map[string]string, len(ledgerQueries))
	for name, query := range ledgerQueries {
		queries[name] = rebind(query, dialect.NumberedPlaceholders)
	}
	return &ledgerRepository{db, dialect, queries}, nil
}

func (r *ledgerRepository) RunInTx(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	return r.execTx(ctx, false, fn)
}

func (r *ledgerRepository) View(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	return r.execTx(ctx, true, fn)
}

func (r *ledgerRepository) Close() {
	// nolint:all
	r.db.Close()
}

func (r *ledgerRepository) execTx(
	ctx context.Context, readOnly bool, fn func(context.Context, domain.LedgerState) error,
) error {
	var lastErr error
	for range maxRetries {
		tx, err := r.db.BeginTx(ctx, r.dialect.TxOptions)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		state := &ledgerTx{tx: tx, queries: r.queries, readOnly: readOnly}

		if err := fn(ctx, state); err != nil {
			//nolint:all
			tx.Rollback()

			if r.dialect.IsConflictError(err) {
				lastErr = err
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}

		if readOnly {
			//nolint:all
			tx.Rollback()
			return nil
		}

		if err := tx.Commit(); err != nil {
			if r.dialect.IsConflictError(err) {
				lastErr = err
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	return lastErr
}

type ledgerTx struct {
	tx       *sql.Tx
	queries  map[string]string
	readOnly bool
}

func (t *ledgerTx) Assets() domain.AssetStore             { return t }
func (t *ledgerTx) Owners() domain.OwnershipIndex         { return t }
func (t *ledgerTx) Enumerations() domain.EnumerationStore { return t }

func (t *ledgerTx) GetNonce(ctx context.Context) (uint64, error) {
	var nonce int64
	if err := t.queryRow(ctx, "selectNonce").Scan(&nonce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return uint64(nonce), nil
}

func (t *ledgerTx) SetNonce(ctx context.Context, nonce uint64) error {
	if err := t.exec(ctx, "upsertNonce", int64(nonce)); err != nil {
		return fmt.Errorf("failed to set nonce: %w", err)
	}
	return nil
}

func (t *ledgerTx) Exists(ctx context.Context, id domain.Hash) (bool, error) {
	asset, err := t.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return asset != nil, nil
}

func (t *ledgerTx) Get(ctx context.Context, id domain.Hash) (*domain.Asset, error) {
	var (
		lineageSeed       string
		price, generation int64
	)
	err := t.queryRow(ctx, "selectAsset", id.String()).Scan(&lineageSeed, &price, &generation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}

	seed, err := domain.NewHashFromString(lineageSeed)
	if err != nil {
		return nil, fmt.Errorf("malformed lineage seed for asset %s: %w", id, err)
	}
	return &domain.Asset{
		Id:          id,
		LineageSeed: seed,
		Price:       uint64(price),
		Generation:  uint64(generation),
	}, nil
}

func (t *ledgerTx) Put(ctx context.Context, asset domain.Asset) error {
	if err := t.exec(
		ctx, "upsertAsset",
		asset.Id.String(), asset.LineageSeed.String(),
		int64(asset.Price), int64(asset.Generation),
	); err != nil {
		return fmt.Errorf("failed to put asset %s: %w", asset.Id, err)
	}
	return nil
}

func (t *ledgerTx) OwnerOf(ctx context.Context, id domain.Hash) (string, bool, error) {
	var owner string
	if err := t.queryRow(ctx, "selectOwner", id.String()).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get owner of %s: %w", id, err)
	}
	return owner, true, nil
}

func (t *ledgerTx) SetOwner(ctx context.Context, id domain.Hash, owner string) error {
	if err := t.exec(ctx, "upsertOwner", id.String(), owner); err != nil {
		return fmt.Errorf("failed to set owner of %s: %w", id, err)
	}
	return nil
}

func (t *ledgerTx) GetCount(ctx context.Context, scope domain.Scope) (uint64, error) {
	var count int64
	if err := t.queryRow(ctx, "selectCount", scope.String()).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count of %s: %w", scope, err)
	}
	return uint64(count), nil
}

func (t *ledgerTx) SetCount(ctx context.Context, scope domain.Scope, count uint64) error {
	if err := t.exec(ctx, "upsertCount", scope.String(), int64(count)); err != nil {
		return fmt.Errorf("failed to set count of %s: %w", scope, err)
	}
	return nil
}

func (t *ledgerTx) GetSlot(
	ctx context.Context, scope domain.Scope, pos uint64,
) (domain.Hash, bool, error) {
	var assetId string
	err := t.queryRow(ctx, "selectSlot", scope.String(), int64(pos)).Scan(&assetId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hash{}, false, nil
		}
		return domain.Hash{}, false, fmt.Errorf(
			"failed to get slot %d of %s: %w", pos, scope, err,
		)
	}
	id, err := domain.NewHashFromString(assetId)
	if err != nil {
		return domain.Hash{}, false, fmt.Errorf(
			"malformed asset id in slot %d of %s: %w", pos, scope, err,
		)
	}
	return id, true, nil
}

func (t *ledgerTx) SetSlot(ctx context.Context, scope domain.Scope, pos uint64, id domain.Hash) error {
	if err := t.exec(ctx, "upsertSlot", scope.String(), int64(pos), id.String()); err != nil {
		return fmt.Errorf("failed to set slot %d of %s: %w", pos, scope, err)
	}
	return nil
}

func (t *ledgerTx) DeleteSlot(ctx context.Context, scope domain.Scope, pos uint64) error {
	if err := t.exec(ctx, "deleteSlot", scope.String(), int64(pos)); err != nil {
		return fmt.Errorf("failed to delete slot %d of %s: %w", pos, scope, err)
	}
	return nil
}

func (t *ledgerTx) GetPosition(
	ctx context.Context, scope domain.Scope, id domain.Hash,
) (uint64, bool, error) {
	var pos int64
	err := t.queryRow(ctx, "selectPosition", scope.String(), id.String()).Scan(&pos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get position of %s in %s: %w", id, scope, err)
	}
	return uint64(pos), true, nil
}

func (t *ledgerTx) SetPosition(
	ctx context.Context, scope domain.Scope, id domain.Hash, pos uint64,
) error {
	if err := t.exec(
		ctx, "upsertPosition", scope.String(), id.String(), int64(pos),
	); err != nil {
		return fmt.Errorf("failed to set position of %s in %s: %w", id, scope, err)
	}
	return nil
}

func (t *ledgerTx) DeletePosition(ctx context.Context, scope domain.Scope, id domain.Hash) error {
	if err := t.exec(ctx, "deletePosition", scope.String(), id.String()); err != nil {
		return fmt.Errorf("failed to delete position of %s in %s: %w", id, scope, err)
	}
	return nil
}

func (t *ledgerTx) Scopes(ctx context.Context) ([]domain.Scope, error) {
	rows, err := t.tx.QueryContext(ctx, t.queries["selectScopes"])
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	defer rows.Close()

	scopes := make([]domain.Scope, 0)
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, domain.Scope(scope))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	// Collations differ between drivers, sort by bytes here.
	slices.Sort(scopes)
	return scopes, nil
}

func (t *ledgerTx) queryRow(ctx context.Context, name string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.queries[name], args...)
}

func (t *ledgerTx) exec(ctx context.Context, name string, args ...any) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	_, err := t.tx.ExecContext(ctx, t.queries[name], args...)
	return err
}

// rebind turns '?' placeholders into $1, $2, ... when numbered is set.
func rebind(query string, numbered bool) string {
	if !numbered {
		return query
	}
	var (
		sb strings.Builder
		n  int
	)
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
