package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopify-order-tracking/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS shops (
		shop TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		scopes TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		shop TEXT NOT NULL,
		charge_id BIGINT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		trial_days INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_shop ON charges(shop, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_status ON charges(status)`,
}

// SQLRepository implements ShopRepository and ChargeRepository on SQLite or Postgres
type SQLRepository struct {
	db      *sql.DB
	driver  string
	nowFunc func() time.Time
}

// NewSQLRepository opens the database and creates the schema if needed.
// driver is "sqlite" (dsn is a file path) or "pgx" (dsn is a postgres URL).
func NewSQLRepository(driver, dsn string) (*SQLRepository, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?" + url.Values{
				"_pragma": []string{
					"busy_timeout(30000)",
					"journal_mode(WAL)",
				},
			}.Encode()
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	r := &SQLRepository{db: db, driver: driver, nowFunc: time.Now}
	if err := r.initSchema(context.Background()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to close database after schema init failure: %w", closeErr))
		}
		return nil, err
	}
	return r, nil
}

func (r *SQLRepository) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database handle
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind rewrites ? placeholders into $n for Postgres
func (r *SQLRepository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Shops

// UpsertShop inserts or replaces the credential for a shop in one statement
func (r *SQLRepository) UpsertShop(ctx context.Context, shop *domain.ShopCredential) error {
	now := r.nowFunc().UnixNano()
	query := r.rebind(`
		INSERT INTO shops (shop, access_token, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(shop) DO UPDATE SET
			access_token = excluded.access_token,
			scopes = excluded.scopes,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		shop.ShopDomain, shop.AccessToken, strings.Join(shop.Scopes, ","), now, now)
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

// GetShop retrieves a shop by domain
func (r *SQLRepository) GetShop(ctx context.Context, shopDomain string) (*domain.ShopCredential, error) {
	query := r.rebind(`SELECT shop, access_token, scopes, created_at, updated_at FROM shops WHERE shop = ?`)

	var (
		cred                 domain.ShopCredential
		scopes               string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, shopDomain).
		Scan(&cred.ShopDomain, &cred.AccessToken, &scopes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	if scopes != "" {
		cred.Scopes = strings.Split(scopes, ",")
	}
	cred.CreatedAt = time.Unix(0, createdAt)
	cred.UpdatedAt = time.Unix(0, updatedAt)
	return &cred, nil
}

// DeleteShop removes the credential for a shop
func (r *SQLRepository) DeleteShop(ctx context.Context, shopDomain string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM shops WHERE shop = ?`), shopDomain)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shop: %w", err)
	}
	return res.RowsAffected()
}

// Charges

const chargeColumns = `id, shop, charge_id, status, type, amount, currency, trial_days, created_at, updated_at`

// CreateCharge inserts a new charge row
func (r *SQLRepository) CreateCharge(ctx context.Context, charge *domain.Charge) error {
	if charge.ID == "" {
		charge.ID = newRowID()
	}
	if charge.CreatedAt.IsZero() {
		charge.CreatedAt = r.nowFunc()
	}
	if charge.UpdatedAt.IsZero() {
		charge.UpdatedAt = charge.CreatedAt
	}

	query := r.rebind(`INSERT INTO charges (` + chargeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		charge.ID,
		charge.Shop,
		int64(charge.ChargeID),
		string(charge.Status),
		string(charge.Type),
		charge.Amount.String(),
		charge.Currency,
		charge.TrialDays,
		charge.CreatedAt.UnixNano(),
		charge.UpdatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: charge %d already recorded", domain.ErrInvalidInput, charge.ChargeID)
	}
	if err != nil {
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

// GetChargeByChargeID retrieves a charge by its Shopify id
func (r *SQLRepository) GetChargeByChargeID(ctx context.Context, chargeID uint64) (*domain.Charge, error) {
	query := r.rebind(`SELECT ` + chargeColumns + ` FROM charges WHERE charge_id = ?`)
	return r.scanCharge(r.db.QueryRowContext(ctx, query, int64(chargeID)))
}

// LatestCharge retrieves the most recently created charge for a shop
func (r *SQLRepository) LatestCharge(ctx context.Context, shopDomain string) (*domain.Charge, error) {
	query := r.rebind(`SELECT ` + chargeColumns + ` FROM charges
		WHERE shop = ?
		ORDER BY created_at DESC, charge_id DESC
		LIMIT 1`)
	return r.scanCharge(r.db.QueryRowContext(ctx, query, shopDomain))
}

// LatestPendingCharge retrieves the most recently created pending charge of a type
func (r *SQLRepository) LatestPendingCharge(ctx context.Context, shopDomain string, chargeType domain.ChargeType) (*domain.Charge, error) {
	query := r.rebind(`SELECT ` + chargeColumns + ` FROM charges
		WHERE shop = ? AND type = ? AND status = ?
		ORDER BY created_at DESC, charge_id DESC
		LIMIT 1`)
	return r.scanCharge(r.db.QueryRowContext(ctx, query,
		shopDomain, string(chargeType), string(domain.ChargeStatusPending)))
}

func (r *SQLRepository) scanCharge(row *sql.Row) (*domain.Charge, error) {
	var (
		charge               domain.Charge
		chargeID             int64
		status, chargeType   string
		amount               string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&charge.ID,
		&charge.Shop,
		&chargeID,
		&status,
		&chargeType,
		&amount,
		&charge.Currency,
		&charge.TrialDays,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	charge.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse charge amount %q: %w", amount, err)
	}
	charge.ChargeID = uint64(chargeID)
	charge.Status = domain.ChargeStatus(status)
	charge.Type = domain.ChargeType(chargeType)
	charge.CreatedAt = time.Unix(0, createdAt)
	charge.UpdatedAt = time.Unix(0, updatedAt)
	return &charge, nil
}

// UpdateChargeStatus sets the status of a charge and returns how many rows matched
func (r *SQLRepository) UpdateChargeStatus(ctx context.Context, chargeID uint64, status domain.ChargeStatus) (int64, error) {
	query := r.rebind(`UPDATE charges SET status = ?, updated_at = ? WHERE charge_id = ?`)
	res, err := r.db.ExecContext(ctx, query, string(status), r.nowFunc().UnixNano(), int64(chargeID))
	if err != nil {
		return 0, fmt.Errorf("failed to update charge status: %w", err)
	}
	return res.RowsAffected()
}

// DeleteChargesForShop removes every charge recorded for a shop
func (r *SQLRepository) DeleteChargesForShop(ctx context.Context, shopDomain string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM charges WHERE shop = ?`), shopDomain)
	if err != nil {
		return 0, fmt.Errorf("failed to delete charges: %w", err)
	}
	return res.RowsAffected()
}

// isUniqueViolation reports a unique or primary key conflict from either driver
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func newRowID() string {
	return uuid.NewString()
}
