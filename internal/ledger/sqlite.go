package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"trade-ledger/internal/logger"
	"trade-ledger/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Migrate runs a goose command ("up", "down", "status", ...) against db using
// the embedded ledger schema.
func Migrate(db *sql.DB, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Run(command, db, migrationsDir, args...)
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}

// OpenSQLiteDB opens the ledger database without touching the schema.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLiteStore keeps the ledger in a single table. Row order is insertion order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path and brings the schema up to date.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenSQLiteDB(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLedgerRead, path, err)
	}
	if err := Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %v", ErrLedgerRead, path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]types.LedgerRow, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT year_month, trade_day, day_of_week, hour_of_day, contract_name, intraday_index,
		       entered_at, exited_at, entry_price, exit_price, fees, pnl_net, size, type,
		       duration_ns, win_or_loss, streak, comment
		FROM ledger ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerRead, err)
	}
	defer rs.Close()

	var rows []types.LedgerRow
	for rs.Next() {
		var r types.LedgerRow
		var entered, exited, entry, exit, fees, pnl, direction string
		var durationNs int64
		if err := rs.Scan(&r.YearMonth, &r.TradeDay, &r.DayOfWeek, &r.HourOfDay, &r.Symbol, &r.TradeIndex,
			&entered, &exited, &entry, &exit, &fees, &pnl, &r.Size, &direction,
			&durationNs, &r.WinOrLoss, &r.Streak, &r.Comment); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerRead, err)
		}

		p := &fieldParser{}
		r.EnteredAt = p.time("entered_at", entered, time.UTC)
		r.ExitedAt = p.time("exited_at", exited, time.UTC)
		r.EntryPrice = p.decimal("entry_price", entry)
		r.ExitPrice = p.decimal("exit_price", exit)
		r.Fees = p.decimal("fees", fees)
		r.PnL = p.decimal("pnl_net", pnl)
		if p.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerRead, p.err)
		}
		r.Direction = types.Direction(direction)
		r.Duration = time.Duration(durationNs)
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerRead, err)
	}
	return rows, nil
}

// Replace rewrites the table in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, rows []types.LedgerRow) error {
	if err := s.replace(ctx, rows); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	return nil
}

func (s *SQLiteStore) replace(ctx context.Context, rows []types.LedgerRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger (stable_key, year_month, trade_day, day_of_week, hour_of_day, contract_name,
		                    intraday_index, entered_at, exited_at, entry_price, exit_price, fees, pnl_net,
		                    size, type, duration_ns, win_or_loss, streak, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			StableKey(r), r.YearMonth, r.TradeDay, r.DayOfWeek, r.HourOfDay, r.Symbol,
			r.TradeIndex, formatTime(r.EnteredAt), formatTime(r.ExitedAt),
			r.EntryPrice.String(), r.ExitPrice.String(), money(r.Fees), money(r.PnL),
			r.Size, string(r.Direction), int64(r.Duration), r.WinOrLoss, r.Streak, r.Comment,
		); err != nil {
			return fmt.Errorf("insert %s %s: %w", r.Symbol, formatTime(r.EnteredAt), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func money(d decimal.Decimal) string { return d.StringFixed(2) }
