package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/ndajr/tinyurl-go/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

// dbConnectTimeout is the timeout for establishing a database connection.
const dbConnectTimeout = 15 * time.Second

// Store holds the user directory and the click log.
type Store struct {
	db        *pgxpool.Pool
	logger    *slog.Logger
	dbMetrics *DBMetrics
}

// NewStore establishes a database connection, runs migrations and returns a new Store.
func NewStore(ctx context.Context, logger *slog.Logger, cfg config.AppSettings, reg prometheus.Registerer) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DBAddress)
	if err != nil {
		return Store{}, fmt.Errorf("store: failed to parse db config: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return Store{}, fmt.Errorf("store: failed to create connection pool: %w", err)
	}

	metrics, err := NewDBMetrics(reg, db, poolCfg.ConnConfig.Database)
	if err != nil {
		db.Close()
		return Store{}, fmt.Errorf("store: failed to register metrics: %w", err)
	}

	store := Store{
		db:        db,
		logger:    logger,
		dbMetrics: metrics,
	}

	if pingErr := Ping(ctx, store, logger); pingErr != nil {
		db.Close()
		return Store{}, pingErr
	}

	if migrErr := runMigrations(cfg.DBAddress, cfg.MigrationsPath); migrErr != nil {
		db.Close()
		return Store{}, fmt.Errorf("store: failed to run migrations: %w", migrErr)
	}
	logger.Info("successfully connected to db", "database", poolCfg.ConnConfig.Database, "host", poolCfg.ConnConfig.Host)

	return store, nil
}

func runMigrations(connStr, sourceURL string) (err error) {
	migrationDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("store: failed to open migration db: %w", err)
	}
	defer func() {
		if closeErr := migrationDB.Close(); err == nil {
			err = closeErr
		}
	}()

	driver, err := pgxv5.WithInstance(migrationDB, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("store: failed to create migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "pgx", driver)
	if err != nil {
		return fmt.Errorf("store: failed to create migrate instance: %w", err)
	}
	if runErr := m.Up(); runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return fmt.Errorf("store: failed to run migrations: %w", runErr)
	}
	return nil
}

func (s Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// exec runs a statement that returns no rows and records its metrics.
func (s Store) exec(ctx context.Context, queryName, query string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := s.db.Exec(ctx, query, args...)
	switch {
	case err == nil:
		s.dbMetrics.observe(queryName, start, StatusSuccess)
	case isUniqueViolation(err):
		s.dbMetrics.observe(queryName, start, StatusConflict)
	default:
		s.dbMetrics.observe(queryName, start, StatusError)
	}
	return tag, err
}

// CreateUser inserts a user with zeroed click aggregates.
func (s Store) CreateUser(ctx context.Context, name string) error {
	if _, err := s.exec(ctx, "CreateUser", insertUser, name); err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return fmt.Errorf("store: CreateUser: %w: %w", core.ErrStorageFailure, err)
	}
	return nil
}

// GetUser loads a user with its short-link directory and monthly counters.
func (s Store) GetUser(ctx context.Context, name string) (core.User, error) {
	const queryName = "GetUser"
	start := time.Now()

	user := core.User{Shorts: map[string]core.ShortURL{}}
	err := s.db.QueryRow(ctx, getUser, name).Scan(&user.Name, &user.AllURLClicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.dbMetrics.observe(queryName, start, StatusSuccess)
			return core.User{}, core.ErrUserNotFound
		}
		s.dbMetrics.observe(queryName, start, StatusError)
		return core.User{}, fmt.Errorf("store: GetUser: %w: %w", core.ErrStorageFailure, err)
	}

	if err := s.loadShorts(ctx, name, user.Shorts); err != nil {
		s.dbMetrics.observe(queryName, start, StatusError)
		return core.User{}, fmt.Errorf("store: GetUser: %w: %w", core.ErrStorageFailure, err)
	}
	s.dbMetrics.observe(queryName, start, StatusSuccess)
	return user, nil
}

func (s Store) loadShorts(ctx context.Context, name string, shorts map[string]core.ShortURL) error {
	rows, err := s.db.Query(ctx, getUserShorts, name)
	if err != nil {
		return err
	}
	var code, longURL string
	_, err = pgx.ForEachRow(rows, []any{&code, &longURL}, func() error {
		entry := shorts[code]
		entry.LongURL = longURL
		shorts[code] = entry
		return nil
	})
	if err != nil {
		return err
	}

	rows, err = s.db.Query(ctx, getUserShortClicks, name)
	if err != nil {
		return err
	}
	var period string
	var clicks int64
	_, err = pgx.ForEachRow(rows, []any{&code, &period, &clicks}, func() error {
		addPeriodClicks(shorts, code, period, clicks)
		return nil
	})
	return err
}

func addPeriodClicks(shorts map[string]core.ShortURL, code, period string, clicks int64) {
	entry := shorts[code]
	if entry.Clicks == nil {
		entry.Clicks = map[string]int64{}
	}
	entry.Clicks[period] += clicks
	shorts[code] = entry
}

// IncrementTotalClicks atomically adds delta to the user's total click counter.
func (s Store) IncrementTotalClicks(ctx context.Context, userName string, delta int64) error {
	_, err := s.exec(ctx, "IncrementTotalClicks", incrementTotalClicks, pgx.NamedArgs{
		"user_name": userName,
		"delta":     delta,
	})
	if err != nil {
		return fmt.Errorf("store: IncrementTotalClicks: %w: %w", core.ErrStorageFailure, err)
	}
	return nil
}

// IncrementShortClicks atomically adds delta to the user's counter for code in period.
func (s Store) IncrementShortClicks(ctx context.Context, userName, code, period string, delta int64) error {
	_, err := s.exec(ctx, "IncrementShortClicks", incrementShortClicks, pgx.NamedArgs{
		"user_name": userName,
		"code":      code,
		"period":    period,
		"delta":     delta,
	})
	if err != nil {
		return fmt.Errorf("store: IncrementShortClicks: %w: %w", core.ErrStorageFailure, err)
	}
	return nil
}

// SetShort records code -> longURL in the user's short-link directory.
func (s Store) SetShort(ctx context.Context, userName, code, longURL string) error {
	_, err := s.exec(ctx, "SetShort", upsertUserShort, pgx.NamedArgs{
		"user_name": userName,
		"code":      code,
		"long_url":  longURL,
	})
	if err != nil {
		return fmt.Errorf("store: SetShort: %w: %w", core.ErrStorageFailure, err)
	}
	return nil
}

// AppendClick adds an immutable event to the click log. Two events for the same
// user at the same stored timestamp violate the primary key.
func (s Store) AppendClick(ctx context.Context, ev core.ClickEvent) error {
	_, err := s.exec(ctx, "AppendClick", insertClick, pgx.NamedArgs{
		"user_name":  ev.UserName,
		"click_time": ev.ClickTime,
		"code":       ev.Code,
		"long_url":   ev.LongURL,
	})
	if err != nil {
		return fmt.Errorf("store: AppendClick: %w: %w", core.ErrStorageFailure, err)
	}
	return nil
}

// FindClicksByUserName returns the user's click log, oldest first. It never
// returns a nil slice on success.
func (s Store) FindClicksByUserName(ctx context.Context, userName string) ([]core.ClickEvent, error) {
	const queryName = "FindClicksByUserName"
	start := time.Now()

	rows, err := s.db.Query(ctx, getClicksByUserName, userName)
	if err != nil {
		s.dbMetrics.observe(queryName, start, StatusError)
		return nil, fmt.Errorf("store: FindClicksByUserName: %w: %w", core.ErrStorageFailure, err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[core.ClickEvent])
	if err != nil {
		s.dbMetrics.observe(queryName, start, StatusError)
		return nil, fmt.Errorf("store: FindClicksByUserName: %w: %w", core.ErrStorageFailure, err)
	}
	s.dbMetrics.observe(queryName, start, StatusSuccess)

	if events == nil {
		events = []core.ClickEvent{}
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (s Store) Close() {
	s.db.Close()
}
