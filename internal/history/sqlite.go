package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mavuno/sokoscope/internal/model"
)

const dateLayout = "2006-01-02"

// Store is the SQLite-backed corpus. It implements PriceReader,
// PriceWriter, OutcomeReader and ProfileReader.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the corpus database at path.
// file: URIs pass through untouched so tests can use in-memory DBs.
func Open(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		path = abs + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS price_observations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	commodity       TEXT NOT NULL,
	region          TEXT NOT NULL,
	market          TEXT NOT NULL,
	date            TEXT NOT NULL,
	wholesale_price REAL NOT NULL,
	retail_price    REAL NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	UNIQUE(commodity, market, date)
);
CREATE INDEX IF NOT EXISTS idx_observations_lookup
	ON price_observations(commodity, region, date);

CREATE TABLE IF NOT EXISTS sale_outcomes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	commodity    TEXT NOT NULL,
	grade        TEXT NOT NULL,
	quantity     REAL NOT NULL,
	region       TEXT NOT NULL,
	listed_price REAL NOT NULL,
	market_price REAL NOT NULL,
	days_to_sell INTEGER,
	sold         INTEGER NOT NULL,
	listed_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_commodity
	ON sale_outcomes(commodity);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id                TEXT PRIMARY KEY,
	completed_transactions INTEGER NOT NULL DEFAULT 0,
	total_transactions     INTEGER NOT NULL DEFAULT 0,
	disputed_transactions  INTEGER NOT NULL DEFAULT 0,
	average_rating         REAL NOT NULL DEFAULT 0,
	rating_count           INTEGER NOT NULL DEFAULT 0,
	account_age_days       INTEGER NOT NULL DEFAULT 0,
	verified               INTEGER NOT NULL DEFAULT 0,
	avg_response_hours     REAL NOT NULL DEFAULT 0
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one observation. Violating wholesale <= retail is
// rejected; a duplicate commodity x market x day row is silently
// ignored so re-running an ingestion job is idempotent.
func (s *Store) Append(ctx context.Context, obs model.PriceObservation) error {
	if obs.Wholesale > obs.Retail {
		return fmt.Errorf("observation %s/%s: wholesale %.2f exceeds retail %.2f",
			obs.Commodity, obs.Market, obs.Wholesale, obs.Retail)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO price_observations
			(commodity, region, market, date, wholesale_price, retail_price, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obs.Commodity, obs.Region, obs.Market, obs.Date.Format(dateLayout),
		obs.Wholesale, obs.Retail, obs.Source)
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// ObservationsSince implements PriceReader. With no market given, the
// representative market (most recorded rows for the scope) is used.
func (s *Store) ObservationsSince(ctx context.Context, commodity, region, market string, since time.Time) ([]model.PriceObservation, error) {
	if market == "" {
		m, err := s.representativeMarket(ctx, commodity, region)
		if err != nil {
			return nil, err
		}
		if m == "" {
			return nil, nil
		}
		market = m
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT commodity, region, market, date, wholesale_price, retail_price, source
		FROM price_observations
		WHERE commodity = ? AND (? = '' OR region = ?) AND market = ? AND date >= ?
		ORDER BY date ASC`,
		commodity, region, region, market, since.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var obs model.PriceObservation
		var date string
		if err := rows.Scan(&obs.Commodity, &obs.Region, &obs.Market, &date,
			&obs.Wholesale, &obs.Retail, &obs.Source); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse observation date %q: %w", date, err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (s *Store) representativeMarket(ctx context.Context, commodity, region string) (string, error) {
	var market string
	err := s.db.QueryRowContext(ctx, `
		SELECT market FROM price_observations
		WHERE commodity = ? AND (? = '' OR region = ?)
		GROUP BY market
		ORDER BY COUNT(*) DESC, market ASC
		LIMIT 1`,
		commodity, region, region).Scan(&market)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("representative market: %w", err)
	}
	return market, nil
}

// AddOutcome records one historical sale outcome. DaysToSell must be
// present exactly when the listing sold.
func (s *Store) AddOutcome(ctx context.Context, o model.SaleOutcome) error {
	if o.Sold && o.DaysToSell == nil {
		return fmt.Errorf("sold outcome for %s missing days_to_sell", o.Commodity)
	}
	if !o.Sold && o.DaysToSell != nil {
		return fmt.Errorf("unsold outcome for %s carries days_to_sell", o.Commodity)
	}

	var days interface{}
	if o.DaysToSell != nil {
		days = *o.DaysToSell
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sale_outcomes
			(commodity, grade, quantity, region, listed_price, market_price, days_to_sell, sold, listed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Commodity, string(o.Grade), o.Quantity, o.Region,
		o.ListedPrice, o.MarketPrice, days, o.Sold, o.ListedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("add outcome: %w", err)
	}
	return nil
}

// ByCommodity implements OutcomeReader.
func (s *Store) ByCommodity(ctx context.Context, commodity string) ([]model.SaleOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commodity, grade, quantity, region, listed_price, market_price, days_to_sell, sold, listed_at
		FROM sale_outcomes
		WHERE commodity = ?`,
		commodity)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []model.SaleOutcome
	for rows.Next() {
		var o model.SaleOutcome
		var grade, listedAt string
		var days sql.NullInt64
		if err := rows.Scan(&o.Commodity, &grade, &o.Quantity, &o.Region,
			&o.ListedPrice, &o.MarketPrice, &days, &o.Sold, &listedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Grade = model.Grade(grade)
		if days.Valid {
			d := int(days.Int64)
			o.DaysToSell = &d
		}
		o.ListedAt, err = time.Parse(dateLayout, listedAt)
		if err != nil {
			return nil, fmt.Errorf("parse listed_at %q: %w", listedAt, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpsertProfile stores or replaces a user's reputation inputs.
func (s *Store) UpsertProfile(ctx context.Context, p model.ReputationInputs) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles
			(user_id, completed_transactions, total_transactions, disputed_transactions,
			 average_rating, rating_count, account_age_days, verified, avg_response_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			completed_transactions = excluded.completed_transactions,
			total_transactions     = excluded.total_transactions,
			disputed_transactions  = excluded.disputed_transactions,
			average_rating         = excluded.average_rating,
			rating_count           = excluded.rating_count,
			account_age_days       = excluded.account_age_days,
			verified               = excluded.verified,
			avg_response_hours     = excluded.avg_response_hours`,
		p.UserID, p.Completed, p.Total, p.Disputed,
		p.AverageRating, p.RatingCount, p.AccountAgeDays, p.Verified, p.AvgResponseHours)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ByUser implements ProfileReader.
func (s *Store) ByUser(ctx context.Context, userID string) (*model.ReputationInputs, error) {
	var p model.ReputationInputs
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, completed_transactions, total_transactions, disputed_transactions,
		       average_rating, rating_count, account_age_days, verified, avg_response_hours
		FROM user_profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &p.Completed, &p.Total, &p.Disputed,
		&p.AverageRating, &p.RatingCount, &p.AccountAgeDays, &p.Verified, &p.AvgResponseHours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}
