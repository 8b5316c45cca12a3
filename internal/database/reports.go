package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maxicourses/price-scraper/internal/models"
)

// PriceReport is one persisted extraction outcome for an EAN at a store.
type PriceReport struct {
	ID         uuid.UUID `db:"id"`
	EAN        string    `db:"ean"`
	Store      string    `db:"store"`
	URL        string    `db:"url"`
	Status     string    `db:"status"`
	Price      *string   `db:"price"`
	UnitPrice  *string   `db:"unit_price"`
	Quantity   *string   `db:"quantity"`
	Title      *string   `db:"title"`
	MatchedEAN *string   `db:"matched_ean"`
	Note       *string   `db:"note"`
	CreatedAt  time.Time `db:"created_at"`
}

// ReportRepository persists extraction reports and their outbox events.
type ReportRepository struct {
	db     *DB
	outbox *OutboxRepository
}

func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{
		db:     db,
		outbox: NewOutboxRepository(db),
	}
}

// Save writes the report and a PRICE_EXTRACTED outbox event in one
// transaction, so downstream consumers never see an event without its row.
func (r *ReportRepository) Save(ctx context.Context, ean, store string, rep models.Report) error {
	row := reportRow(ean, store, rep)

	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO price_report (
				id, ean, store, url, status, price, unit_price,
				quantity, title, matched_ean, note, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
			)`

		_, err := tx.Exec(ctx, query,
			row.ID, row.EAN, row.Store, row.URL, row.Status, row.Price, row.UnitPrice,
			row.Quantity, row.Title, row.MatchedEAN, row.Note, row.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price report: %w", err)
		}

		event := &OutboxEvent{
			AggregateType: "price_report",
			AggregateID:   ean,
			EventType:     EventPriceExtracted,
			Payload:       payload,
		}
		return r.outbox.InsertWithTx(ctx, tx, event)
	})
}

// LatestByEAN returns the most recent report per store for one EAN.
func (r *ReportRepository) LatestByEAN(ctx context.Context, ean string) ([]*PriceReport, error) {
	query := `
		SELECT DISTINCT ON (store)
			id, ean, store, url, status, price, unit_price,
			quantity, title, matched_ean, note, created_at
		FROM price_report
		WHERE ean = $1
		ORDER BY store, created_at DESC`

	rows, err := r.db.pool.Query(ctx, query, ean)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*PriceReport
	for rows.Next() {
		rep := &PriceReport{}
		err := rows.Scan(
			&rep.ID, &rep.EAN, &rep.Store, &rep.URL, &rep.Status, &rep.Price, &rep.UnitPrice,
			&rep.Quantity, &rep.Title, &rep.MatchedEAN, &rep.Note, &rep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reports, nil
}

// reportRow maps the external record onto a table row. Empty strings become
// NULLs so partial reports stay queryable.
func reportRow(ean, store string, rep models.Report) PriceReport {
	return PriceReport{
		ID:         uuid.New(),
		EAN:        ean,
		Store:      store,
		URL:        rep.URL,
		Status:     rep.Status,
		Price:      nullable(rep.Price),
		UnitPrice:  nullable(rep.UnitPrice),
		Quantity:   nullable(rep.Quantity),
		Title:      nullable(rep.Title),
		MatchedEAN: nullable(rep.MatchedEAN),
		Note:       nullable(rep.Note),
		CreatedAt:  time.Now(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
