package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.ExtractionRecord) error
	Complete(ctx context.Context, id string, pageCount int, resp *models.ExtractionResponse, responseJSON string) error
	Fail(ctx context.Context, id string, pageCount int, errorKind, errorMessage, responseJSON string) error
	SetExtension(ctx context.Context, id, ext string) error
	GetByID(ctx context.Context, id string) (*models.ExtractionRecord, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *models.ExtractionRecord) error {
	query := `
		INSERT INTO extractions (id, document_url, file_extension, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.DocumentURL,
		rec.FileExtension,
		rec.Status,
		rec.CreatedAt,
	)

	return err
}

func (r *repository) SetExtension(ctx context.Context, id, ext string) error {
	query := `UPDATE extractions SET file_extension = ? WHERE id = ?`
	return r.exec(ctx, query, ext, id)
}

func (r *repository) Complete(ctx context.Context, id string, pageCount int, resp *models.ExtractionResponse, responseJSON string) error {
	var itemCount int
	var total float64
	if resp != nil && resp.Data != nil {
		itemCount = resp.Data.TotalItemCount
		total = resp.Data.FinalTotalAmount
	}

	query := `
		UPDATE extractions
		SET status = ?, page_count = ?, total_item_count = ?, final_total_amount = ?,
		    response_json = ?, completed_at = ?
		WHERE id = ?
	`

	return r.exec(ctx, query, models.StatusSucceeded, pageCount, itemCount, total, responseJSON, time.Now().UTC(), id)
}

func (r *repository) Fail(ctx context.Context, id string, pageCount int, errorKind, errorMessage, responseJSON string) error {
	query := `
		UPDATE extractions
		SET status = ?, page_count = ?, error_kind = ?, error_message = ?,
		    response_json = ?, completed_at = ?
		WHERE id = ?
	`

	return r.exec(ctx, query, models.StatusFailed, pageCount, errorKind, errorMessage, responseJSON, time.Now().UTC(), id)
}

func (r *repository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("extraction %v not found", args[len(args)-1])
	}
	return nil
}

// GetByID returns nil, nil when no record has the id.
func (r *repository) GetByID(ctx context.Context, id string) (*models.ExtractionRecord, error) {
	var rec models.ExtractionRecord

	query := `
		SELECT id, document_url, file_extension, page_count, status, error_kind,
		       error_message, total_item_count, final_total_amount, response_json,
		       created_at, completed_at
		FROM extractions
		WHERE id = ?
	`

	err := r.db.GetContext(ctx, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
