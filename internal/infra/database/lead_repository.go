package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, idempotency_key, email, name, company, phone, details, source, custom_fields, status, created_at, ttl_at`

// Put é a única operação sensível a concorrência do sistema: insert
// condicional pela chave de idempotência. Dois submits concorrentes com
// a mesma chave convergem no mesmo registro e o perdedor recebe o id do
// vencedor com created=false.
func (r *LeadRepository) Put(ctx context.Context, draft *entity.LeadDraft) (string, bool, error) {
	query := `
		INSERT INTO leads (id, idempotency_key, email, name, company, phone, details, source, custom_fields, status, created_at, ttl_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), $11)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`

	custom, err := marshalCustomFields(draft.CustomFields)
	if err != nil {
		return "", false, entity.NewStorageError("put lead", err)
	}

	newID := uuid.New().String()

	var id string
	err = r.DB.QueryRowContext(ctx, query,
		newID,
		draft.IdempotencyKey,
		draft.Email,
		nullString(draft.Name),
		nullString(draft.Company),
		nullString(draft.Phone),
		nullString(draft.Details),
		nullString(draft.Source),
		custom,
		entity.StatusNew,
		draft.TTLAt,
	).Scan(&id)

	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, entity.NewStorageError("put lead", err)
	}

	// Conflito: a chave já existe. Devolve o id do vencedor.
	err = r.DB.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE idempotency_key = $1`,
		draft.IdempotencyKey,
	).Scan(&id)
	if err != nil {
		return "", false, entity.NewStorageError("put lead (replay lookup)", err)
	}
	return id, false, nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)

	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, entity.NewStorageError("get lead", err)
	}
	return lead, nil
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string, after *entity.Position, limit int) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1`
	args := []interface{}{email}
	query, args = appendKeyset(query, args, after)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return r.queryLeads(ctx, "find by email", query, args...)
}

func (r *LeadRepository) FindBySource(ctx context.Context, source string, from, to *time.Time, after *entity.Position, limit int) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE source = $1`
	args := []interface{}{source}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query, args = appendKeyset(query, args, after)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return r.queryLeads(ctx, "find by source", query, args...)
}

func (r *LeadRepository) List(ctx context.Context, filter entity.ListFilter, after *entity.Position, limit int) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []interface{}
	if filter.Email != "" {
		args = append(args, filter.Email)
		query += fmt.Sprintf(" AND email = $%d", len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query, args = appendKeyset(query, args, after)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return r.queryLeads(ctx, "list leads", query, args...)
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id, to string, from ...string) error {
	query := `UPDATE leads SET status = $1 WHERE id = $2`
	args := []interface{}{to, id}
	if len(from) > 0 {
		placeholders := ""
		for i, s := range from {
			if i > 0 {
				placeholders += ", "
			}
			args = append(args, s)
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND status IN (" + placeholders + ")"
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return entity.NewStorageError("update status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return entity.NewStorageError("update status", err)
	}
	if n == 0 {
		// Ou o lead não existe, ou está fora dos status de origem.
		var current string
		err := r.DB.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrLeadNotFound
		}
		if err != nil {
			return entity.NewStorageError("update status", err)
		}
		return entity.ErrStatusConflict
	}
	return nil
}

func (r *LeadRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM leads WHERE ttl_at IS NOT NULL AND ttl_at <= $1`, now)
	if err != nil {
		return 0, entity.NewStorageError("delete expired", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, entity.NewStorageError("delete expired", err)
	}
	return n, nil
}

func (r *LeadRepository) queryLeads(ctx context.Context, op, query string, args ...interface{}) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, entity.NewStorageError(op, err)
	}
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, entity.NewStorageError(op, err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.NewStorageError(op, err)
	}
	return leads, nil
}

// appendKeyset adiciona a condição de posição (created_at, id) > cursor.
func appendKeyset(query string, args []interface{}, after *entity.Position) (string, []interface{}) {
	if after == nil {
		return query, args
	}
	args = append(args, after.CreatedAt, after.ID)
	query += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", len(args)-1, len(args))
	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	var name, company, phone, details, source sql.NullString
	var custom []byte
	var ttlAt sql.NullTime

	err := row.Scan(
		&lead.ID,
		&lead.IdempotencyKey,
		&lead.Email,
		&name,
		&company,
		&phone,
		&details,
		&source,
		&custom,
		&lead.Status,
		&lead.CreatedAt,
		&ttlAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Name = name.String
	lead.Company = company.String
	lead.Phone = phone.String
	lead.Details = details.String
	lead.Source = source.String
	if ttlAt.Valid {
		t := ttlAt.Time
		lead.TTLAt = &t
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &lead.CustomFields); err != nil {
			return nil, err
		}
	}
	return &lead, nil
}

func marshalCustomFields(fields map[string]string) (interface{}, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
