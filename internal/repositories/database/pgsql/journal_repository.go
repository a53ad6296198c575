package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/models"
	"github.com/SscSPs/fleet_ledger/internal/utils/mapping"
	"github.com/SscSPs/fleet_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const entryColumns = `
	entry_id, tenant_id, entry_date, reference, description,
	debit_account, credit_account, debit_amount, credit_amount,
	source_type, source_id, period, contract_id, customer_id, vehicle_id, rule_id,
	status, notes, posted_at, reversed_at,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal entries.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryWithTx {
	return &PgxJournalRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryWithTx
var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

func scanEntry(row pgx.Row) (models.JournalEntry, error) {
	var m models.JournalEntry
	err := row.Scan(
		&m.EntryID,
		&m.TenantID,
		&m.EntryDate,
		&m.Reference,
		&m.Description,
		&m.DebitAccount,
		&m.CreditAccount,
		&m.DebitAmount,
		&m.CreditAmount,
		&m.SourceType,
		&m.SourceID,
		&m.Period,
		&m.ContractID,
		&m.CustomerID,
		&m.VehicleID,
		&m.RuleID,
		&m.Status,
		&m.Notes,
		&m.PostedAt,
		&m.ReversedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func collectEntries(rows pgx.Rows, what string) ([]models.JournalEntry, error) {
	defer rows.Close()
	entries := []models.JournalEntry{}
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan journal entry row for "+what)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "error iterating journal entry rows for "+what)
	}
	return entries, nil
}

// SaveEntries inserts the entries in one transaction. A dry run performs the
// inserts and rolls them back, so every constraint is still checked.
func (r *PgxJournalRepository) SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts portsrepo.SaveOptions) ([]string, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(context.WithoutCancel(ctx), tx)

	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24);
	`
	batch := &pgx.Batch{}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		m := mapping.ToModelJournalEntry(e)
		m.TenantID = tenantID
		batch.Queue(query,
			m.EntryID,
			m.TenantID,
			m.EntryDate,
			m.Reference,
			m.Description,
			m.DebitAccount,
			m.CreditAccount,
			m.DebitAmount,
			m.CreditAmount,
			m.SourceType,
			m.SourceID,
			m.Period,
			m.ContractID,
			m.CustomerID,
			m.VehicleID,
			m.RuleID,
			m.Status,
			m.Notes,
			m.PostedAt,
			m.ReversedAt,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		ids = append(ids, m.EntryID)
	}

	// Close reports the first failing insert
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, translateError(err, "failed to insert journal entries")
	}
	if opts.DryRun {
		return ids, nil
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return ids, nil
}

// FindEntryByID retrieves a journal entry by its ID.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE tenant_id = $1 AND entry_id = $2;`
	m, err := scanEntry(r.conn(ctx).QueryRow(ctx, query, tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to find journal entry by ID "+entryID)
	}
	entry := mapping.ToDomainJournalEntry(m)
	return &entry, nil
}

// FindEntriesByReference retrieves the entries carrying any of the references,
// in the order the references were given.
func (r *PgxJournalRepository) FindEntriesByReference(ctx context.Context, tenantID string, references []string) ([]domain.JournalEntry, error) {
	if len(references) == 0 {
		return []domain.JournalEntry{}, nil
	}
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND reference = ANY($2)
		ORDER BY array_position($2, reference);
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, references)
	if err != nil {
		return nil, translateError(err, "failed to query journal entries by reference")
	}
	ms, err := collectEntries(rows, "references")
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainJournalEntrySlice(ms), nil
}

// FindEntries retrieves a page of entries matching the filter using token-based pagination.
func (r *PgxJournalRepository) FindEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error) {
	limit := pagination.NormalizeLimit(filter.Limit)
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	args := []any{tenantID}
	where := []string{"tenant_id = $1"}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.SourceType != "" {
		add("source_type = ?", string(filter.SourceType))
	}
	if filter.SourceID != "" {
		add("source_id = ?", filter.SourceID)
	}
	if filter.Status != "" {
		add("status = ?", string(filter.Status))
	}
	if filter.Account != "" {
		add("(debit_account = ? OR credit_account = ?)", filter.Account)
	}
	if filter.VehicleID != "" {
		add("vehicle_id = ?", filter.VehicleID)
	}
	if filter.ContractID != "" {
		add("contract_id = ?", filter.ContractID)
	}
	if filter.CustomerID != "" {
		add("customer_id = ?", filter.CustomerID)
	}
	if filter.Period != "" {
		add("period = ?", filter.Period)
	}
	if filter.DateFrom != nil {
		add("entry_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("entry_date <= ?", *filter.DateTo)
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		cursor, decodeErr := pagination.DecodeToken(*filter.NextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", fmt.Errorf("%w: %w", apperrors.ErrValidation, decodeErr))
		}
		// Tuple comparison keeps the cursor condition on the sort index
		args = append(args, cursor.EntryDate, cursor.CreatedAt, cursor.ID)
		n := len(args)
		where = append(where, fmt.Sprintf("(entry_date, created_at, entry_id) < ($%d, $%d, $%d)", n-2, n-1, n))
	}
	args = append(args, fetchLimit)

	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY entry_date DESC, created_at DESC, entry_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, nil, translateError(err, "failed to query journal entries for tenant "+tenantID)
	}
	ms, err := collectEntries(rows, "tenant "+tenantID)
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	if len(ms) > limit {
		// The token points to the last item included in this page
		last := ms[limit-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.EntryID)
		nextTokenVal = &token
		ms = ms[:limit]
	}
	return mapping.ToDomainJournalEntrySlice(ms), nextTokenVal, nil
}

// FindDepreciationEntry retrieves the live depreciation entry for a vehicle and period.
func (r *PgxJournalRepository) FindDepreciationEntry(ctx context.Context, tenantID, vehicleID, period string) (*domain.JournalEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND source_type = 'depreciation' AND source_id = $2 AND period = $3
		  AND status <> 'reversed'
		LIMIT 1;
	`
	m, err := scanEntry(r.conn(ctx).QueryRow(ctx, query, tenantID, vehicleID, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to find depreciation entry for vehicle "+vehicleID)
	}
	entry := mapping.ToDomainJournalEntry(m)
	return &entry, nil
}

// ListPostedEntries retrieves posted entries within the optional date range, oldest first.
func (r *PgxJournalRepository) ListPostedEntries(ctx context.Context, tenantID string, from, to *time.Time) ([]domain.JournalEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND status = 'posted'
		  AND ($2::date IS NULL OR entry_date >= $2)
		  AND ($3::date IS NULL OR entry_date <= $3)
		ORDER BY entry_date, created_at, entry_id;
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, translateError(err, "failed to query posted journal entries")
	}
	ms, err := collectEntries(rows, "posted entries")
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainJournalEntrySlice(ms), nil
}

// GetBalance sums posted debit legs minus posted credit legs for an account.
func (r *PgxJournalRepository) GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN debit_account = $2 THEN debit_amount ELSE 0 END), 0) -
			COALESCE(SUM(CASE WHEN credit_account = $2 THEN credit_amount ELSE 0 END), 0)
		FROM journal_entries
		WHERE tenant_id = $1 AND status = 'posted'
		  AND (debit_account = $2 OR credit_account = $2)
		  AND ($3::date IS NULL OR entry_date <= $3);
	`
	var balance decimal.Decimal
	if err := r.conn(ctx).QueryRow(ctx, query, tenantID, accountCode, asOf).Scan(&balance); err != nil {
		return decimal.Zero, translateError(err, "failed to compute balance for account "+accountCode)
	}
	return balance, nil
}

// UpdateEntryStatus moves an entry between statuses if it is still in `from`.
func (r *PgxJournalRepository) UpdateEntryStatus(ctx context.Context, tenantID, entryID string, from, to domain.EntryStatus, notes *string, userID string, at time.Time) error {
	query := `
		UPDATE journal_entries
		SET status = $4,
		    notes = COALESCE($5, notes),
		    posted_at = CASE WHEN $4 = 'posted' THEN $6 ELSE posted_at END,
		    reversed_at = CASE WHEN $4 = 'reversed' THEN $6 ELSE reversed_at END,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE tenant_id = $1 AND entry_id = $2 AND status = $3;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query, tenantID, entryID, string(from), string(to), notes, at, userID)
	if err != nil {
		return translateError(err, "failed to update status of journal entry "+entryID)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.statusMismatch(ctx, tenantID, entryID, from)
	}
	return nil
}

// DeleteEntry removes a pending entry.
func (r *PgxJournalRepository) DeleteEntry(ctx context.Context, tenantID, entryID string) error {
	query := `DELETE FROM journal_entries WHERE tenant_id = $1 AND entry_id = $2 AND status = 'pending';`
	cmdTag, err := r.conn(ctx).Exec(ctx, query, tenantID, entryID)
	if err != nil {
		return translateError(err, "failed to delete journal entry "+entryID)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.statusMismatch(ctx, tenantID, entryID, domain.EntryPending)
	}
	return nil
}

// statusMismatch explains why a guarded update touched no rows.
func (r *PgxJournalRepository) statusMismatch(ctx context.Context, tenantID, entryID string, expected domain.EntryStatus) error {
	current, err := r.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: entry %s is %s, expected %s", apperrors.ErrStateTransition, entryID, current.Status, expected)
}
