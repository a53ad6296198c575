package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/models"
	"github.com/SscSPs/fleet_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const correctionColumns = `
	correction_id, tenant_id, tool_id, detection_date, error_type, error_description,
	affected_entries, fingerprint, severity_level, status, auto_fix_applied,
	manual_fix_required, resolution_notes, resolved_at, resolved_by,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxCorrectionRepository struct {
	BaseRepository
}

func newPgxCorrectionRepository(pool *pgxpool.Pool) portsrepo.CorrectionRepositoryFacade {
	return &PgxCorrectionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CorrectionRepositoryFacade = (*PgxCorrectionRepository)(nil)

func scanCorrection(row pgx.Row) (models.CorrectionLog, error) {
	var m models.CorrectionLog
	err := row.Scan(
		&m.CorrectionID,
		&m.TenantID,
		&m.ToolID,
		&m.DetectionDate,
		&m.ErrorType,
		&m.ErrorDescription,
		&m.AffectedEntries,
		&m.Fingerprint,
		&m.SeverityLevel,
		&m.Status,
		&m.AutoFixApplied,
		&m.ManualFixRequired,
		&m.ResolutionNotes,
		&m.ResolvedAt,
		&m.ResolvedBy,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxCorrectionRepository) findOne(ctx context.Context, what, query string, args ...any) (*domain.CorrectionLog, error) {
	m, err := scanCorrection(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to find correction "+what)
	}
	c := mapping.ToDomainCorrectionLog(m)
	return &c, nil
}

// FindCorrectionByID retrieves a correction log by its ID.
func (r *PgxCorrectionRepository) FindCorrectionByID(ctx context.Context, tenantID, correctionID string) (*domain.CorrectionLog, error) {
	query := `SELECT ` + correctionColumns + ` FROM correction_logs WHERE tenant_id = $1 AND correction_id = $2;`
	return r.findOne(ctx, correctionID, query, tenantID, correctionID)
}

// FindOpenCorrection retrieves the detected or reviewing log with the fingerprint.
func (r *PgxCorrectionRepository) FindOpenCorrection(ctx context.Context, tenantID, fingerprint string) (*domain.CorrectionLog, error) {
	query := `
		SELECT ` + correctionColumns + `
		FROM correction_logs
		WHERE tenant_id = $1 AND fingerprint = $2 AND status IN ('detected', 'reviewing');
	`
	return r.findOne(ctx, "by fingerprint", query, tenantID, fingerprint)
}

// ListCorrections retrieves logs newest first.
func (r *PgxCorrectionRepository) ListCorrections(ctx context.Context, tenantID string, filter domain.CorrectionFilter) ([]domain.CorrectionLog, error) {
	query := `
		SELECT ` + correctionColumns + `
		FROM correction_logs
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR error_type = $3)
		  AND ($4 = '' OR tool_id = $4)
		ORDER BY detection_date DESC, correction_id
		LIMIT NULLIF($5, 0);
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, string(filter.Status), string(filter.ErrorType), filter.ToolID, filter.Limit)
	if err != nil {
		return nil, translateError(err, "failed to query corrections")
	}
	defer rows.Close()

	logs := []domain.CorrectionLog{}
	for rows.Next() {
		m, err := scanCorrection(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan correction row")
		}
		logs = append(logs, mapping.ToDomainCorrectionLog(m))
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "error iterating correction rows")
	}
	return logs, nil
}

// SaveCorrection inserts a log. The partial unique index on open fingerprints
// rejects a second open log for the same issue.
func (r *PgxCorrectionRepository) SaveCorrection(ctx context.Context, log domain.CorrectionLog) error {
	m := mapping.ToModelCorrectionLog(log)
	query := `
		INSERT INTO correction_logs (` + correctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := r.conn(ctx).Exec(ctx, query,
		m.CorrectionID,
		m.TenantID,
		m.ToolID,
		m.DetectionDate,
		m.ErrorType,
		m.ErrorDescription,
		m.AffectedEntries,
		m.Fingerprint,
		m.SeverityLevel,
		m.Status,
		m.AutoFixApplied,
		m.ManualFixRequired,
		m.ResolutionNotes,
		m.ResolvedAt,
		m.ResolvedBy,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(err, "failed to insert correction "+m.CorrectionID)
	}
	return nil
}

// UpdateCorrection stores the mutable fields if the status is still expectedStatus.
func (r *PgxCorrectionRepository) UpdateCorrection(ctx context.Context, log domain.CorrectionLog, expectedStatus domain.CorrectionStatus) error {
	m := mapping.ToModelCorrectionLog(log)
	query := `
		UPDATE correction_logs
		SET status = $4, auto_fix_applied = $5, manual_fix_required = $6, resolution_notes = $7,
		    resolved_at = $8, resolved_by = $9, last_updated_at = $10, last_updated_by = $11
		WHERE tenant_id = $1 AND correction_id = $2 AND status = $3;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query,
		m.TenantID,
		m.CorrectionID,
		string(expectedStatus),
		m.Status,
		m.AutoFixApplied,
		m.ManualFixRequired,
		m.ResolutionNotes,
		m.ResolvedAt,
		m.ResolvedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(err, "failed to update correction "+m.CorrectionID)
	}
	if cmdTag.RowsAffected() == 0 {
		current, findErr := r.FindCorrectionByID(ctx, m.TenantID, m.CorrectionID)
		if findErr != nil {
			return findErr
		}
		return fmt.Errorf("%w: correction %s is %s, expected %s", apperrors.ErrStateTransition, m.CorrectionID, current.Status, expectedStatus)
	}
	return nil
}
