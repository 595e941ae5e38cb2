package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// LoadProspects returns every prospect of a list, in insertion order
func (db *DB) LoadProspects(ctx context.Context, listID string) ([]types.Prospect, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, email, first_name, last_name, title, company, industry, company_size,
		        timezone, website, research_text, status
		 FROM prospects WHERE list_id = $1 ORDER BY id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load prospects for list %s: %w", listID, err)
	}
	prospects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Prospect, error) {
		var p types.Prospect
		err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Title, &p.Company, &p.Industry,
			&p.CompanySize, &p.Timezone, &p.Website, &p.ResearchText, &p.Status)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan prospects: %w", err)
	}
	return prospects, nil
}

// UpsertProspect inserts or replaces a prospect in a list
func (db *DB) UpsertProspect(ctx context.Context, listID string, p types.Prospect) error {
	status := p.Status
	if status == "" {
		status = types.ProspectStatusActive
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO prospects (id, list_id, email, first_name, last_name, title, company, industry,
		                        company_size, timezone, website, research_text, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET list_id = $2, email = $3, first_name = $4, last_name = $5,
		     title = $6, company = $7, industry = $8, company_size = $9, timezone = $10,
		     website = $11, research_text = $12, status = $13, updated_at = NOW()`,
		p.ID, listID, p.Email, p.FirstName, p.LastName, p.Title, p.Company, p.Industry,
		p.CompanySize, p.Timezone, p.Website, p.ResearchText, status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prospect %s: %w", p.ID, err)
	}
	return nil
}

// SetProspectStatus changes one prospect's contactability status
func (db *DB) SetProspectStatus(ctx context.Context, prospectID, status string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE prospects SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, prospectID,
	)
	if err != nil {
		return fmt.Errorf("failed to set prospect %s status: %w", prospectID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProspectStatusByEmail changes the status of every prospect with this address.
// Suppression applies across lists.
func (db *DB) SetProspectStatusByEmail(ctx context.Context, email, status string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE prospects SET status = $1, updated_at = NOW() WHERE LOWER(email) = LOWER($2)`,
		status, email,
	)
	if err != nil {
		return fmt.Errorf("failed to set status for %s: %w", email, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
