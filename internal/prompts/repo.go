package prompts

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const promptColumns = `id, function, model, temperature, max_output_tokens, system_prompt, user_template, version, active, updated_at`

func (r *PostgresRepo) GetActive(ctx context.Context, function string) (*Config, error) {
	query := `SELECT ` + promptColumns + ` FROM prompt_configs WHERE function = $1 AND active = TRUE`
	c := &Config{}
	err := r.db.QueryRowContext(ctx, query, function).Scan(
		&c.ID, &c.Function, &c.Model, &c.Temperature, &c.MaxOutputTokens,
		&c.SystemPrompt, &c.UserTemplate, &c.Version, &c.Active, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("load active prompt for %s: %w", function, err)
	}
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Config, error) {
	query := `SELECT ` + promptColumns + ` FROM prompt_configs ORDER BY function, version DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		var c Config
		if err := rows.Scan(
			&c.ID, &c.Function, &c.Model, &c.Temperature, &c.MaxOutputTokens,
			&c.SystemPrompt, &c.UserTemplate, &c.Version, &c.Active, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// Update inserts a new version for the function and flips the active flag to
// it, within one transaction.
func (r *PostgresRepo) Update(ctx context.Context, c *Config) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE prompt_configs SET active = FALSE WHERE function = $1`, c.Function); err != nil {
		return fmt.Errorf("deactivate old prompts: %w", err)
	}

	query := `
		INSERT INTO prompt_configs (id, function, model, temperature, max_output_tokens, system_prompt, user_template, version, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, (SELECT COALESCE(MAX(version), 0) + 1 FROM prompt_configs WHERE function = $2), TRUE, NOW())
	`
	if _, err := tx.ExecContext(ctx, query,
		c.ID, c.Function, c.Model, c.Temperature, c.MaxOutputTokens, c.SystemPrompt, c.UserTemplate); err != nil {
		return fmt.Errorf("insert prompt version: %w", err)
	}

	return tx.Commit()
}
