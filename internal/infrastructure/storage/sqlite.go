package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snacksmith/backend/internal/domain"
)

// SQLiteRepository implements domain.SnackRepository on a SQLite file
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// Ensure SQLiteRepository implements domain.SnackRepository
var _ domain.SnackRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database at dbPath and applies the schema
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMAs in effect and serializes writers
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db, log: logger}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Opened snack database", "path", dbPath)
	return repo, nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS snacks (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        base TEXT NOT NULL,
        analysis TEXT,
        health_score REAL,
        rating REAL NOT NULL DEFAULT 0,
        rating_count INTEGER NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS snack_ingredients (
        snack_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        amount_g REAL NOT NULL,
        PRIMARY KEY (snack_id, position),
        FOREIGN KEY (snack_id) REFERENCES snacks(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS snack_tags (
        snack_id TEXT NOT NULL,
        tag TEXT NOT NULL,
        PRIMARY KEY (snack_id, tag),
        FOREIGN KEY (snack_id) REFERENCES snacks(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_snacks_updated_at ON snacks(updated_at);
    CREATE INDEX IF NOT EXISTS idx_snack_ingredients_name ON snack_ingredients(name);
    `

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts or replaces a snack with its ingredients and tags in one transaction
func (r *SQLiteRepository) Save(ctx context.Context, snack *domain.Snack) error {
	if snack == nil || snack.ID == "" {
		return domain.ErrInvalidRequest
	}

	var analysisJSON sql.NullString
	var healthScore sql.NullFloat64
	if snack.Analysis != nil {
		raw, err := json.Marshal(snack.Analysis)
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: string(raw), Valid: true}
		healthScore = sql.NullFloat64{Float64: snack.Analysis.HealthScore, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	snackQuery := `
        INSERT INTO snacks (id, name, description, base, analysis, health_score, rating, rating_count, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            description = excluded.description,
            base = excluded.base,
            analysis = excluded.analysis,
            health_score = excluded.health_score,
            rating = excluded.rating,
            rating_count = excluded.rating_count,
            created_at = excluded.created_at,
            updated_at = excluded.updated_at
    `
	_, err = tx.ExecContext(ctx, snackQuery,
		snack.ID, snack.Name, snack.Description, string(snack.Base), analysisJSON, healthScore,
		snack.Rating, snack.RatingCount, formatTime(snack.CreatedAt), formatTime(snack.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert snack: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snack_ingredients WHERE snack_id = ?`, snack.ID); err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}
	for i, e := range snack.Ingredients {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snack_ingredients (snack_id, position, name, amount_g) VALUES (?, ?, ?, ?)`,
			snack.ID, i, e.Name, e.AmountG)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snack_tags WHERE snack_id = ?`, snack.ID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range snack.Tags {
		_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO snack_tags (snack_id, tag) VALUES (?, ?)`, snack.ID, tag)
		if err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}

	return tx.Commit()
}

const snackColumns = `id, name, description, base, analysis, rating, rating_count, created_at, updated_at`

// Get loads one snack with its ingredients and tags
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*domain.Snack, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snackColumns+` FROM snacks WHERE id = ?`, id)

	snack, err := scanSnack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnackNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, snack); err != nil {
		return nil, err
	}
	return snack, nil
}

// List returns snacks matching filter, most recently updated first
func (r *SQLiteRepository) List(ctx context.Context, filter domain.SnackFilter) ([]*domain.Snack, error) {
	query := `SELECT ` + snackColumns + ` FROM snacks WHERE 1=1`
	args := []interface{}{}

	if filter.Query != "" {
		query += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Ingredient != "" {
		query += ` AND EXISTS (SELECT 1 FROM snack_ingredients si WHERE si.snack_id = snacks.id AND LOWER(si.name) = ?)`
		args = append(args, strings.ToLower(filter.Ingredient))
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM snack_tags st WHERE st.snack_id = snacks.id AND LOWER(st.tag) = ?)`
		args = append(args, strings.ToLower(filter.Tag))
	}
	if filter.MinHealthScore > 0 {
		query += ` AND health_score >= ?`
		args = append(args, filter.MinHealthScore)
	}

	query += ` ORDER BY updated_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snacks: %w", err)
	}

	var snacks []*domain.Snack
	for rows.Next() {
		snack, err := scanSnack(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snacks = append(snacks, snack)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate snacks: %w", err)
	}
	rows.Close()

	// Children are loaded after the cursor is closed; the pool has a single connection
	for _, snack := range snacks {
		if err := r.loadChildren(ctx, snack); err != nil {
			return nil, err
		}
	}
	return snacks, nil
}

// Delete removes a snack; ingredients and tags cascade
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snacks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snack: %w", err)
	}
	if n == 0 {
		return domain.ErrSnackNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnack(row rowScanner) (*domain.Snack, error) {
	snack := &domain.Snack{}
	var base, createdAt, updatedAt string
	var analysisJSON sql.NullString

	err := row.Scan(&snack.ID, &snack.Name, &snack.Description, &base, &analysisJSON,
		&snack.Rating, &snack.RatingCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snack: %w", err)
	}

	snack.Base = domain.BaseType(base)
	if snack.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if snack.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if analysisJSON.Valid {
		var analysis domain.NutritionAnalysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
		snack.Analysis = &analysis
	}
	return snack, nil
}

func (r *SQLiteRepository) loadChildren(ctx context.Context, snack *domain.Snack) error {
	ingredients, err := r.loadIngredients(ctx, snack.ID)
	if err != nil {
		return err
	}
	tags, err := r.loadTags(ctx, snack.ID)
	if err != nil {
		return err
	}
	snack.Ingredients = ingredients
	snack.Tags = tags
	return nil
}

func (r *SQLiteRepository) loadIngredients(ctx context.Context, snackID string) ([]domain.IngredientEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, amount_g FROM snack_ingredients WHERE snack_id = ? ORDER BY position`, snackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	entries := []domain.IngredientEntry{}
	for rows.Next() {
		var e domain.IngredientEntry
		if err := rows.Scan(&e.Name, &e.AmountG); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ingredients: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) loadTags(ctx context.Context, snackID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM snack_tags WHERE snack_id = ? ORDER BY tag`, snackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return tags, nil
}

// timeLayout has fixed-width fractions so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
