package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/models"
)

func CreateProducer(ctx context.Context, db *sql.DB, name, region string) (*models.Producer, error) {
	producer := &models.Producer{}

	query := `
		INSERT INTO producers (name, region, created_at, updated_at, version)
		VALUES ($1, $2, NOW(), NOW(), 1)
		RETURNING id, name, region, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, name, region).Scan(
		&producer.ID,
		&producer.Name,
		&producer.Region,
		&producer.CreatedAt,
		&producer.UpdatedAt,
		&producer.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}

	return producer, nil
}

func GetProducer(ctx context.Context, db *sql.DB, id int64) (*models.Producer, error) {
	producer := &models.Producer{}

	query := `
		SELECT id, name, region, created_at, updated_at, version
		FROM producers
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&producer.ID,
		&producer.Name,
		&producer.Region,
		&producer.CreatedAt,
		&producer.UpdatedAt,
		&producer.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProducerNotFound
		}
		return nil, fmt.Errorf("get producer: %w", err)
	}

	return producer, nil
}
