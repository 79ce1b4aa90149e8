package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"real-estate-site/internal/models"
	"real-estate-site/internal/source"
)

// DB reads published listings from the backend's PostgreSQL database.
type DB struct {
	conn *sql.DB
}

// PostgresConnString builds a lib/pq connection string.
func PostgresConnString(host, port, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	conn, err := sql.Open("postgres", PostgresConnString(host, port, user, password, dbname, sslmode))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewDBFromConn wraps an already opened connection pool.
func NewDBFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

const propertyColumns = `
	id, title, location, price, bedrooms, bathrooms, area, type,
	COALESCE(description, ''), main_image, features, is_published, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (models.Property, error) {
	var (
		p         models.Property
		mainImage sql.NullString
		features  pq.StringArray
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Location, &p.Price, &p.Bedrooms, &p.Bathrooms, &p.Area, &p.Type,
		&p.Description, &mainImage, &features, &p.IsPublished, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}
	if mainImage.Valid {
		p.MainImage = &mainImage.String
	}
	p.Features = []string(features)
	return p, nil
}

// List retrieves all published properties with their images, newest first
func (db *DB) List(ctx context.Context) ([]models.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE is_published = TRUE
		ORDER BY id DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []models.Property{}
	ids := []int64{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
		ids = append(ids, int64(p.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	images, err := db.images(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range properties {
		properties[i].Images = images[properties[i].ID]
	}
	return properties, nil
}

// Get retrieves a published property by ID
func (db *DB) Get(ctx context.Context, id int) (*models.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE id = $1 AND is_published = TRUE`

	p, err := scanProperty(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, source.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %d: %w", id, err)
	}

	images, err := db.images(ctx, []int64{int64(id)})
	if err != nil {
		return nil, err
	}
	p.Images = images[p.ID]
	return &p, nil
}

// images loads the gallery of every listing in ids, keyed by property ID.
func (db *DB) images(ctx context.Context, ids []int64) (map[int][]models.PropertyImage, error) {
	byProperty := make(map[int][]models.PropertyImage, len(ids))
	if len(ids) == 0 {
		return byProperty, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, property_id, image, is_main, sort_order
		FROM property_images
		WHERE property_id = ANY($1)
		ORDER BY property_id, sort_order, id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list property images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.Image, &img.IsMain, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan property image: %w", err)
		}
		byProperty[img.PropertyID] = append(byProperty[img.PropertyID], img)
	}
	return byProperty, rows.Err()
}

var _ source.Source = (*DB)(nil)
