package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
)

//go:embed queries/*.sql
var queryFS embed.FS

var _ storage.Storer = (*DB)(nil)

// DB is a SQLite implementation of the storage.Storer interface.
// The database lives in memory and is discarded when the DB is closed.
type DB struct {
	Conn  *sql.DB // The raw database connection, exposed for extensibility.
	clock tourhub.Clock
	ids   tourhub.IDGenerator
}

// New opens a private in-memory SQLite database and creates the schema.
// A nil clock or id generator selects the real one.
func New(clock tourhub.Clock, ids tourhub.IDGenerator) (*DB, error) {
	if clock == nil {
		clock = tourhub.RealClock{}
	}
	if ids == nil {
		ids = tourhub.UUIDGenerator{}
	}

	// Every connection of a shared-cache memory database sees the same data;
	// the name keeps separate DB values apart.
	dsn := fmt.Sprintf("file:tourhub-%s?mode=memory&cache=shared&_busy_timeout=5000", tourhub.UUIDGenerator{}.New())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writes and keeps the memory database alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{Conn: db, clock: clock, ids: ids}
	if err := instance.createSchema(); err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return instance, nil
}

// getQuery reads a raw SQL query from the embedded filesystem.
func getQuery(name string) (string, error) {
	b, err := queryFS.ReadFile("queries/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded query %s: %w", name, err)
	}
	return string(b), nil
}

// createSchema creates the necessary tables in the SQLite database if they don't exist.
func (db *DB) createSchema() error {
	query, err := getQuery("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Conn.Exec(query)
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (tourhub.DownloadRecord, error) {
	var rec tourhub.DownloadRecord
	var created int64
	if err := s.Scan(&rec.ID, &rec.ImageURL, &rec.DownloadURL, &rec.Title, &rec.Description, &created); err != nil {
		return rec, err
	}
	rec.CreatedAt = fromNanos(created)
	return rec, nil
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// All returns every download record in insertion order.
func (db *DB) All(ctx context.Context) ([]tourhub.DownloadRecord, error) {
	query, err := getQuery("all_downloads.sql")
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []tourhub.DownloadRecord{}
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns a single download record.
func (db *DB) Get(ctx context.Context, id string) (tourhub.DownloadRecord, error) {
	query, err := getQuery("get_download.sql")
	if err != nil {
		return tourhub.DownloadRecord{}, err
	}
	rec, err := scanDownload(db.Conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tourhub.DownloadRecord{}, fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
	}
	if err != nil {
		return tourhub.DownloadRecord{}, fmt.Errorf("failed to get download %s: %w", id, err)
	}
	return rec, nil
}

// Add inserts a new download record with a generated id.
func (db *DB) Add(ctx context.Context, in tourhub.NewDownload) (tourhub.DownloadRecord, error) {
	rec := tourhub.DownloadRecord{
		ID:          db.ids.New(),
		ImageURL:    in.ImageURL,
		DownloadURL: in.DownloadURL,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   db.clock.Now(),
	}
	query, err := getQuery("add_download.sql")
	if err != nil {
		return tourhub.DownloadRecord{}, err
	}
	_, err = db.Conn.ExecContext(ctx, query, rec.ID, rec.ImageURL, rec.DownloadURL, rec.Title, rec.Description, rec.CreatedAt.UnixNano())
	if err != nil {
		return tourhub.DownloadRecord{}, fmt.Errorf("failed to insert download: %w", err)
	}
	return rec, nil
}

// Remove deletes a download record.
func (db *DB) Remove(ctx context.Context, id string) error {
	query, err := getQuery("remove_download.sql")
	if err != nil {
		return err
	}
	res, err := db.Conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete download %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete download %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
	}
	return nil
}

// Seed upserts fully-formed records inside one transaction.
func (db *DB) Seed(ctx context.Context, records ...tourhub.DownloadRecord) error {
	query, err := getQuery("seed_download.sql")
	if err != nil {
		return err
	}
	tx, err := db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.ImageURL, rec.DownloadURL, rec.Title, rec.Description, rec.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to seed download %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// AddLike inserts a like unless the user already liked the post, then returns the stored like.
func (db *DB) AddLike(ctx context.Context, postID, userID string) (tourhub.Like, error) {
	insert, err := getQuery("add_like.sql")
	if err != nil {
		return tourhub.Like{}, err
	}
	if _, err := db.Conn.ExecContext(ctx, insert, db.ids.New(), postID, userID, db.clock.Now().UnixNano()); err != nil {
		return tourhub.Like{}, fmt.Errorf("failed to insert like: %w", err)
	}

	query, err := getQuery("get_like.sql")
	if err != nil {
		return tourhub.Like{}, err
	}
	var like tourhub.Like
	var created int64
	err = db.Conn.QueryRowContext(ctx, query, postID, userID).Scan(&like.ID, &like.PostID, &like.UserID, &created)
	if err != nil {
		return tourhub.Like{}, fmt.Errorf("failed to read like: %w", err)
	}
	like.CreatedAt = fromNanos(created)
	return like, nil
}

// RemoveLike deletes a like and reports whether one existed.
func (db *DB) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	query, err := getQuery("remove_like.sql")
	if err != nil {
		return false, err
	}
	res, err := db.Conn.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	return n > 0, nil
}

// LikeCount counts the likes on a post.
func (db *DB) LikeCount(ctx context.Context, postID string) (int, error) {
	query, err := getQuery("like_count.sql")
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.Conn.QueryRowContext(ctx, query, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count likes for %s: %w", postID, err)
	}
	return n, nil
}

// IsLiked reports whether a user liked a post.
func (db *DB) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	query, err := getQuery("is_liked.sql")
	if err != nil {
		return false, err
	}
	var liked bool
	if err := db.Conn.QueryRowContext(ctx, query, postID, userID).Scan(&liked); err != nil {
		return false, fmt.Errorf("failed to check like for %s: %w", postID, err)
	}
	return liked, nil
}

// AddComment inserts a comment.
func (db *DB) AddComment(ctx context.Context, postID, userID, username, text string) (tourhub.Comment, error) {
	c := tourhub.Comment{
		ID:        db.ids.New(),
		PostID:    postID,
		UserID:    userID,
		Username:  username,
		Text:      text,
		CreatedAt: db.clock.Now(),
	}
	query, err := getQuery("add_comment.sql")
	if err != nil {
		return tourhub.Comment{}, err
	}
	if _, err := db.Conn.ExecContext(ctx, query, c.ID, c.PostID, c.UserID, c.Username, c.Text, c.CreatedAt.UnixNano()); err != nil {
		return tourhub.Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}

// Comments returns a post's comments, newest first.
func (db *DB) Comments(ctx context.Context, postID string) ([]tourhub.Comment, error) {
	query, err := getQuery("comments.sql")
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for %s: %w", postID, err)
	}
	defer func() { _ = rows.Close() }()

	comments := []tourhub.Comment{}
	for rows.Next() {
		var c tourhub.Comment
		var created int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		c.CreatedAt = fromNanos(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Close closes the database connection, discarding its contents.
func (db *DB) Close() error {
	return db.Conn.Close()
}
