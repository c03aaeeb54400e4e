package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prokemal2012/Filx/internal/models"
)

// Ensure DB implements every store interface.
var _ Store = (*DB)(nil)

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	// Immediate transactions take the write lock up front so concurrent
	// toggles on the same edge serialize instead of failing on upgrade.
	dsn := path + "?_txlock=immediate&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		verified INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		is_public INTEGER NOT NULL DEFAULT 0,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(user_id);
	CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
	CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at);

	CREATE TABLE IF NOT EXISTS interactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		UNIQUE(user_id, target_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_target ON interactions(target_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_type ON interactions(type);
	CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);

	CREATE TABLE IF NOT EXISTS activities (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		details TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id);
	CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp);

	CREATE TABLE IF NOT EXISTS comments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		document_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comments_document ON comments(document_id);

	CREATE TABLE IF NOT EXISTS comment_likes (
		comment_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (comment_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT 'null',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

	CREATE TABLE IF NOT EXISTS search_index_state (
		document_id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		indexed_at INTEGER NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// interactionMetadata is the JSON shape of the metadata column
type interactionMetadata struct {
	Document *models.DocumentSnapshot `json:"document,omitempty"`
	Followee *models.FolloweeSnapshot `json:"followee,omitempty"`
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// QueryInteractions returns matching interactions in insertion order
func (d *DB) QueryInteractions(ctx context.Context, filter InteractionFilter) ([]models.Interaction, error) {
	where, args := interactionWhere(filter)
	query := `
	SELECT id, user_id, target_id, target_type, type, timestamp, metadata
	FROM interactions` + where + `
	ORDER BY seq`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query interactions", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var (
			i        models.Interaction
			ts       int64
			metadata string
		)
		if err := rows.Scan(&i.ID, &i.UserID, &i.TargetID, &i.TargetType, &i.Type, &ts, &metadata); err != nil {
			return nil, unavailable("scan interaction", err)
		}
		i.Timestamp = fromUnix(ts)

		var meta interactionMetadata
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			return nil, fmt.Errorf("decode interaction %s metadata: %w", i.ID, err)
		}
		i.Document = meta.Document
		i.Followee = meta.Followee

		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate interactions", err)
	}

	return interactions, nil
}

// CountInteractions returns the number of matching interactions
func (d *DB) CountInteractions(ctx context.Context, filter InteractionFilter) (int, error) {
	where, args := interactionWhere(filter)
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interactions"+where, args...).Scan(&count); err != nil {
		return 0, unavailable("count interactions", err)
	}
	return count, nil
}

// ToggleInteraction deletes or inserts the edge inside one transaction
func (d *DB) ToggleInteraction(ctx context.Context, i models.Interaction) (ToggleResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return ToggleResult{}, unavailable("begin toggle", err)
	}
	defer tx.Rollback()

	var result ToggleResult

	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM interactions WHERE user_id = ? AND target_id = ? AND type = ?",
		i.UserID, i.TargetID, i.Type,
	).Scan(&existingID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, "DELETE FROM interactions WHERE id = ?", existingID); err != nil {
			return ToggleResult{}, unavailable("delete interaction", err)
		}
		result.Active = false
	case errors.Is(err, sql.ErrNoRows):
		metadata, err := json.Marshal(interactionMetadata{Document: i.Document, Followee: i.Followee})
		if err != nil {
			return ToggleResult{}, fmt.Errorf("encode interaction metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, target_id, target_type, type, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i.ID, i.UserID, i.TargetID, i.TargetType, i.Type, toUnix(i.Timestamp), string(metadata),
		)
		if err != nil {
			return ToggleResult{}, unavailable("insert interaction", err)
		}
		result.Active = true
	default:
		return ToggleResult{}, unavailable("lookup interaction", err)
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interactions WHERE target_id = ? AND type = ?",
		i.TargetID, i.Type,
	).Scan(&result.Count); err != nil {
		return ToggleResult{}, unavailable("count after toggle", err)
	}

	if err := tx.Commit(); err != nil {
		return ToggleResult{}, unavailable("commit toggle", err)
	}

	return result, nil
}

func interactionWhere(f InteractionFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.TargetID != "" {
		clauses = append(clauses, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if f.TargetType != "" {
		clauses = append(clauses, "target_type = ?")
		args = append(args, f.TargetType)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "timestamp > ?")
		args = append(args, toUnix(f.Since))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// AppendActivity records a new activity
func (d *DB) AppendActivity(ctx context.Context, a models.Activity) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO activities (id, user_id, action, entity_type, entity_id, timestamp, details)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Action, a.EntityType, a.EntityID, toUnix(a.Timestamp), string(details),
	)
	if err != nil {
		return unavailable("insert activity", err)
	}
	return nil
}

// QueryActivities returns matching activities, newest first
func (d *DB) QueryActivities(ctx context.Context, filter ActivityFilter) ([]models.Activity, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.UserIDs) > 0 {
		placeholders := make([]string, len(filter.UserIDs))
		for i, id := range filter.UserIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, "user_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "timestamp > ?")
		args = append(args, toUnix(filter.Since))
	}

	query := "SELECT id, user_id, action, entity_type, entity_id, timestamp, details FROM activities"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query activities", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var (
			a       models.Activity
			ts      int64
			details string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &ts, &details); err != nil {
			return nil, unavailable("scan activity", err)
		}
		a.Timestamp = fromUnix(ts)
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, fmt.Errorf("decode activity %s details: %w", a.ID, err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate activities", err)
	}

	return activities, nil
}

const documentColumns = `id, user_id, title, content, description, type, size, category,
	tags, is_public, thumbnail_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc       models.Document
		tags      string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Title, &doc.Content, &doc.Description, &doc.Type, &doc.Size,
		&doc.Category, &tags, &doc.IsPublic, &doc.ThumbnailURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
		return nil, fmt.Errorf("decode document %s tags: %w", doc.ID, err)
	}
	doc.CreatedAt = fromUnix(createdAt)
	doc.UpdatedAt = fromUnix(updatedAt)
	return &doc, nil
}

// GetDocument retrieves a document by ID
func (d *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}
	return doc, nil
}

// ListDocuments retrieves matching documents in creation order
func (d *DB) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.OwnerID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.PublicOnly {
		clauses = append(clauses, "is_public = 1")
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}

	query := "SELECT " + documentColumns + " FROM documents"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list documents", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, unavailable("scan document", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate documents", err)
	}

	return docs, nil
}

// UpsertDocument inserts or updates a document
func (d *DB) UpsertDocument(ctx context.Context, doc models.Document) error {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := `
	INSERT INTO documents (` + documentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		content = excluded.content,
		description = excluded.description,
		type = excluded.type,
		size = excluded.size,
		category = excluded.category,
		tags = excluded.tags,
		is_public = excluded.is_public,
		thumbnail_url = excluded.thumbnail_url,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`

	_, err = d.db.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.Title, doc.Content, doc.Description, doc.Type, doc.Size,
		doc.Category, string(tagsJSON), doc.IsPublic, doc.ThumbnailURL,
		toUnix(doc.CreatedAt), toUnix(doc.UpdatedAt),
	)
	if err != nil {
		return unavailable("upsert document", err)
	}
	return nil
}

// DeleteDocument removes a document
func (d *DB) DeleteDocument(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return unavailable("delete document", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetUser retrieves a user by ID
func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var (
		u         models.User
		createdAt int64
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT id, name, email, bio, avatar_url, verified, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.AvatarURL, &u.Verified, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	u.CreatedAt = fromUnix(createdAt)
	return &u, nil
}

// ListUsers returns every user in registration order
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, name, email, bio, avatar_url, verified, created_at FROM users ORDER BY rowid")
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u         models.User
			createdAt int64
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.AvatarURL, &u.Verified, &createdAt); err != nil {
			return nil, unavailable("scan user", err)
		}
		u.CreatedAt = fromUnix(createdAt)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return users, nil
}

// UpsertUser inserts or updates a user
func (d *DB) UpsertUser(ctx context.Context, u models.User) error {
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO users (id, name, email, bio, avatar_url, verified, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		bio = excluded.bio,
		avatar_url = excluded.avatar_url,
		verified = excluded.verified`,
		u.ID, u.Name, u.Email, u.Bio, u.AvatarURL, u.Verified, toUnix(u.CreatedAt),
	)
	if err != nil {
		return unavailable("upsert user", err)
	}
	return nil
}

// IndexedHash returns the content hash last written to the search index
func (d *DB) IndexedHash(ctx context.Context, documentID string) (string, error) {
	var hash string
	err := d.db.QueryRowContext(ctx,
		"SELECT content_hash FROM search_index_state WHERE document_id = ?", documentID,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("get content hash", err)
	}
	return hash, nil
}

// SetIndexedHash records that documentID was indexed with the given hash
func (d *DB) SetIndexedHash(ctx context.Context, documentID, hash string) error {
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO search_index_state (document_id, content_hash, indexed_at) VALUES (?, ?, ?)
	ON CONFLICT(document_id) DO UPDATE SET
		content_hash = excluded.content_hash,
		indexed_at = excluded.indexed_at`,
		documentID, hash, toUnix(time.Now()),
	)
	if err != nil {
		return unavailable("set content hash", err)
	}
	return nil
}

// ListIndexed returns the ids of every indexed document
func (d *DB) ListIndexed(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT document_id FROM search_index_state ORDER BY document_id")
	if err != nil {
		return nil, unavailable("list indexed", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan indexed", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteIndexed forgets the index state of a document
func (d *DB) DeleteIndexed(ctx context.Context, documentID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM search_index_state WHERE document_id = ?", documentID); err != nil {
		return unavailable("delete indexed", err)
	}
	return nil
}

// AddComment stores a new comment or reply
func (d *DB) AddComment(ctx context.Context, c models.Comment) error {
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO comments (id, document_id, user_id, parent_id, content, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.DocumentID, c.UserID, c.ParentID, c.Content, toUnix(c.CreatedAt),
	)
	if err != nil {
		return unavailable("insert comment", err)
	}
	return nil
}

const commentColumns = "id, document_id, user_id, parent_id, content, created_at"

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		c         models.Comment
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.DocumentID, &c.UserID, &c.ParentID, &c.Content, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(createdAt)
	return &c, nil
}

// GetComment retrieves a comment by ID
func (d *DB) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get comment", err)
	}
	return c, nil
}

// ListComments returns the comments on a document in creation order
func (d *DB) ListComments(ctx context.Context, documentID string) ([]models.Comment, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE document_id = ? ORDER BY seq", documentID)
	if err != nil {
		return nil, unavailable("list comments", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, unavailable("scan comment", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate comments", err)
	}
	return comments, nil
}

// ToggleCommentLike deletes or inserts the like inside one transaction
func (d *DB) ToggleCommentLike(ctx context.Context, commentID, userID string, at time.Time) (ToggleResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return ToggleResult{}, unavailable("begin comment like", err)
	}
	defer tx.Rollback()

	var result ToggleResult

	res, err := tx.ExecContext(ctx,
		"DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?", commentID, userID)
	if err != nil {
		return ToggleResult{}, unavailable("delete comment like", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return ToggleResult{}, unavailable("delete comment like", err)
	}
	if removed == 0 {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO comment_likes (comment_id, user_id, created_at) VALUES (?, ?, ?)",
			commentID, userID, toUnix(at),
		)
		if err != nil {
			return ToggleResult{}, unavailable("insert comment like", err)
		}
		result.Active = true
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comment_likes WHERE comment_id = ?", commentID,
	).Scan(&result.Count); err != nil {
		return ToggleResult{}, unavailable("count comment likes", err)
	}

	if err := tx.Commit(); err != nil {
		return ToggleResult{}, unavailable("commit comment like", err)
	}
	return result, nil
}

// CommentLikers returns who likes each of the given comments
func (d *DB) CommentLikers(ctx context.Context, commentIDs []string) (map[string][]string, error) {
	likers := make(map[string][]string, len(commentIDs))
	if len(commentIDs) == 0 {
		return likers, nil
	}

	placeholders := make([]string, len(commentIDs))
	args := make([]any, len(commentIDs))
	for i, id := range commentIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := d.db.QueryContext(ctx, `
	SELECT comment_id, user_id FROM comment_likes
	WHERE comment_id IN (`+strings.Join(placeholders, ", ")+`)
	ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, unavailable("query comment likes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var commentID, userID string
		if err := rows.Scan(&commentID, &userID); err != nil {
			return nil, unavailable("scan comment like", err)
		}
		likers[commentID] = append(likers[commentID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate comment likes", err)
	}
	return likers, nil
}

// AddNotification stores a new notification
func (d *DB) AddNotification(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
	INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, string(data), n.Read, toUnix(n.CreatedAt),
	)
	if err != nil {
		return unavailable("insert notification", err)
	}
	return nil
}

// ListNotifications returns userID's notifications, newest first
func (d *DB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT id, user_id, type, title, message, data, is_read, created_at
	FROM notifications WHERE user_id = ?
	ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, unavailable("list notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n         models.Notification
			data      string
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &createdAt); err != nil {
			return nil, unavailable("scan notification", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification %s data: %w", n.ID, err)
		}
		n.CreatedAt = fromUnix(createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate notifications", err)
	}
	return out, nil
}

// MarkNotificationRead marks one of userID's notifications as read
func (d *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := d.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return unavailable("mark notification read", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of userID as read
func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := d.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, unavailable("mark notifications read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("mark notifications read", err)
	}
	return int(n), nil
}
