package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"midnightmedia/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by point lookups when no row matches. Callers that
// can handle absence should branch on it with errors.Is; any other error is a
// genuine storage failure.
var ErrNotFound = errors.New("not found")

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for better performance
	insertMediaStmt      *sql.Stmt
	findMediaByIDStmt    *sql.Stmt
	findPlaylistByIDStmt *sql.Stmt
	mediaExistsStmt      *sql.Stmt
	removeMediaStmt      *sql.Stmt
	mediaCountStmt       *sql.Stmt
	appendEntryStmt      *sql.Stmt
}

// New opens (or creates) a SQLite database at the provided path and ensures
// all required tables exist. It also applies lightweight performance-oriented
// pragmas (WAL, foreign keys). Caller should Close() it when finished.
func New(dbPath string) (*Database, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;", // the schema relies on ON DELETE CASCADE
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables if they do not already exist. This is
// idempotent and safe to call multiple times; the schema matches existing
// midnightmedia.db files so older data files keep working.
func (db *Database) createTables() error {
	mediaTable := `
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		author TEXT,
		album TEXT
	);`

	playlistTable := `
	CREATE TABLE IF NOT EXISTS playlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);`

	playlistMediaTable := `
	CREATE TABLE IF NOT EXISTS playlist_media (
		playlist_id INTEGER NOT NULL,
		media_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		probability REAL DEFAULT 1,
		PRIMARY KEY (playlist_id, media_id),
		FOREIGN KEY (playlist_id) REFERENCES playlist(id) ON DELETE CASCADE,
		FOREIGN KEY (media_id) REFERENCES media(id) ON DELETE CASCADE
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_media_path ON media(path);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_media_position ON playlist_media(playlist_id, position);",
	}

	tables := []string{mediaTable, playlistTable, playlistMediaTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.insertMediaStmt, err = db.conn.Prepare(`
		INSERT INTO media (path, name, format, author, album)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert media statement: %w", err)
	}

	db.findMediaByIDStmt, err = db.conn.Prepare(`
		SELECT id, path, name, format, author, album
		FROM media WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare find media statement: %w", err)
	}

	db.findPlaylistByIDStmt, err = db.conn.Prepare(`
		SELECT id, name FROM playlist WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare find playlist statement: %w", err)
	}

	db.mediaExistsStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM media WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare media exists statement: %w", err)
	}

	db.removeMediaStmt, err = db.conn.Prepare(`
		DELETE FROM media WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove media statement: %w", err)
	}

	db.mediaCountStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM playlist_media WHERE playlist_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare media count statement: %w", err)
	}

	// Position is computed inside the insert so append stays a single
	// atomic statement even with a second writer.
	db.appendEntryStmt, err = db.conn.Prepare(`
		INSERT INTO playlist_media (playlist_id, media_id, position)
		SELECT ?, ?, COUNT(*) FROM playlist_media WHERE playlist_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare append entry statement: %w", err)
	}

	return nil
}

// InsertMedia inserts a new media row and returns the generated ID.
func (db *Database) InsertMedia(m models.Media) (int, error) {
	result, err := db.insertMediaStmt.Exec(m.Path, m.Name, m.Format, m.Author, m.Album)
	if err != nil {
		db.logger.WithError(err).WithField("path", m.Path).Error("Failed to insert media")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		db.logger.WithError(err).Error("Failed to get last insert ID")
		return 0, err
	}

	return int(id), nil
}

// GetAllMedia returns the full media table in storage order.
func (db *Database) GetAllMedia() ([]models.Media, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, name, format, author, album FROM media`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMediaRows(rows)
}

// GetMediaInPlaylist returns the media referenced by a playlist's entries,
// ordered by stored position. A single join replaces the per-entry lookup the
// previous implementation did.
func (db *Database) GetMediaInPlaylist(playlistID int) ([]models.Media, error) {
	rows, err := db.conn.Query(`
		SELECT m.id, m.path, m.name, m.format, m.author, m.album
		FROM media m
		JOIN playlist_media pm ON m.id = pm.media_id
		WHERE pm.playlist_id = ?
		ORDER BY pm.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMediaRows(rows)
}

// FindMediaByID returns a single media row. Absence is reported as
// ErrNotFound, not treated as a storage failure.
func (db *Database) FindMediaByID(id int) (*models.Media, error) {
	var m models.Media
	var author, album sql.NullString

	err := db.findMediaByIDStmt.QueryRow(id).Scan(
		&m.ID, &m.Path, &m.Name, &m.Format, &author, &album)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		db.logger.WithError(err).WithField("media_id", id).Error("Failed to find media by ID")
		return nil, err
	}

	m.Author = author.String
	m.Album = album.String
	return &m, nil
}

// FindPlaylistByID returns a single playlist row, ErrNotFound when absent.
func (db *Database) FindPlaylistByID(id int) (*models.Playlist, error) {
	var p models.Playlist
	err := db.findPlaylistByIDStmt.QueryRow(id).Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
		}
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to find playlist by ID")
		return nil, err
	}
	return &p, nil
}

// CreatePlaylist inserts a new playlist and returns its ID.
func (db *Database) CreatePlaylist(name string) (int, error) {
	result, err := db.conn.Exec(`INSERT INTO playlist (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllPlaylists returns all playlists in storage order along with derived
// media counts.
func (db *Database) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.name, COALESCE(COUNT(pm.media_id), 0) as media_count
		FROM playlist p
		LEFT JOIN playlist_media pm ON p.id = pm.playlist_id
		GROUP BY p.id, p.name
		ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.MediaCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// GetMediaCount returns the number of entries in a playlist.
func (db *Database) GetMediaCount(playlistID int) (int, error) {
	var count int
	err := db.mediaCountStmt.QueryRow(playlistID).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", playlistID).Error("Failed to count playlist media")
		return 0, err
	}
	return count, nil
}

// AppendToPlaylist appends a media item to the end of a playlist. The next
// position equals the current entry count, computed inside the insert itself.
func (db *Database) AppendToPlaylist(playlistID, mediaID int) error {
	_, err := db.appendEntryStmt.Exec(playlistID, mediaID, playlistID)
	if err != nil {
		db.logger.WithError(err).WithFields(logrus.Fields{
			"playlist_id": playlistID,
			"media_id":    mediaID,
		}).Error("Failed to append media to playlist")
	}
	return err
}

// AddToPlaylist inserts a playlist entry at a caller-supplied position.
func (db *Database) AddToPlaylist(playlistID, mediaID, position int) error {
	_, err := db.conn.Exec(`
		INSERT INTO playlist_media (playlist_id, media_id, position)
		VALUES (?, ?, ?)`,
		playlistID, mediaID, position)
	return err
}

// RemoveFromPlaylist removes a specific media item from the given playlist.
// Positions of the remaining entries are not renumbered.
func (db *Database) RemoveFromPlaylist(playlistID, mediaID int) error {
	_, err := db.conn.Exec(`
		DELETE FROM playlist_media
		WHERE playlist_id = ? AND media_id = ?`,
		playlistID, mediaID)
	return err
}

// DeletePlaylist deletes the playlist; its entries go with it via cascade.
func (db *Database) DeletePlaylist(playlistID int) error {
	_, err := db.conn.Exec("DELETE FROM playlist WHERE id = ?", playlistID)
	return err
}

// RemoveMediaByPath deletes a media row identified by its file path, along
// with any playlist entries referencing it.
func (db *Database) RemoveMediaByPath(path string) error {
	_, err := db.removeMediaStmt.Exec(path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to remove media by path")
	}
	return err
}

// MediaExists returns true if a media row exists with the given file path.
func (db *Database) MediaExists(path string) (bool, error) {
	var count int
	err := db.mediaExistsStmt.QueryRow(path).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to check if media exists")
		return false, err
	}
	return count > 0, nil
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.insertMediaStmt,
		db.findMediaByIDStmt,
		db.findPlaylistByIDStmt,
		db.mediaExistsStmt,
		db.removeMediaStmt,
		db.mediaCountStmt,
		db.appendEntryStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// scanMediaRows scans standard media result sets into a slice of
// models.Media. Callers must have already deferred rows.Close().
func scanMediaRows(rows *sql.Rows) ([]models.Media, error) {
	var media []models.Media
	for rows.Next() {
		var m models.Media
		var author, album sql.NullString
		if err := rows.Scan(&m.ID, &m.Path, &m.Name, &m.Format, &author, &album); err != nil {
			return nil, err
		}
		m.Author = author.String
		m.Album = album.String
		media = append(media, m)
	}
	return media, rows.Err()
}
