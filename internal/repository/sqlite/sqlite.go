package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"dashv/internal/domain"
	"dashv/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New opens (creating if needed) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS services (
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT,
		icon TEXT,
		icon_url TEXT,
		description TEXT,
		container_name TEXT,
		container_type TEXT,
		container_id INTEGER NOT NULL,
		node TEXT,
		status TEXT,
		port INTEGER NOT NULL,
		ip TEXT,
		source TEXT NOT NULL DEFAULT 'discovered',
		last_updated TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		UNIQUE (container_id, port)
	);

	CREATE TABLE IF NOT EXISTS service_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		changed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proxmox_connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		user TEXT,
		token TEXT NOT NULL,
		token_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS manual_services (
		id TEXT PRIMARY KEY,
		data JSON NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS service_overrides (
		service_id TEXT PRIMARY KEY,
		hidden INTEGER NOT NULL DEFAULT 0,
		label TEXT,
		icon_url TEXT,
		name TEXT,
		port INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_services_id ON services(id);
	CREATE INDEX IF NOT EXISTS idx_service_changes_service ON service_changes(service_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// UpsertService inserts or replaces the service stored for its
// (container_id, port) pair and returns the stored record
func (r *Repository) UpsertService(ctx context.Context, s domain.Service) (domain.Service, error) {
	if s.Origin == "" {
		s.Origin = domain.OriginDiscovered
	}
	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (container_id, port) DO UPDATE SET
			id = excluded.id,
			name = excluded.name,
			url = excluded.url,
			icon = excluded.icon,
			icon_url = excluded.icon_url,
			description = excluded.description,
			container_name = excluded.container_name,
			container_type = excluded.container_type,
			node = excluded.node,
			status = excluded.status,
			ip = excluded.ip,
			source = excluded.source,
			last_updated = excluded.last_updated
	`, serviceInsertArgs(s)...)
	if err != nil {
		return domain.Service{}, fmt.Errorf("failed to upsert service %s: %w", s.ID, err)
	}

	var row serviceRow
	err = r.db.QueryRowContext(ctx, `
		SELECT `+serviceColumns+` FROM services WHERE container_id = ? AND port = ?
	`, s.ContainerID, s.Port).Scan(row.scanArgs()...)
	if err != nil {
		return domain.Service{}, fmt.Errorf("failed to read back service %s: %w", s.ID, err)
	}
	return row.toDomain()
}

// ListServices returns every stored discovered service ordered by id
func (r *Repository) ListServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var row serviceRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		s, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", row.ID, err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// LogServiceChange appends an entry to the change log
func (r *Repository) LogServiceChange(ctx context.Context, serviceID string, kind domain.EventKind, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_changes (service_id, change_type, changed_at) VALUES (?, ?, ?)
	`, serviceID, string(kind), formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to log change for %s: %w", serviceID, err)
	}
	return nil
}

// ServiceChange is one change log entry
type ServiceChange struct {
	ServiceID string
	Kind      domain.EventKind
	At        time.Time
}

// ListServiceChanges returns the change log of one service, oldest first
func (r *Repository) ListServiceChanges(ctx context.Context, serviceID string) ([]ServiceChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT service_id, change_type, changed_at FROM service_changes
		WHERE service_id = ? ORDER BY id
	`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []ServiceChange
	for rows.Next() {
		var (
			c    ServiceChange
			kind string
			at   sql.NullString
		)
		if err := rows.Scan(&c.ServiceID, &kind, &at); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.Kind = domain.EventKind(kind)
		if c.At, err = parseTime(at); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// SaveConnection stores a platform connection. The newest one wins.
func (r *Repository) SaveConnection(ctx context.Context, conn domain.Connection) error {
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO proxmox_connections (host, port, user, token, token_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conn.Host, conn.Port, stringToNull(conn.User), conn.Token, stringToNull(conn.TokenID), formatTime(conn.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// GetConnection returns the most recently saved connection, or
// repository.ErrNotFound
func (r *Repository) GetConnection(ctx context.Context) (*domain.Connection, error) {
	var (
		conn          domain.Connection
		user, tokenID sql.NullString
		createdAt     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT host, port, user, token, token_id, created_at
		FROM proxmox_connections ORDER BY id DESC LIMIT 1
	`).Scan(&conn.Host, &conn.Port, &user, &conn.Token, &tokenID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	conn.User = nullToString(user)
	conn.TokenID = nullToString(tokenID)
	if conn.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DeleteConnections forgets every saved connection
func (r *Repository) DeleteConnections(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM proxmox_connections`); err != nil {
		return fmt.Errorf("failed to delete connections: %w", err)
	}
	return nil
}

// SaveManualService creates or replaces a manual service
func (r *Repository) SaveManualService(ctx context.Context, s domain.Service) error {
	data, err := marshalToNull(s)
	if err != nil {
		return fmt.Errorf("marshal manual service: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO manual_services (id, data, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, s.ID, data, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save manual service %s: %w", s.ID, err)
	}
	return nil
}

// DeleteManualService removes a manual service and its overrides
func (r *Repository) DeleteManualService(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM manual_services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete manual service %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM service_overrides WHERE service_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete overrides of %s: %w", id, err)
	}
	return tx.Commit()
}

// ListManualServices returns manual services in creation order
func (r *Repository) ListManualServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM manual_services ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var (
			id   string
			data sql.NullString
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan manual service: %w", err)
		}
		var s domain.Service
		if err := unmarshalJSONField(data, &s); err != nil {
			return nil, fmt.Errorf("unmarshal manual service %s: %w", id, err)
		}
		s.ID = id
		s.Origin = domain.OriginManual
		services = append(services, s)
	}
	return services, rows.Err()
}

// SaveOverride stores the overrides of one service. An empty override
// deletes the row.
func (r *Repository) SaveOverride(ctx context.Context, o domain.Override) error {
	if o.Empty() {
		_, err := r.db.ExecContext(ctx, `DELETE FROM service_overrides WHERE service_id = ?`, o.ServiceID)
		if err != nil {
			return fmt.Errorf("failed to clear override %s: %w", o.ServiceID, err)
		}
		return nil
	}

	port := sql.NullInt64{Int64: int64(o.Port), Valid: o.Port != 0}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_overrides (`+overrideColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (service_id) DO UPDATE SET
			hidden = excluded.hidden,
			label = excluded.label,
			icon_url = excluded.icon_url,
			name = excluded.name,
			port = excluded.port
	`, o.ServiceID, boolToInt(o.Hidden), stringToNull(o.Label), stringToNull(o.IconURL), stringToNull(o.Name), port)
	if err != nil {
		return fmt.Errorf("failed to save override %s: %w", o.ServiceID, err)
	}
	return nil
}

// ListOverrides returns every stored override ordered by service id
func (r *Repository) ListOverrides(ctx context.Context) ([]domain.Override, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+overrideColumns+` FROM service_overrides ORDER BY service_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []domain.Override
	for rows.Next() {
		var row overrideRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides = append(overrides, row.toDomain())
	}
	return overrides, rows.Err()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
