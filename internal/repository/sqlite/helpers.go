package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dashv/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToInt safely converts sql.NullInt64 to int
func nullToInt(ni sql.NullInt64) int {
	if ni.Valid {
		return int(ni.Int64)
	}
	return 0
}

// nullToBool converts sql.NullInt64 to bool (0 = false, non-zero = true)
func nullToBool(ni sql.NullInt64) bool {
	return ni.Valid && ni.Int64 != 0
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt stores booleans the way SQLite expects them
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Time Helpers
// ============================================================================
//
// Times are stored as fixed-width RFC 3339 text in UTC so they sort
// lexically and read back identically whatever driver time handling is in
// effect.

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", ns.String, err)
	}
	return t, nil
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a value to a nullable JSON string
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Service Row Scanner
// ============================================================================
//
// Column order must match between serviceColumns, scanArgs() and
// serviceInsertArgs().

// serviceRow holds all columns from a services query for scanning
type serviceRow struct {
	ID            string
	Name          string
	URL           sql.NullString
	Icon          sql.NullString
	IconURL       sql.NullString
	Description   sql.NullString
	ContainerName sql.NullString
	ContainerType sql.NullString
	ContainerID   int64
	Node          sql.NullString
	Status        sql.NullString
	Port          int64
	IP            sql.NullString
	Source        sql.NullString
	LastUpdated   sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *serviceRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,            // 1
		&r.Name,          // 2
		&r.URL,           // 3
		&r.Icon,          // 4
		&r.IconURL,       // 5
		&r.Description,   // 6
		&r.ContainerName, // 7
		&r.ContainerType, // 8
		&r.ContainerID,   // 9
		&r.Node,          // 10
		&r.Status,        // 11
		&r.Port,          // 12
		&r.IP,            // 13
		&r.Source,        // 14
		&r.LastUpdated,   // 15
	}
}

// toDomain converts the scanned row to a domain.Service
func (r *serviceRow) toDomain() (domain.Service, error) {
	updated, err := parseTime(r.LastUpdated)
	if err != nil {
		return domain.Service{}, err
	}
	s := domain.Service{
		ID:            r.ID,
		Name:          r.Name,
		URL:           nullToString(r.URL),
		Icon:          nullToString(r.Icon),
		IconURL:       nullToString(r.IconURL),
		Description:   nullToString(r.Description),
		ContainerName: nullToString(r.ContainerName),
		ContainerKind: domain.WorkloadKind(nullToString(r.ContainerType)),
		ContainerID:   int(r.ContainerID),
		Node:          nullToString(r.Node),
		Status:        nullToString(r.Status),
		Port:          int(r.Port),
		IP:            nullToString(r.IP),
		Origin:        domain.Origin(nullToString(r.Source)),
		LastUpdated:   updated,
	}
	if s.Origin == "" {
		s.Origin = domain.OriginDiscovered
	}
	return s, nil
}

// serviceColumns is the SELECT column list for service queries
const serviceColumns = `id, name, url, icon, icon_url, description, container_name,
	container_type, container_id, node, status, port, ip, source, last_updated`

// serviceInsertArgs prepares arguments for the services upsert, in
// serviceColumns order
func serviceInsertArgs(s domain.Service) []interface{} {
	return []interface{}{
		s.ID,
		s.Name,
		stringToNull(s.URL),
		stringToNull(s.Icon),
		stringToNull(s.IconURL),
		stringToNull(s.Description),
		stringToNull(s.ContainerName),
		stringToNull(string(s.ContainerKind)),
		s.ContainerID,
		stringToNull(s.Node),
		stringToNull(s.Status),
		s.Port,
		stringToNull(s.IP),
		string(s.Origin),
		formatTime(s.LastUpdated),
	}
}

// ============================================================================
// Override Row Scanner
// ============================================================================

// overrideRow holds all columns from a service_overrides query
type overrideRow struct {
	ServiceID string
	Hidden    sql.NullInt64
	Label     sql.NullString
	IconURL   sql.NullString
	Name      sql.NullString
	Port      sql.NullInt64
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *overrideRow) scanArgs() []interface{} {
	return []interface{}{&r.ServiceID, &r.Hidden, &r.Label, &r.IconURL, &r.Name, &r.Port}
}

func (r *overrideRow) toDomain() domain.Override {
	return domain.Override{
		ServiceID: r.ServiceID,
		Hidden:    nullToBool(r.Hidden),
		Label:     nullToString(r.Label),
		IconURL:   nullToString(r.IconURL),
		Name:      nullToString(r.Name),
		Port:      nullToInt(r.Port),
	}
}

const overrideColumns = `service_id, hidden, label, icon_url, name, port`
