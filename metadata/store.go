package metadata

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"photoindex/logging"
	"photoindex/types"

	_ "github.com/mattn/go-sqlite3"
)

// Base columns present in every record. EXIF-derived fields become
// additional TEXT columns added on demand, so the column set is the
// union of every field ever produced by the describe step.
var baseColumns = []string{
	"identity", "size_kb", "width", "height", "format", "mode", "extracted_at",
}

// Store is a tabular record store keyed by image identity, backed by
// SQLite. Single-writer: callers serialize mutation.
type Store struct {
	db      *sql.DB
	columns map[string]bool
}

// Open initializes the metadata store, creating the schema if needed.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS images (
		identity TEXT PRIMARY KEY,
		size_kb REAL,
		width INTEGER,
		height INTEGER,
		format TEXT,
		mode TEXT,
		extracted_at TEXT
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating images table: %v", err)
	}

	s := &Store{db: db, columns: make(map[string]bool)}
	if err := s.loadColumns(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadColumns() error {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info('images')")
	if err != nil {
		return fmt.Errorf("error reading table info: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		s.columns[name] = true
	}
	return rows.Err()
}

// sanitizeColumn makes an EXIF tag name safe to use as a quoted SQLite
// identifier. Tag names are kept as-is apart from stripping quotes so
// that predicate filters can address them by their original name.
func sanitizeColumn(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	return strings.TrimSpace(name)
}

func (s *Store) ensureColumn(name string) error {
	if s.columns[name] {
		return nil
	}
	query := fmt.Sprintf(`ALTER TABLE images ADD COLUMN "%s" TEXT;`, name)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("error adding column %s: %v", name, err)
	}
	logging.DebugLog("Added %q column to metadata schema", name)
	s.columns[name] = true
	return nil
}

// Upsert writes a record, superseding any previous record stored under
// the same identity. New EXIF fields extend the schema.
func (s *Store) Upsert(rec types.ImageRecord) error {
	type exifField struct {
		col string
		val string
	}
	fields := make([]exifField, 0, len(rec.Exif))
	for k, v := range rec.Exif {
		col := sanitizeColumn(k)
		if col == "" || isBaseColumn(col) {
			continue
		}
		fields = append(fields, exifField{col: col, val: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].col < fields[j].col })

	for _, f := range fields {
		if err := s.ensureColumn(f.col); err != nil {
			return err
		}
	}

	cols := append([]string{}, baseColumns...)
	args := []interface{}{
		rec.Identity, rec.SizeKB, rec.Width, rec.Height,
		rec.Format, rec.Mode, rec.ExtractedAt,
	}
	for _, f := range fields {
		cols = append(cols, f.col)
		args = append(args, f.val)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = fmt.Sprintf("%q", col)
		marks[i] = "?"
	}

	stmt, err := s.db.Prepare(fmt.Sprintf(
		"INSERT OR REPLACE INTO images (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", rec.Identity, err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(args...); err != nil {
		return fmt.Errorf("cannot store record for %s: %v", rec.Identity, err)
	}
	return nil
}

func isBaseColumn(name string) bool {
	for _, col := range baseColumns {
		if strings.EqualFold(name, col) {
			return true
		}
	}
	return false
}

// Get returns the full record stored for an identity.
func (s *Store) Get(identity string) (types.ImageRecord, bool, error) {
	rows, err := s.db.Query("SELECT * FROM images WHERE identity = ?", identity)
	if err != nil {
		return types.ImageRecord{}, false, fmt.Errorf("database error for %s: %v", identity, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return types.ImageRecord{}, false, rows.Err()
	}

	rec, err := scanRecord(rows)
	if err != nil {
		return types.ImageRecord{}, false, err
	}
	return rec, true, nil
}

// Identities returns every stored identity in insertion (rowid) order.
func (s *Store) Identities() ([]string, error) {
	rows, err := s.db.Query("SELECT identity FROM images ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n)
	return n, err
}

// Filter returns the identities whose records satisfy every supplied
// predicate (logical AND), in insertion order. Recognized keys:
// min_width and min_height compare numerically, format compares
// case-insensitively; any other key is exact string equality against
// the column of the same name, excluding records where the field is
// absent. An unknown field name matches nothing rather than erroring.
func (s *Store) Filter(filters map[string]interface{}) ([]string, error) {
	var clauses []string
	var args []interface{}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := filters[key]
		switch key {
		case "min_width":
			n, err := toInt(value)
			if err != nil {
				return nil, fmt.Errorf("invalid min_width value %v: %v", value, err)
			}
			clauses = append(clauses, "width >= ?")
			args = append(args, n)
		case "min_height":
			n, err := toInt(value)
			if err != nil {
				return nil, fmt.Errorf("invalid min_height value %v: %v", value, err)
			}
			clauses = append(clauses, "height >= ?")
			args = append(args, n)
		case "format":
			clauses = append(clauses, "UPPER(format) = UPPER(?)")
			args = append(args, fmt.Sprintf("%v", value))
		default:
			col := sanitizeColumn(key)
			if !s.columns[col] {
				// Field absent from every record: nothing can match.
				return nil, nil
			}
			clauses = append(clauses, fmt.Sprintf(`CAST("%s" AS TEXT) = ?`, col))
			args = append(args, fmt.Sprintf("%v", value))
		}
	}

	query := "SELECT identity FROM images"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter query failed: %v", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (types.ImageRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return types.ImageRecord{}, err
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return types.ImageRecord{}, err
	}

	rec := types.ImageRecord{Exif: make(map[string]string)}
	for i, col := range cols {
		switch col {
		case "identity":
			rec.Identity = asString(vals[i])
		case "size_kb":
			rec.SizeKB = asFloat(vals[i])
		case "width":
			rec.Width = int(asFloat(vals[i]))
		case "height":
			rec.Height = int(asFloat(vals[i]))
		case "format":
			rec.Format = asString(vals[i])
		case "mode":
			rec.Mode = asString(vals[i])
		case "extracted_at":
			rec.ExtractedAt = asString(vals[i])
		default:
			if s := asString(vals[i]); s != "" {
				rec.Exif[col] = s
			}
		}
	}
	return rec, nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	case []byte:
		f, _ := strconv.ParseFloat(string(t), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
