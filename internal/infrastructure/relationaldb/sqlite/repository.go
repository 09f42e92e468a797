// Package sqlite provides a SQLite implementation of the RelationalDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Repository implements ports.RelationalDB using SQLite. Relationship
// lists and rule condition/action lists are stored as JSON columns;
// the detectors consume them in memory, so nothing joins on them.
// Embeddings live in the vector index only, never here.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Elements (plot blocks, conditions, tags)
	CREATE TABLE IF NOT EXISTS elements (
		id TEXT PRIMARY KEY,
		fandom_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		category TEXT,
		description TEXT,
		requires TEXT,
		enhances TEXT,
		conflicts_with TEXT,
		excludes_categories TEXT,
		max_instances INTEGER,
		parent_id TEXT,
		children TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_elements_fandom ON elements(fandom_id);
	CREATE INDEX IF NOT EXISTS idx_elements_kind ON elements(fandom_id, kind);
	CREATE INDEX IF NOT EXISTS idx_elements_normalized ON elements(fandom_id, normalized_name);

	-- Validation rules (conditions and actions as JSON)
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		fandom_id TEXT NOT NULL,
		name TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		depends_on TEXT,
		conditions TEXT NOT NULL,
		actions TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_rules_fandom ON rules(fandom_id);
	CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(fandom_id, is_active);

	-- Rule version history (full rule snapshot per change)
	CREATE TABLE IF NOT EXISTS rule_versions (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		change_type TEXT NOT NULL,
		data TEXT NOT NULL,
		reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(rule_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_rule_versions_rule ON rule_versions(rule_id);
	CREATE INDEX IF NOT EXISTS idx_rule_versions_type ON rule_versions(change_type);

	-- Categories (names referenced by excludes_categories)
	CREATE TABLE IF NOT EXISTS categories (
		name TEXT NOT NULL,
		fandom_id TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(fandom_id, name)
	);

	-- Rule templates (embedded rule with placeholders, as JSON)
	CREATE TABLE IF NOT EXISTS rule_templates (
		id TEXT PRIMARY KEY,
		fandom_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		placeholders TEXT NOT NULL,
		rule TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_templates_fandom ON rule_templates(fandom_id);

	-- Audit log (tracks all actions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		element_id TEXT,
		rule_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_element ON audit_log(element_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_rule ON audit_log(rule_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// marshalList encodes a string slice as JSON, mapping empty to NULL.
func marshalList(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalList decodes a JSON string column back into a slice.
func unmarshalList(data sql.NullString) ([]string, error) {
	if !data.Valid || data.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// SaveElement saves or updates an element.
func (r *Repository) SaveElement(ctx context.Context, el *entities.Element) error {
	requires, err := marshalList(el.Requires)
	if err != nil {
		return fmt.Errorf("marshaling requires: %w", err)
	}
	enhances, err := marshalList(el.Enhances)
	if err != nil {
		return fmt.Errorf("marshaling enhances: %w", err)
	}
	conflicts, err := marshalList(el.ConflictsWith)
	if err != nil {
		return fmt.Errorf("marshaling conflicts_with: %w", err)
	}
	excludes, err := marshalList(el.ExcludesCategories)
	if err != nil {
		return fmt.Errorf("marshaling excludes_categories: %w", err)
	}
	children, err := marshalList(el.Children)
	if err != nil {
		return fmt.Errorf("marshaling children: %w", err)
	}

	var maxInstances sql.NullInt64
	if el.MaxInstances != nil {
		maxInstances = sql.NullInt64{Int64: int64(*el.MaxInstances), Valid: true}
	}
	var parentID sql.NullString
	if el.ParentID != "" {
		parentID = sql.NullString{String: el.ParentID, Valid: true}
	}

	query := `
		INSERT INTO elements (id, fandom_id, kind, name, normalized_name, category, description,
			requires, enhances, conflicts_with, excludes_categories, max_instances, parent_id, children,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			category = excluded.category,
			description = excluded.description,
			requires = excluded.requires,
			enhances = excluded.enhances,
			conflicts_with = excluded.conflicts_with,
			excludes_categories = excluded.excludes_categories,
			max_instances = excluded.max_instances,
			parent_id = excluded.parent_id,
			children = excluded.children,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		el.ID,
		el.FandomID,
		string(el.Kind),
		el.Name,
		entities.NormalizeName(el.Name),
		el.Category,
		el.Description,
		requires,
		enhances,
		conflicts,
		excludes,
		maxInstances,
		parentID,
		children,
		el.CreatedAt,
		el.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving element: %w", err)
	}
	return nil
}

const elementColumns = `id, fandom_id, kind, name, category, description,
	requires, enhances, conflicts_with, excludes_categories, max_instances, parent_id, children,
	created_at, updated_at`

// scanElement scans one element row from either a Row or Rows.
func scanElement(scan func(...any) error) (*entities.Element, error) {
	var el entities.Element
	var kind string
	var category, description sql.NullString
	var requires, enhances, conflicts, excludes, children sql.NullString
	var maxInstances sql.NullInt64
	var parentID sql.NullString

	err := scan(
		&el.ID,
		&el.FandomID,
		&kind,
		&el.Name,
		&category,
		&description,
		&requires,
		&enhances,
		&conflicts,
		&excludes,
		&maxInstances,
		&parentID,
		&children,
		&el.CreatedAt,
		&el.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	el.Kind = entities.ElementKind(kind)
	el.Category = category.String
	el.Description = description.String
	el.ParentID = parentID.String
	if maxInstances.Valid {
		v := int(maxInstances.Int64)
		el.MaxInstances = &v
	}

	for _, col := range []struct {
		data sql.NullString
		dest *[]string
	}{
		{requires, &el.Requires},
		{enhances, &el.Enhances},
		{conflicts, &el.ConflictsWith},
		{excludes, &el.ExcludesCategories},
		{children, &el.Children},
	} {
		values, err := unmarshalList(col.data)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling element list: %w", err)
		}
		*col.dest = values
	}

	return &el, nil
}

// FindElementByID finds an element by its ID.
func (r *Repository) FindElementByID(ctx context.Context, elementID string) (*entities.Element, error) {
	query := `SELECT ` + elementColumns + ` FROM elements WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, elementID)

	el, err := scanElement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning element: %w", err)
	}
	return el, nil
}

// FindElementByName finds an element by its normalized name (case-insensitive).
func (r *Repository) FindElementByName(ctx context.Context, fandomID, name string) (*entities.Element, error) {
	query := `SELECT ` + elementColumns + ` FROM elements WHERE fandom_id = ? AND normalized_name = ?`
	row := r.db.QueryRowContext(ctx, query, fandomID, entities.NormalizeName(name))

	el, err := scanElement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning element: %w", err)
	}
	return el, nil
}

// ListElements lists elements for a fandom with pagination. An empty
// kind matches all kinds; a non-positive limit means no limit.
func (r *Repository) ListElements(ctx context.Context, fandomID string, kind entities.ElementKind, limit, offset int) ([]*entities.Element, error) {
	query := `SELECT ` + elementColumns + ` FROM elements WHERE fandom_id = ?`
	args := []any{fandomID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	return r.queryElements(ctx, query, args...)
}

// SearchElements searches elements by name pattern.
func (r *Repository) SearchElements(ctx context.Context, fandomID, query string, limit int) ([]*entities.Element, error) {
	pattern := "%" + entities.NormalizeName(query) + "%"
	sqlQuery := `SELECT ` + elementColumns + ` FROM elements
		WHERE fandom_id = ? AND normalized_name LIKE ?
		ORDER BY name ASC
		LIMIT ?`
	return r.queryElements(ctx, sqlQuery, fandomID, pattern, limit)
}

// queryElements is a helper to execute element queries.
func (r *Repository) queryElements(ctx context.Context, query string, args ...any) ([]*entities.Element, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying elements: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.Element, 0, 16)
	for rows.Next() {
		el, err := scanElement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning element: %w", err)
		}
		result = append(result, el)
	}
	return result, rows.Err()
}

// DeleteElement deletes an element by ID.
func (r *Repository) DeleteElement(ctx context.Context, elementID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM elements WHERE id = ?`, elementID)
	if err != nil {
		return fmt.Errorf("deleting element: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("element not found: %s", elementID)
	}
	return nil
}

// CountElements returns the number of elements for a fandom.
func (r *Repository) CountElements(ctx context.Context, fandomID string, kind entities.ElementKind) (int, error) {
	query := `SELECT COUNT(*) FROM elements WHERE fandom_id = ?`
	args := []any{fandomID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting elements: %w", err)
	}
	return count, nil
}

// SaveRule saves or updates a validation rule.
func (r *Repository) SaveRule(ctx context.Context, rule *entities.ValidationRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshaling conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshaling actions: %w", err)
	}
	dependsOn, err := marshalList(rule.DependsOn)
	if err != nil {
		return fmt.Errorf("marshaling depends_on: %w", err)
	}

	query := `
		INSERT INTO rules (id, fandom_id, name, priority, is_active, depends_on, conditions, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			priority = excluded.priority,
			is_active = excluded.is_active,
			depends_on = excluded.depends_on,
			conditions = excluded.conditions,
			actions = excluded.actions,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.FandomID,
		rule.Name,
		rule.Priority,
		rule.IsActive,
		dependsOn,
		string(conditions),
		string(actions),
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	return nil
}

const ruleColumns = `id, fandom_id, name, priority, is_active, depends_on, conditions, actions, created_at, updated_at`

// scanRule scans one rule row.
func scanRule(scan func(...any) error) (*entities.ValidationRule, error) {
	var rule entities.ValidationRule
	var dependsOn sql.NullString
	var conditions, actions string

	err := scan(
		&rule.ID,
		&rule.FandomID,
		&rule.Name,
		&rule.Priority,
		&rule.IsActive,
		&dependsOn,
		&conditions,
		&actions,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deps, err := unmarshalList(dependsOn)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling depends_on: %w", err)
	}
	rule.DependsOn = deps

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshaling conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
		return nil, fmt.Errorf("unmarshaling actions: %w", err)
	}
	return &rule, nil
}

// FindRuleByID finds a rule by its ID.
func (r *Repository) FindRuleByID(ctx context.Context, ruleID string) (*entities.ValidationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, ruleID)

	rule, err := scanRule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning rule: %w", err)
	}
	return rule, nil
}

// ListRules lists rules for a fandom, optionally active only.
func (r *Repository) ListRules(ctx context.Context, fandomID string, activeOnly bool) ([]entities.ValidationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE fandom_id = ?`
	args := []any{fandomID}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	rules := make([]entities.ValidationRule, 0, 16)
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// DeleteRule deletes a rule by ID.
func (r *Repository) DeleteRule(ctx context.Context, ruleID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", ruleID)
	}
	return nil
}

// CountRules returns the number of rules for a fandom.
func (r *Repository) CountRules(ctx context.Context, fandomID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE fandom_id = ?`, fandomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rules: %w", err)
	}
	return count, nil
}

// SaveRuleVersion saves a new rule version snapshot.
func (r *Repository) SaveRuleVersion(ctx context.Context, version *entities.RuleVersion) error {
	data, err := json.Marshal(version.Data)
	if err != nil {
		return fmt.Errorf("marshaling rule data: %w", err)
	}

	query := `
		INSERT INTO rule_versions (id, rule_id, version, change_type, data, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.RuleID,
		version.Version,
		string(version.ChangeType),
		string(data),
		version.Reason,
		version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving rule version: %w", err)
	}
	return nil
}

// scanRuleVersion scans one rule version row.
func scanRuleVersion(scan func(...any) error) (*entities.RuleVersion, error) {
	var v entities.RuleVersion
	var changeType, data string
	var reason sql.NullString

	err := scan(
		&v.ID,
		&v.RuleID,
		&v.Version,
		&changeType,
		&data,
		&reason,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.ChangeType = entities.RuleChangeType(changeType)
	v.Reason = reason.String

	if err := json.Unmarshal([]byte(data), &v.Data); err != nil {
		return nil, fmt.Errorf("unmarshaling rule data: %w", err)
	}
	return &v, nil
}

// FindVersionsByRule finds all versions of a rule, ordered by version descending.
func (r *Repository) FindVersionsByRule(ctx context.Context, ruleID string) ([]entities.RuleVersion, error) {
	query := `
		SELECT id, rule_id, version, change_type, data, reason, created_at
		FROM rule_versions
		WHERE rule_id = ?
		ORDER BY version DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("querying rule versions: %w", err)
	}
	defer rows.Close()

	versions := make([]entities.RuleVersion, 0, 16)
	for rows.Next() {
		v, err := scanRuleVersion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning rule version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// FindLatestRuleVersion finds the most recent version of a rule.
func (r *Repository) FindLatestRuleVersion(ctx context.Context, ruleID string) (*entities.RuleVersion, error) {
	query := `
		SELECT id, rule_id, version, change_type, data, reason, created_at
		FROM rule_versions
		WHERE rule_id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, ruleID)

	v, err := scanRuleVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning rule version: %w", err)
	}
	return v, nil
}

// CountRuleVersions counts how many versions a rule has.
func (r *Repository) CountRuleVersions(ctx context.Context, ruleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rule_versions WHERE rule_id = ?`, ruleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rule versions: %w", err)
	}
	return count, nil
}

// SaveCategory saves or updates a category.
func (r *Repository) SaveCategory(ctx context.Context, category *entities.Category) error {
	query := `
		INSERT INTO categories (name, fandom_id, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fandom_id, name) DO UPDATE SET
			description = excluded.description
	`
	_, err := r.db.ExecContext(ctx, query,
		category.Name,
		category.FandomID,
		category.Description,
		category.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// FindCategory finds a category by name within a fandom.
func (r *Repository) FindCategory(ctx context.Context, fandomID, name string) (*entities.Category, error) {
	query := `SELECT name, fandom_id, description, created_at FROM categories WHERE fandom_id = ? AND name = ?`
	row := r.db.QueryRowContext(ctx, query, fandomID, name)

	var c entities.Category
	var description sql.NullString
	err := row.Scan(&c.Name, &c.FandomID, &description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning category: %w", err)
	}
	c.Description = description.String
	return &c, nil
}

// ListCategories lists all categories for a fandom.
func (r *Repository) ListCategories(ctx context.Context, fandomID string) ([]entities.Category, error) {
	query := `SELECT name, fandom_id, description, created_at FROM categories WHERE fandom_id = ? ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, fandomID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]entities.Category, 0, 16)
	for rows.Next() {
		var c entities.Category
		var description sql.NullString
		if err := rows.Scan(&c.Name, &c.FandomID, &description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Description = description.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory deletes a category by name within a fandom.
func (r *Repository) DeleteCategory(ctx context.Context, fandomID, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE fandom_id = ? AND name = ?`, fandomID, name)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category not found: %s", name)
	}
	return nil
}

// SaveTemplate saves or updates a rule template.
func (r *Repository) SaveTemplate(ctx context.Context, tpl *entities.RuleTemplate) error {
	placeholders, err := json.Marshal(tpl.Placeholders)
	if err != nil {
		return fmt.Errorf("marshaling placeholders: %w", err)
	}
	rule, err := json.Marshal(tpl.Rule)
	if err != nil {
		return fmt.Errorf("marshaling template rule: %w", err)
	}

	query := `
		INSERT INTO rule_templates (id, fandom_id, name, description, placeholders, rule, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			placeholders = excluded.placeholders,
			rule = excluded.rule
	`
	_, err = r.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.FandomID,
		tpl.Name,
		tpl.Description,
		string(placeholders),
		string(rule),
		tpl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

// scanTemplate scans one template row.
func scanTemplate(scan func(...any) error) (*entities.RuleTemplate, error) {
	var tpl entities.RuleTemplate
	var description sql.NullString
	var placeholders, rule string

	err := scan(
		&tpl.ID,
		&tpl.FandomID,
		&tpl.Name,
		&description,
		&placeholders,
		&rule,
		&tpl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.Description = description.String
	if err := json.Unmarshal([]byte(placeholders), &tpl.Placeholders); err != nil {
		return nil, fmt.Errorf("unmarshaling placeholders: %w", err)
	}
	if err := json.Unmarshal([]byte(rule), &tpl.Rule); err != nil {
		return nil, fmt.Errorf("unmarshaling template rule: %w", err)
	}
	return &tpl, nil
}

// FindTemplateByID finds a rule template by its ID.
func (r *Repository) FindTemplateByID(ctx context.Context, templateID string) (*entities.RuleTemplate, error) {
	query := `SELECT id, fandom_id, name, description, placeholders, rule, created_at FROM rule_templates WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, templateID)

	tpl, err := scanTemplate(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning template: %w", err)
	}
	return tpl, nil
}

// ListTemplates lists all rule templates for a fandom.
func (r *Repository) ListTemplates(ctx context.Context, fandomID string) ([]entities.RuleTemplate, error) {
	query := `SELECT id, fandom_id, name, description, placeholders, rule, created_at FROM rule_templates WHERE fandom_id = ? ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, fandomID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	templates := make([]entities.RuleTemplate, 0, 8)
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

// DeleteTemplate deletes a rule template by ID.
func (r *Repository) DeleteTemplate(ctx context.Context, templateID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rule_templates WHERE id = ?`, templateID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("template not found: %s", templateID)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action, elementID, ruleID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var elementIDPtr, ruleIDPtr sql.NullString
	if elementID != "" {
		elementIDPtr = sql.NullString{String: elementID, Valid: true}
	}
	if ruleID != "" {
		ruleIDPtr = sql.NullString{String: ruleID, Valid: true}
	}

	query := `INSERT INTO audit_log (action, element_id, rule_id, details) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, elementIDPtr, ruleIDPtr, detailsJSON)
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLogByElement finds audit log entries for a specific element.
func (r *Repository) FindAuditLogByElement(ctx context.Context, elementID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, element_id, rule_id, details, created_at
		FROM audit_log
		WHERE element_id = ?
		ORDER BY created_at DESC
	`
	return r.queryAuditLog(ctx, query, elementID)
}

// FindAuditLogByRule finds audit log entries for a specific rule.
func (r *Repository) FindAuditLogByRule(ctx context.Context, ruleID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, element_id, rule_id, details, created_at
		FROM audit_log
		WHERE rule_id = ?
		ORDER BY created_at DESC
	`
	return r.queryAuditLog(ctx, query, ruleID)
}

// FindAuditLogByAction finds audit log entries by action type.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, element_id, rule_id, details, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, action, limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	// Use limit parameter as capacity hint if available
	var entries []entities.AuditEntry
	if len(args) > 0 {
		if limit, ok := args[len(args)-1].(int); ok && limit > 0 {
			entries = make([]entities.AuditEntry, 0, limit)
		}
	}

	for rows.Next() {
		var entry entities.AuditEntry
		var elementID, ruleID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&elementID,
			&ruleID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.ElementID = elementID.String
		entry.RuleID = ruleID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
