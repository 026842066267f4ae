package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"atatek/internal/tree/models"
	txcontext "atatek/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// MaxChainDepth bounds ancestor traversal so corrupted parent links cannot
// loop forever.
const MaxChainDepth = 256

const nodeColumns = `id, external_id, name, birth, death, bio, mini_icon, main_icon,
	parent_id, is_deleted, created_by, updated_by, created_at, updated_at`

// PostgresStore persists tree nodes in PostgreSQL.
// This store is pure I/O; visibility rules and sync policy live in the services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed node store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables and indexes the store relies on, including the
// unique index on external_id.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate tree schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM tree WHERE id = $1`
	node, err := scanNode(txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find node: %w", err)
	}
	return node, nil
}

func (s *PostgresStore) FindDetail(ctx context.Context, id int64) (*models.NodeDetail, error) {
	query := `
		SELECT t.id, t.name, t.mini_icon, t.main_icon, t.birth, t.death, t.bio, t.is_deleted,
		       cu.id, cu.first_name, cu.last_name,
		       uu.id, uu.first_name, uu.last_name
		FROM tree t
		LEFT JOIN users cu ON cu.id = t.created_by
		LEFT JOIN users uu ON uu.id = t.updated_by
		WHERE t.id = $1
	`
	var (
		d                  models.NodeDetail
		miniIcon, mainIcon sql.NullString
		bio                sql.NullString
		birth, death       sql.NullInt32
		cID, uID           sql.NullInt64
		cFirst, cLast      sql.NullString
		uFirst, uLast      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &miniIcon, &mainIcon, &birth, &death, &bio, &d.IsDeleted,
		&cID, &cFirst, &cLast,
		&uID, &uFirst, &uLast,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find node detail: %w", err)
	}
	d.MiniIcon = nullString(miniIcon)
	d.MainIcon = nullString(mainIcon)
	d.Bio = nullString(bio)
	d.Birth = nullInt(birth)
	d.Death = nullInt(death)
	d.CreatedBy = models.UserRef{ID: nullInt64(cID), FirstName: nullString(cFirst), LastName: nullString(cLast)}
	d.UpdatedBy = models.UserRef{ID: nullInt64(uID), FirstName: nullString(uFirst), LastName: nullString(uLast)}
	return &d, nil
}

// ListVisibleChildren returns the non-deleted direct children of parentID ordered by id.
func (s *PostgresStore) ListVisibleChildren(ctx context.Context, parentID int64) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM tree WHERE parent_id = $1 AND is_deleted = FALSE ORDER BY id`
	return s.queryNodes(ctx, "list children", query, parentID)
}

// ExistingExternalIDs returns which of ids are already present locally.
func (s *PostgresStore) ExistingExternalIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	found := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx,
		`SELECT external_id FROM tree WHERE external_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lookup external ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ext int64
		if err := rows.Scan(&ext); err != nil {
			return nil, fmt.Errorf("scan external id: %w", err)
		}
		found[ext] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup external ids: %w", err)
	}
	return found, nil
}

// InsertNodes writes nodes in a single transaction and returns the ones that
// were actually inserted. A node whose external_id was inserted concurrently
// is skipped by the unique index rather than failing the batch.
func (s *PostgresStore) InsertNodes(ctx context.Context, nodes []*models.Node) ([]*models.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	query := `
		INSERT INTO tree (external_id, name, birth, death, bio, mini_icon, main_icon,
		                  parent_id, is_deleted, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO NOTHING
		RETURNING id
	`
	var inserted []*models.Node
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFor(ctx, s.db)
		for _, n := range nodes {
			now := n.CreatedAt
			if now.IsZero() {
				now = time.Now()
			}
			var id int64
			err := exec.QueryRowContext(ctx, query,
				n.ExternalID, n.Name, n.BirthYear, n.DeathYear, n.Biography, n.MiniIcon, n.MainIcon,
				n.ParentID, n.IsDeleted, n.CreatedBy, n.UpdatedBy, now,
			).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert node %q: %w", n.Name, translate(err))
			}
			saved := *n
			saved.ID = id
			saved.CreatedAt, saved.UpdatedAt = now, now
			inserted = append(inserted, &saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// SetDeleted toggles the soft-delete flag and returns the updated node.
func (s *PostgresStore) SetDeleted(ctx context.Context, id int64, deleted bool, actorID int64, now time.Time) (*models.Node, error) {
	query := `
		UPDATE tree SET is_deleted = $2, updated_by = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + nodeColumns
	var actor *int64
	if actorID > 0 {
		actor = &actorID
	}
	node, err := scanNode(txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, id, deleted, actor, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("set node deleted: %w", err)
	}
	return node, nil
}

// SearchByName matches non-deleted nodes whose name contains query, ignoring case.
func (s *PostgresStore) SearchByName(ctx context.Context, query string) ([]*models.Node, error) {
	stmt := `SELECT ` + nodeColumns + ` FROM tree
		WHERE name ILIKE '%' || $1 || '%' ESCAPE '\' AND is_deleted = FALSE
		ORDER BY id`
	return s.queryNodes(ctx, "search nodes", stmt, escapeLike(query))
}

// AncestorChain resolves the whole parent chain of id in one round trip,
// root first. Missing parents end the chain; revisited ids stop it.
func (s *PostgresStore) AncestorChain(ctx context.Context, id int64) ([]models.Ancestor, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT p.id, p.name, p.parent_id, 1 AS depth, ARRAY[n.id, p.id] AS path
			FROM tree n
			JOIN tree p ON p.id = n.parent_id
			WHERE n.id = $1
			UNION ALL
			SELECT p.id, p.name, p.parent_id, c.depth + 1, c.path || p.id
			FROM chain c
			JOIN tree p ON p.id = c.parent_id
			WHERE NOT p.id = ANY(c.path) AND c.depth < $2
		)
		SELECT id, name FROM chain ORDER BY depth DESC
	`
	rows, err := s.db.QueryContext(ctx, query, id, MaxChainDepth)
	if err != nil {
		return nil, fmt.Errorf("ancestor chain: %w", err)
	}
	defer rows.Close()
	var chain []models.Ancestor
	for rows.Next() {
		var a models.Ancestor
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		chain = append(chain, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ancestor chain: %w", err)
	}
	return chain, nil
}

func (s *PostgresStore) queryNodes(ctx context.Context, op, query string, args ...any) ([]*models.Node, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var nodes []*models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		n                  models.Node
		externalID         sql.NullInt64
		birth, death       sql.NullInt32
		bio                sql.NullString
		miniIcon, mainIcon sql.NullString
		parentID           sql.NullInt64
		updatedBy          sql.NullInt64
	)
	err := row.Scan(
		&n.ID, &externalID, &n.Name, &birth, &death, &bio, &miniIcon, &mainIcon,
		&parentID, &n.IsDeleted, &n.CreatedBy, &updatedBy, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ExternalID = nullInt64(externalID)
	n.BirthYear = nullInt(birth)
	n.DeathYear = nullInt(death)
	n.Biography = nullString(bio)
	n.MiniIcon = nullString(miniIcon)
	n.MainIcon = nullString(mainIcon)
	n.ParentID = nullInt64(parentID)
	n.UpdatedBy = nullInt64(updatedBy)
	return &n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int32)
	return &out
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	out := v.String
	return &out
}
