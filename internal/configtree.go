package internal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

const (
	configColumns  = "id, name, value, comment, user_id, parent_id"
	configRootName = "root"
)

// ConfigRepository implements labdb.ConfigStore over the self-referencing
// config table.
type ConfigRepository struct {
	pool dbPool
}

var _ labdb.ConfigStore = (*ConfigRepository)(nil)

func NewConfigRepository(pool dbPool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

func scanConfigNode(row pgx.Row) (*labdb.ConfigNode, error) {
	var (
		n     labdb.ConfigNode
		value []byte
	)
	if err := row.Scan(&n.ID, &n.Name, &value, &n.Comment, &n.UserID, &n.ParentID); err != nil {
		return nil, err
	}
	if len(value) > 0 {
		n.Value = value
	}
	return &n, nil
}

func (r *ConfigRepository) Root(ctx context.Context) (*labdb.ConfigNode, error) {
	n, err := scanConfigNode(r.pool.QueryRow(ctx,
		"SELECT "+configColumns+" FROM config WHERE parent_id IS NULL AND name = $1",
		configRootName,
	))
	if err != nil {
		return nil, mapError(err, "config", configRootName)
	}
	return n, nil
}

func (r *ConfigRepository) GetNode(ctx context.Context, id int64) (*labdb.ConfigNode, error) {
	n, err := scanConfigNode(r.pool.QueryRow(ctx, "SELECT "+configColumns+" FROM config WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "config", idKey(id))
	}
	return n, nil
}

func (r *ConfigRepository) Child(ctx context.Context, parentID int64, name string) (*labdb.ConfigNode, error) {
	n, err := scanConfigNode(r.pool.QueryRow(ctx,
		"SELECT "+configColumns+" FROM config WHERE parent_id = $1 AND name = $2",
		parentID, name,
	))
	if err != nil {
		return nil, mapError(err, "config", name)
	}
	return n, nil
}

func (r *ConfigRepository) Children(ctx context.Context, parentID int64) ([]*labdb.ConfigNode, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+configColumns+" FROM config WHERE parent_id = $1 ORDER BY name",
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query config children: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (*labdb.ConfigNode, error) {
		return scanConfigNode(row)
	})
}

// Container returns the parent of node. The root has no container.
func (r *ConfigRepository) Container(ctx context.Context, node *labdb.ConfigNode) (*labdb.ConfigNode, error) {
	if node == nil || node.ParentID == nil {
		name := configRootName
		if node != nil {
			name = node.Name
		}
		return nil, labdb.NewNotFoundError("config container", name)
	}
	return r.GetNode(ctx, *node.ParentID)
}

// Lookup resolves a dotted path such as "flags.debug" starting at the root.
// An empty path, or "root", is the root itself.
func (r *ConfigRepository) Lookup(ctx context.Context, path string) (*labdb.ConfigNode, error) {
	node, err := r.Root(ctx)
	if err != nil {
		return nil, err
	}
	path = strings.TrimPrefix(path, configRootName+".")
	if path == "" || path == configRootName {
		return node, nil
	}
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, labdb.NewValidationError("path", fmt.Sprintf("empty element in %q", path))
		}
		node, err = r.Child(ctx, node.ID, part)
		if err != nil {
			if labdb.IsNotFound(err) {
				return nil, labdb.NewNotFoundError("config", path)
			}
			return nil, err
		}
	}
	return node, nil
}

func validateConfigName(name string) error {
	if strings.TrimSpace(name) == "" {
		return labdb.NewValidationError("name", "is required")
	}
	if strings.Contains(name, ".") {
		return labdb.NewValidationError("name", "must not contain '.'")
	}
	return nil
}

func (r *ConfigRepository) AddNode(ctx context.Context, parentID int64, name string, value any) (*labdb.ConfigNode, error) {
	if err := validateConfigName(name); err != nil {
		return nil, err
	}
	data, err := marshalValue(value)
	if err != nil {
		return nil, err
	}
	n := &labdb.ConfigNode{Name: name, ParentID: &parentID, Value: data}
	err = r.pool.QueryRow(ctx,
		"INSERT INTO config (name, value, parent_id) VALUES ($1, $2, $3) RETURNING id",
		name, data, parentID,
	).Scan(&n.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert config node: %w", err), "config", name)
	}
	return n, nil
}

func (r *ConfigRepository) SetValue(ctx context.Context, id int64, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, "UPDATE config SET value = $1 WHERE id = $2", data, id)
	if err != nil {
		return fmt.Errorf("update config value: %w", err)
	}
	return expectAffected(tag, "config", idKey(id))
}

// DeleteValue resets the node value to JSON null. The node itself stays.
func (r *ConfigRepository) DeleteValue(ctx context.Context, id int64) error {
	return r.SetValue(ctx, id, nil)
}

// DeleteNode removes a node and, through the foreign key, its descendants.
func (r *ConfigRepository) DeleteNode(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM config WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete config node: %w", err)
	}
	return expectAffected(tag, "config", idKey(id))
}

// Subtree loads a node and all its descendants in one query. Children are
// ordered by name at every level.
func (r *ConfigRepository) Subtree(ctx context.Context, id int64) (*labdb.ConfigNode, error) {
	rows, err := r.pool.Query(ctx,
		`WITH RECURSIVE tree AS (
			SELECT `+configColumns+` FROM config WHERE id = $1
			UNION ALL
			SELECT c.id, c.name, c.value, c.comment, c.user_id, c.parent_id
				FROM config c JOIN tree t ON c.parent_id = t.id
		)
		SELECT `+configColumns+` FROM tree ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query config subtree: %w", err)
	}
	nodes, err := collectRows(rows, func(row pgx.Rows) (*labdb.ConfigNode, error) {
		return scanConfigNode(row)
	})
	if err != nil {
		return nil, err
	}
	return assembleTree(id, nodes)
}

func assembleTree(rootID int64, nodes []*labdb.ConfigNode) (*labdb.ConfigNode, error) {
	byID := make(map[int64]*labdb.ConfigNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	root, ok := byID[rootID]
	if !ok {
		return nil, labdb.NewNotFoundError("config", idKey(rootID))
	}
	for _, n := range nodes {
		if n.ID == rootID || n.ParentID == nil {
			continue
		}
		if parent, ok := byID[*n.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}
	for _, n := range nodes {
		sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	}
	return root, nil
}
