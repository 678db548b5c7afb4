package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// EquipmentRepository implements labdb.EquipmentStore. Software, capability
// and environment operations live in software.go, capabilities.go and
// environments.go.
type EquipmentRepository struct {
	clock
	pool dbPool
}

var _ labdb.EquipmentStore = (*EquipmentRepository)(nil)

func NewEquipmentRepository(pool dbPool) *EquipmentRepository {
	return &EquipmentRepository{pool: pool}
}

var equipmentFields = []string{"id", "name", "model_id", "serno", "parent_id", "owner_id", "active", "addeddate", "comments"}

// equipmentColumns renders the equipment column list, qualified by alias
// when one is given.
func equipmentColumns(alias string) string {
	if alias == "" {
		return strings.Join(equipmentFields, ", ")
	}
	cols := make([]string, len(equipmentFields))
	for i, f := range equipmentFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

func scanEquipment(row pgx.Row) (labdb.Equipment, error) {
	var e labdb.Equipment
	err := row.Scan(&e.ID, &e.Name, &e.ModelID, &e.SerialNo, &e.ParentID, &e.OwnerID, &e.Active, &e.AddedDate, &e.Comments)
	e.AddedDate = e.AddedDate.UTC()
	return e, err
}

func (r *EquipmentRepository) CreateCategory(ctx context.Context, name string) (*labdb.EquipmentCategory, error) {
	c := &labdb.EquipmentCategory{Name: name}
	err := r.pool.QueryRow(ctx, "INSERT INTO equipment_category (name) VALUES ($1) RETURNING id", name).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert equipment category: %w", err), "equipment category", name)
	}
	return c, nil
}

func (r *EquipmentRepository) GetCategory(ctx context.Context, name string) (*labdb.EquipmentCategory, error) {
	var c labdb.EquipmentCategory
	err := r.pool.QueryRow(ctx, "SELECT id, name FROM equipment_category WHERE name = $1", name).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, mapError(err, "equipment category", name)
	}
	return &c, nil
}

func (r *EquipmentRepository) CreateInterfaceType(ctx context.Context, name string, enumeration int32) (*labdb.InterfaceType, error) {
	it := &labdb.InterfaceType{Name: name, Enumeration: enumeration}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO interface_type (name, enumeration) VALUES ($1, $2) RETURNING id",
		name, enumeration,
	).Scan(&it.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert interface type: %w", err), "interface type", name)
	}
	return it, nil
}

func (r *EquipmentRepository) GetInterfaceType(ctx context.Context, name string) (*labdb.InterfaceType, error) {
	var it labdb.InterfaceType
	err := r.pool.QueryRow(ctx, "SELECT id, name, enumeration FROM interface_type WHERE name = $1", name).
		Scan(&it.ID, &it.Name, &it.Enumeration)
	if err != nil {
		return nil, mapError(err, "interface type", name)
	}
	return &it, nil
}

// CreateNetwork stores a network. The CIDR is normalized by the database.
func (r *EquipmentRepository) CreateNetwork(ctx context.Context, network *labdb.Network) (*labdb.Network, error) {
	if network == nil || network.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO networks (name, ipnetwork, bridgeid, notes)
			VALUES ($1, NULLIF($2, '')::cidr, $3, $4)
			RETURNING id, COALESCE(ipnetwork::text, '')`,
		network.Name, network.IPNetwork, network.BridgeID, network.Notes,
	).Scan(&network.ID, &network.IPNetwork)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert network: %w", err), "network", network.Name)
	}
	return network, nil
}

func (r *EquipmentRepository) GetNetwork(ctx context.Context, id int64) (*labdb.Network, error) {
	var n labdb.Network
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, COALESCE(ipnetwork::text, ''), bridgeid, notes FROM networks WHERE id = $1",
		id,
	).Scan(&n.ID, &n.Name, &n.IPNetwork, &n.BridgeID, &n.Notes)
	if err != nil {
		return nil, mapError(err, "network", idKey(id))
	}
	return &n, nil
}

func (r *EquipmentRepository) CreateEquipment(ctx context.Context, e *labdb.Equipment) (*labdb.Equipment, error) {
	if e == nil || strings.TrimSpace(e.Name) == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	if e.AddedDate.IsZero() {
		e.AddedDate = r.now()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO equipment (name, model_id, serno, parent_id, owner_id, active, addeddate, comments)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
		e.Name, e.ModelID, e.SerialNo, e.ParentID, e.OwnerID, e.Active, e.AddedDate, e.Comments,
	).Scan(&e.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert equipment: %w", err), "equipment", e.Name)
	}
	zap.S().Debugw("created equipment", "name", e.Name, "id", e.ID)
	return e, nil
}

func (r *EquipmentRepository) GetEquipment(ctx context.Context, id int64) (*labdb.Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx, "SELECT "+equipmentColumns("")+" FROM equipment WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "equipment", idKey(id))
	}
	return &e, nil
}

func (r *EquipmentRepository) GetEquipmentByName(ctx context.Context, name string) (*labdb.Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx, "SELECT "+equipmentColumns("")+" FROM equipment WHERE name = $1", name))
	if err != nil {
		return nil, mapError(err, "equipment", name)
	}
	return &e, nil
}

func (r *EquipmentRepository) queryEquipment(ctx context.Context, sql string, args ...any) ([]labdb.Equipment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Equipment, error) {
		return scanEquipment(row)
	})
}

// Subcomponents lists equipment whose parent is id.
func (r *EquipmentRepository) Subcomponents(ctx context.Context, id int64) ([]labdb.Equipment, error) {
	return r.queryEquipment(ctx, "SELECT "+equipmentColumns("")+" FROM equipment WHERE parent_id = $1 ORDER BY name", id)
}

// Parent returns the equipment that id is a component of.
func (r *EquipmentRepository) Parent(ctx context.Context, id int64) (*labdb.Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx,
		"SELECT "+equipmentColumns("p")+" FROM equipment e JOIN equipment p ON p.id = e.parent_id WHERE e.id = $1",
		id,
	))
	if err != nil {
		return nil, mapError(err, "equipment parent", idKey(id))
	}
	return &e, nil
}

const interfaceColumns = "id, name, alias, ifindex, description, macaddr, vlan, ipaddr, mtu, speed, status, interface_type_id, parent_id, equipment_id, network_id"

func (r *EquipmentRepository) AddInterface(ctx context.Context, equipmentID int64, iface *labdb.Interface) (*labdb.Interface, error) {
	if iface == nil || iface.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	iface.EquipmentID = &equipmentID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO interfaces (name, alias, ifindex, description, macaddr, vlan, ipaddr, mtu, speed, status, interface_type_id, parent_id, equipment_id, network_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id`,
		iface.Name, iface.Alias, iface.IfIndex, iface.Description, iface.MACAddr, iface.VLAN, iface.IPAddr,
		iface.MTU, iface.Speed, iface.Status, iface.InterfaceTypeID, iface.ParentID, iface.EquipmentID, iface.NetworkID,
	).Scan(&iface.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert interface: %w", err), "equipment", idKey(equipmentID))
	}
	return iface, nil
}

func (r *EquipmentRepository) Interfaces(ctx context.Context, equipmentID int64) ([]labdb.Interface, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+interfaceColumns+" FROM interfaces WHERE equipment_id = $1 ORDER BY name",
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query interfaces: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Interface, error) {
		var i labdb.Interface
		err := row.Scan(&i.ID, &i.Name, &i.Alias, &i.IfIndex, &i.Description, &i.MACAddr, &i.VLAN, &i.IPAddr,
			&i.MTU, &i.Speed, &i.Status, &i.InterfaceTypeID, &i.ParentID, &i.EquipmentID, &i.NetworkID)
		return i, err
	})
}
