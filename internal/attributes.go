package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

// attributeTableSet names the tables behind one attribute kind.
type attributeTableSet struct {
	OwnerTable string
	AttrTable  string
	TypeTable  string
}

var attributeKindOrder = []labdb.AttributeKind{
	labdb.AttributeKindEquipment,
	labdb.AttributeKindEquipmentModel,
	labdb.AttributeKindSoftware,
	labdb.AttributeKindEnvironment,
	labdb.AttributeKindCorporation,
}

// Equipment, models and software share one type table.
var attributeTables = map[labdb.AttributeKind]attributeTableSet{
	labdb.AttributeKindEquipment:      {OwnerTable: "equipment", AttrTable: "equipment_attributes", TypeTable: "attribute_type"},
	labdb.AttributeKindEquipmentModel: {OwnerTable: "equipment_model", AttrTable: "equipment_model_attributes", TypeTable: "attribute_type"},
	labdb.AttributeKindSoftware:       {OwnerTable: "software", AttrTable: "software_attributes", TypeTable: "attribute_type"},
	labdb.AttributeKindEnvironment:    {OwnerTable: "environments", AttrTable: "environment_attributes", TypeTable: "environmentattribute_type"},
	labdb.AttributeKindCorporation:    {OwnerTable: "corporations", AttrTable: "corp_attributes", TypeTable: "corp_attribute_type"},
}

func tablesFor(kind labdb.AttributeKind) (attributeTableSet, error) {
	t, ok := attributeTables[kind]
	if !ok {
		return attributeTableSet{}, labdb.NewValidationError("kind", fmt.Sprintf("unknown attribute kind %q", kind))
	}
	return t, nil
}

var valueTypeSchemas = map[labdb.ValueType]*jsonschema.Schema{
	labdb.ValueObject:  {},
	labdb.ValueString:  {Type: "string"},
	labdb.ValueUnicode: {Type: "string"},
	labdb.ValueInteger: {Type: "integer"},
	labdb.ValueFloat:   {Type: "number"},
	labdb.ValueBoolean: {Type: "boolean"},
}

// validateAttributeValue checks an encoded value against the JSON Schema for
// its declared type.
func validateAttributeValue(vt labdb.ValueType, data []byte) error {
	schema, ok := valueTypeSchemas[vt]
	if !ok {
		return labdb.NewValidationError("valueType", fmt.Sprintf("unknown value type %d", int16(vt)))
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("resolve %s schema: %w", vt, err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return labdb.NewValidationError("value", "invalid JSON document").WithCause(err)
	}
	if err := resolved.Validate(instance); err != nil {
		return labdb.NewValidationError("value", fmt.Sprintf("not a valid %s", vt)).WithCause(err)
	}
	return nil
}

// AttributeRepository implements labdb.AttributeStore for every attribute
// kind.
type AttributeRepository struct {
	pool dbPool
}

var _ labdb.AttributeStore = (*AttributeRepository)(nil)

func NewAttributeRepository(pool dbPool) *AttributeRepository {
	return &AttributeRepository{pool: pool}
}

func scanAttributeType(row pgx.Row) (labdb.AttributeType, error) {
	var (
		at        labdb.AttributeType
		valueType int16
	)
	err := row.Scan(&at.ID, &at.Name, &valueType, &at.Description)
	at.ValueType = labdb.ValueType(valueType)
	return at, err
}

func (r *AttributeRepository) CreateAttributeType(ctx context.Context, kind labdb.AttributeKind, name string, valueType labdb.ValueType, description string) (*labdb.AttributeType, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	if !valueType.Valid() {
		return nil, labdb.NewValidationError("valueType", fmt.Sprintf("unknown value type %d", int16(valueType)))
	}
	at := &labdb.AttributeType{Name: name, ValueType: valueType, Description: description}
	err = r.pool.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO %s (name, value_type, description) VALUES ($1, $2, $3) RETURNING id", sanitizeIdentifier(t.TypeTable)),
		name, int16(valueType), description,
	).Scan(&at.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert attribute type: %w", err), "attribute type", name)
	}
	return at, nil
}

func (r *AttributeRepository) GetAttributeType(ctx context.Context, kind labdb.AttributeKind, name string) (*labdb.AttributeType, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	at, err := scanAttributeType(r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, name, value_type, description FROM %s WHERE name = $1", sanitizeIdentifier(t.TypeTable)),
		name,
	))
	if err != nil {
		return nil, mapError(err, "attribute type", name)
	}
	return &at, nil
}

func (r *AttributeRepository) ListAttributeTypes(ctx context.Context, kind labdb.AttributeKind) ([]labdb.AttributeType, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT id, name, value_type, description FROM %s ORDER BY name", sanitizeIdentifier(t.TypeTable)),
	)
	if err != nil {
		return nil, fmt.Errorf("query attribute types: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.AttributeType, error) {
		return scanAttributeType(row)
	})
}

func attributeSelect(t attributeTableSet) string {
	return fmt.Sprintf(`SELECT a.id, a.owner_id, a.value, t.id, t.name, t.value_type, t.description
		FROM %s a JOIN %s t ON t.id = a.type_id`,
		sanitizeIdentifier(t.AttrTable), sanitizeIdentifier(t.TypeTable))
}

func scanAttribute(row pgx.Row) (labdb.Attribute, error) {
	var (
		a         labdb.Attribute
		value     []byte
		valueType int16
	)
	err := row.Scan(&a.ID, &a.OwnerID, &value, &a.Type.ID, &a.Type.Name, &valueType, &a.Type.Description)
	a.Value = value
	a.Type.ValueType = labdb.ValueType(valueType)
	return a, err
}

func (r *AttributeRepository) GetAttribute(ctx context.Context, kind labdb.AttributeKind, ownerID int64, name string) (*labdb.Attribute, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	a, err := scanAttribute(r.pool.QueryRow(ctx,
		attributeSelect(t)+" WHERE a.owner_id = $1 AND t.name = $2",
		ownerID, name,
	))
	if err != nil {
		return nil, mapError(err, string(kind)+" attribute", name)
	}
	return &a, nil
}

// SetAttribute creates or replaces the value of the named attribute on an
// owner. The value must match the attribute type's value type.
func (r *AttributeRepository) SetAttribute(ctx context.Context, kind labdb.AttributeKind, ownerID int64, name string, value any) (*labdb.Attribute, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	at, err := r.GetAttributeType(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	data, err := marshalValue(value)
	if err != nil {
		return nil, err
	}
	if err := validateAttributeValue(at.ValueType, data); err != nil {
		return nil, err
	}

	a := &labdb.Attribute{OwnerID: ownerID, Type: *at, Value: data}
	err = r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (owner_id, type_id, value) VALUES ($1, $2, $3)
			ON CONFLICT (owner_id, type_id) DO UPDATE SET value = EXCLUDED.value
			RETURNING id`, sanitizeIdentifier(t.AttrTable)),
		ownerID, at.ID, data,
	).Scan(&a.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("upsert attribute: %w", err), string(kind), idKey(ownerID))
	}
	return a, nil
}

func (r *AttributeRepository) DeleteAttribute(ctx context.Context, kind labdb.AttributeKind, ownerID int64, name string) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s a USING %s t
			WHERE a.type_id = t.id AND a.owner_id = $1 AND t.name = $2`,
			sanitizeIdentifier(t.AttrTable), sanitizeIdentifier(t.TypeTable)),
		ownerID, name,
	)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	return expectAffected(tag, string(kind)+" attribute", name)
}

func (r *AttributeRepository) ListAttributes(ctx context.Context, kind labdb.AttributeKind, ownerID int64) ([]labdb.Attribute, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, attributeSelect(t)+" WHERE a.owner_id = $1 ORDER BY t.name", ownerID)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Attribute, error) {
		return scanAttribute(row)
	})
}
