package feed

import "strings"

// FieldRole identifies the semantic meaning of a feed column.
// The concrete header name bound to each role differs per platform and is
// supplied as external configuration.
type FieldRole string

const (
	RoleProductID  FieldRole = "product_id"
	RoleParentID   FieldRole = "parent_id"
	RoleName       FieldRole = "name"
	RolePrice      FieldRole = "price"
	RoleSalePrice  FieldRole = "sale_price"
	RoleListPrice  FieldRole = "list_price"
	RoleCost       FieldRole = "cost"
	RoleInventory  FieldRole = "inventory"
	RoleRating     FieldRole = "rating"
	RoleCategory   FieldRole = "category"
	RoleImage      FieldRole = "image"
	RolePage       FieldRole = "page"
	RoleVisibility FieldRole = "visibility"
)

// Schema resolves a header row into a mapping from semantic field role to
// column index. It is built once per extraction run, from the first retrieved
// page, and is immutable afterwards. Every component of the pipeline reads
// fields through the same Schema instead of re-resolving names per call.
type Schema struct {
	headers []string
	byName  map[string]int
	byRole  map[FieldRole]int
}

// NewSchema builds a schema from a raw header row and the configured
// role-to-header-name bindings. Spaces are stripped from header names since
// header identifiers cannot contain them. Duplicate header names (a known
// platform defect) are deduplicated; the first occurrence wins.
func NewSchema(header []string, bindings map[FieldRole]string) *Schema {
	s := &Schema{
		headers: make([]string, len(header)),
		byName:  make(map[string]int, len(header)),
		byRole:  make(map[FieldRole]int, len(bindings)),
	}

	for i, name := range header {
		name = strings.ReplaceAll(name, " ", "")
		s.headers[i] = name
		if _, dup := s.byName[name]; !dup {
			s.byName[name] = i
		}
	}

	for role, name := range bindings {
		if idx, ok := s.byName[strings.ReplaceAll(name, " ", "")]; ok {
			s.byRole[role] = idx
		}
	}

	return s
}

// Len returns the number of columns in the header.
func (s *Schema) Len() int {
	return len(s.headers)
}

// Headers returns the resolved header names in column order.
func (s *Schema) Headers() []string {
	return s.headers
}

// Column returns the column index bound to the given role.
func (s *Schema) Column(role FieldRole) (int, bool) {
	idx, ok := s.byRole[role]
	return idx, ok
}

// ColumnByName returns the column index for a raw header name.
func (s *Schema) ColumnByName(name string) (int, bool) {
	idx, ok := s.byName[strings.ReplaceAll(name, " ", "")]
	return idx, ok
}

// HasRole reports whether the given role is bound to a column.
func (s *Schema) HasRole(role FieldRole) bool {
	_, ok := s.byRole[role]
	return ok
}

// Value reads the field bound to role from the given row. It returns the
// empty string when the role is unbound or the row is too short.
func (s *Schema) Value(row []string, role FieldRole) string {
	idx, ok := s.byRole[role]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ValueByName reads a field by raw header name from the given row.
func (s *Schema) ValueByName(row []string, name string) string {
	idx, ok := s.ColumnByName(name)
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
