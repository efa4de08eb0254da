package role

import (
	"fmt"
	"strings"
)

// Role is an ordered permission level. Higher values carry more authority, except the two
// service-account roles which form their own category on top of the ordinal scale.
type Role int

const (
	User                    Role = 0
	SpaceAdmin              Role = 10
	OrgAdmin                Role = 20
	ServiceAccountReadOnly  Role = 21
	ServiceAccountReadWrite Role = 22
	SuperAdmin              Role = 90
)

// All lists every known role in display order.
var All = []Role{
	User,
	SpaceAdmin,
	OrgAdmin,
	ServiceAccountReadOnly,
	ServiceAccountReadWrite,
	SuperAdmin,
}

var names = map[Role]string{
	User:                    "user",
	SpaceAdmin:              "space_admin",
	OrgAdmin:                "org_admin",
	ServiceAccountReadOnly:  "service_account_read_only",
	ServiceAccountReadWrite: "service_account_read_write",
	SuperAdmin:              "super_admin",
}

// String returns the wire name of the role.
func (r Role) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := names[r]
	return ok
}

// Parse converts a wire name (case-insensitive) into a Role.
func Parse(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for r, name := range names {
		if name == key {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role: %q", s)
}

// MarshalText implements encoding.TextMarshaler so roles travel as names in JSON.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role: %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
