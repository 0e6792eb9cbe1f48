package roles

// Role identifies an admin role
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleFinance    Role = "finance"
	RoleSupport    Role = "support"
	RoleOps        Role = "ops"
)

// DefaultPrefix is the URL prefix used for super_admin and for any role
// outside the known set
const DefaultPrefix = "admin"

// prefixByRole maps each role to its URL path prefix. super_admin is the
// only role whose prefix differs from its name.
var prefixByRole = map[Role]string{
	RoleSuperAdmin: DefaultPrefix,
	RoleFinance:    "finance",
	RoleSupport:    "support",
	RoleOps:        "ops",
}

// roleByPrefix is the exact reverse of prefixByRole; every valid prefix maps
// back to exactly one role.
var roleByPrefix = map[string]Role{}

func init() {
	for role, prefix := range prefixByRole {
		roleByPrefix[prefix] = role
	}
}

// Valid reports whether r is a member of the closed role set
func (r Role) Valid() bool {
	_, ok := prefixByRole[r]
	return ok
}

// Prefix returns the URL path prefix for a role. Unknown roles fall back to
// the admin prefix.
func Prefix(r Role) string {
	if prefix, ok := prefixByRole[r]; ok {
		return prefix
	}
	return DefaultPrefix
}

// FromPrefix resolves a URL path prefix back to its role. The second return
// is false for prefixes outside the known set.
func FromPrefix(prefix string) (Role, bool) {
	role, ok := roleByPrefix[prefix]
	return role, ok
}

// KnownPrefix reports whether prefix belongs to the known prefix set
func KnownPrefix(prefix string) bool {
	_, ok := roleByPrefix[prefix]
	return ok
}

// All returns every role in the closed set
func All() []Role {
	return []Role{RoleSuperAdmin, RoleFinance, RoleSupport, RoleOps}
}

// Satisfies reports whether role r meets a required-role set. An empty
// requirement is satisfied by any role, and super_admin satisfies every
// requirement unconditionally.
func Satisfies(r Role, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	if r == RoleSuperAdmin {
		return true
	}
	for _, req := range required {
		if r == req {
			return true
		}
	}
	return false
}
