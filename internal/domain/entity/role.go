// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
)

// RoleName is the closed set of roles an account can hold.
type RoleName string

const (
	// RoleAdmin is granted to back-office operators.
	RoleAdmin RoleName = "ADMIN"
	// RoleTenant is granted to people looking for a house.
	RoleTenant RoleName = "TENANT"
	// RoleLandlord is granted to people publishing houses.
	RoleLandlord RoleName = "LANDLORD"
)

// Authority is the permission label derived from a role and carried by
// access tokens.
type Authority string

const (
	AuthorityAdmin    Authority = "ROLE_ADMIN"
	AuthorityTenant   Authority = "ROLE_TENANT"
	AuthorityLandlord Authority = "ROLE_LANDLORD"
)

// roleAuthorities is the single place where roles map onto authorities.
var roleAuthorities = map[RoleName]Authority{
	RoleAdmin:    AuthorityAdmin,
	RoleTenant:   AuthorityTenant,
	RoleLandlord: AuthorityLandlord,
}

// String returns the string representation of the RoleName.
func (r RoleName) String() string {
	return string(r)
}

// IsValid checks if the RoleName is a member of the enumeration.
func (r RoleName) IsValid() bool {
	_, ok := roleAuthorities[r]

	return ok
}

// Authority returns the authority granted by the role, or an empty value for
// unknown roles.
func (r RoleName) Authority() Authority {
	return roleAuthorities[r]
}

// Role is a single role assignment owned by an account.
type Role struct {
	ID        int64
	AccountID int64
	Name      RoleName
}

// NewRoles builds one unsaved role per name for the given account.
func NewRoles(accountID int64, names []RoleName) []*Role {
	roles := make([]*Role, 0, len(names))
	for _, name := range names {
		roles = append(roles, &Role{AccountID: accountID, Name: name})
	}

	return roles
}

// AuthoritiesOf derives the distinct authorities of a set of roles, in
// sorted order.
func AuthoritiesOf(roles []*Role) Authorities {
	result := make(Authorities, 0, len(roles))
	for _, role := range roles {
		authority := role.Name.Authority()
		if authority == "" || result.Contains(authority) {
			continue
		}
		result = append(result, authority)
	}
	slices.Sort(result)

	return result
}

// Authorities is a slice of Authority for convenience.
type Authorities []Authority

// Contains checks if the authorities contain a specific authority.
func (as Authorities) Contains(authority Authority) bool {
	return slices.Contains(as, authority)
}

// ToStrings converts Authorities to []string for JWT compatibility.
func (as Authorities) ToStrings() []string {
	result := make([]string, len(as))
	for i, a := range as {
		result[i] = string(a)
	}

	return result
}

// AuthoritiesFromStrings converts []string to Authorities, filtering out
// labels that no role grants.
func AuthoritiesFromStrings(ss []string) Authorities {
	result := make(Authorities, 0, len(ss))
	for _, s := range ss {
		authority := Authority(s)
		for _, known := range roleAuthorities {
			if known == authority {
				result = append(result, authority)

				break
			}
		}
	}

	return result
}
