package role

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Role struct {
	Name string
}

func (r Role) Code() string {
	return r.Name
}

// Label turns "order_taker" into "Order Taker".
func (r Role) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(r.Name, "_", " "))
}

type Enum struct {
	SuperAdmin  Role
	BranchAdmin Role
	Accountant  Role
	OrderTaker  Role
}

var Roles = Enum{
	SuperAdmin:  Role{Name: "super_admin"},
	BranchAdmin: Role{Name: "branch_admin"},
	Accountant:  Role{Name: "accountant"},
	OrderTaker:  Role{Name: "order_taker"},
}

var All = []Role{
	Roles.SuperAdmin,
	Roles.BranchAdmin,
	Roles.Accountant,
	Roles.OrderTaker,
}

// ByName returns the role for a given name, or nil if not found.
// Hyphens and case are tolerated ("Branch-Admin").
func ByName(name string) *Role {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, r := range All {
		if r.Name == name {
			return &r
		}
	}
	return nil
}
