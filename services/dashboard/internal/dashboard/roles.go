package dashboard

import (
	"github.com/appetiteclub/posboard/pkg/enums/role"
)

// views lists the resources each role's dashboard offers, in menu order.
var views = map[string][]string{
	role.Roles.SuperAdmin.Code(): {
		"branches", "users", "categories", "kitchens", "dishes", "halls", "orders", "bills",
	},
	role.Roles.BranchAdmin.Code(): {
		"categories", "kitchens", "dishes", "halls", "users", "orders", "bills",
	},
	role.Roles.Accountant.Code(): {
		"bills", "orders",
	},
	role.Roles.OrderTaker.Code(): {
		"orders", "halls", "dishes", "categories",
	},
}

// ResourcesFor returns the resources shown to roleName, nil for unknown roles.
func ResourcesFor(roleName string) []string {
	r := role.ByName(roleName)
	if r == nil {
		return nil
	}
	return views[r.Code()]
}

// Offers reports whether roleName's dashboard shows resource.
func Offers(roleName, resource string) bool {
	for _, name := range ResourcesFor(roleName) {
		if name == resource {
			return true
		}
	}
	return false
}
