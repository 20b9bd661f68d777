package posapi

import (
	"net/http"
	"sort"

	"github.com/appetiteclub/posboard/pkg/event"
)

const (
	ActionList   = "list"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionStatus = "status"
	ActionPay    = "pay"
)

// Endpoint is one backend call.
type Endpoint struct {
	Method string
	Path   string
}

// Resource describes how a backend collection is read and changed.
type Resource struct {
	Name string
	// IDField is the identifier key the backend expects in mutation bodies.
	IDField string
	// CandidateKeys name the wrapper keys list responses have been seen to use.
	CandidateKeys []string
	// IDAliases are the keys a listed record may carry its identifier under.
	IDAliases []string
	Endpoints map[string]Endpoint
	// Publishes maps an action to the update kind announced after it succeeds.
	Publishes map[string]string
	// RefetchOn lists the update kinds that make a shown list stale.
	RefetchOn []string
}

// Endpoint returns the call for action.
func (r Resource) Endpoint(action string) (Endpoint, bool) {
	ep, ok := r.Endpoints[action]
	return ep, ok
}

// Actions returns the mutation actions the resource supports, sorted.
func (r Resource) Actions() []string {
	var actions []string
	for a := range r.Endpoints {
		if a != ActionList {
			actions = append(actions, a)
		}
	}
	sort.Strings(actions)
	return actions
}

// KindFor returns the update kind published after action, if any.
func (r Resource) KindFor(action string) (string, bool) {
	kind, ok := r.Publishes[action]
	return kind, ok && kind != ""
}

// Stale reports whether an update of kind invalidates this resource's list.
func (r Resource) Stale(kind string) bool {
	for _, k := range r.RefetchOn {
		if k == kind {
			return true
		}
	}
	return false
}

func crud(base string, listMethod string) map[string]Endpoint {
	return map[string]Endpoint{
		ActionList:   {Method: listMethod, Path: base + "/list.php"},
		ActionCreate: {Method: http.MethodPost, Path: base + "/add.php"},
		ActionUpdate: {Method: http.MethodPost, Path: base + "/update.php"},
		ActionDelete: {Method: http.MethodDelete, Path: base + "/delete.php"},
	}
}

func same(kind string) map[string]string {
	return map[string]string{
		ActionCreate: kind,
		ActionUpdate: kind,
		ActionDelete: kind,
	}
}

var catalog = map[string]Resource{
	"categories": {
		Name:          "categories",
		IDField:       "category_id",
		CandidateKeys: []string{"categories", "category"},
		IDAliases:     []string{"category_id", "cid", "id"},
		Endpoints:     crud("/categories", http.MethodGet),
		Publishes:     same(event.EventCategoryUpdated),
		RefetchOn:     []string{event.EventCategoryUpdated},
	},
	"kitchens": {
		Name:          "kitchens",
		IDField:       "kid",
		CandidateKeys: []string{"kitchens", "kitchen"},
		IDAliases:     []string{"kid", "kitchen_id", "id"},
		Endpoints:     crud("/kitchens", http.MethodGet),
		Publishes:     same(event.EventCategoryUpdated),
		RefetchOn:     []string{event.EventCategoryUpdated},
	},
	"dishes": {
		Name:          "dishes",
		IDField:       "dish_id",
		CandidateKeys: []string{"dishes", "items", "menu_items", "menu"},
		IDAliases:     []string{"dish_id", "item_id", "menu_item_id", "id"},
		Endpoints:     crud("/dishes", http.MethodPost),
		Publishes:     same(event.EventDishUpdated),
		RefetchOn:     []string{event.EventDishUpdated, event.EventCategoryUpdated},
	},
	"halls": {
		Name:          "halls",
		IDField:       "hall_id",
		CandidateKeys: []string{"halls", "tables"},
		IDAliases:     []string{"hall_id", "table_id", "id"},
		Endpoints:     crud("/halls", http.MethodPost),
		Publishes:     same(event.EventTableUpdated),
		RefetchOn:     []string{event.EventTableUpdated, event.EventOrderStatusChanged, event.EventBillPaid},
	},
	"branches": {
		Name:          "branches",
		IDField:       "branch_id",
		CandidateKeys: []string{"branches"},
		IDAliases:     []string{"branch_id", "id"},
		Endpoints:     crud("/branches", http.MethodGet),
	},
	"users": {
		Name:          "users",
		IDField:       "user_id",
		CandidateKeys: []string{"users", "staff"},
		IDAliases:     []string{"user_id", "uid", "id"},
		Endpoints:     crud("/users", http.MethodPost),
	},
	"orders": {
		Name:          "orders",
		IDField:       "order_id",
		CandidateKeys: []string{"orders"},
		IDAliases:     []string{"order_id", "id"},
		Endpoints: func() map[string]Endpoint {
			eps := crud("/orders", http.MethodPost)
			eps[ActionStatus] = Endpoint{Method: http.MethodPost, Path: "/orders/status.php"}
			return eps
		}(),
		Publishes: map[string]string{
			ActionCreate: event.EventOrderCreated,
			ActionUpdate: event.EventOrderUpdated,
			ActionDelete: event.EventOrderDeleted,
			ActionStatus: event.EventOrderStatusChanged,
		},
		RefetchOn: []string{
			event.EventOrderCreated,
			event.EventOrderUpdated,
			event.EventOrderDeleted,
			event.EventOrderStatusChanged,
		},
	},
	"bills": {
		Name:          "bills",
		IDField:       "bill_id",
		CandidateKeys: []string{"bills", "invoices"},
		IDAliases:     []string{"bill_id", "invoice_id", "id"},
		Endpoints: func() map[string]Endpoint {
			eps := crud("/bills", http.MethodPost)
			eps[ActionPay] = Endpoint{Method: http.MethodPost, Path: "/bills/pay.php"}
			return eps
		}(),
		Publishes: map[string]string{
			ActionCreate: event.EventBillCreated,
			ActionUpdate: event.EventBillUpdated,
			ActionDelete: event.EventBillUpdated,
			ActionPay:    event.EventBillPaid,
		},
		RefetchOn: []string{
			event.EventBillCreated,
			event.EventBillUpdated,
			event.EventBillPaid,
			event.EventOrderStatusChanged,
		},
	},
}

// Lookup finds a resource by name.
func Lookup(name string) (Resource, bool) {
	r, ok := catalog[name]
	return r, ok
}

// Resources returns every resource name, sorted.
func Resources() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
