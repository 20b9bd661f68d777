package updatekind

import (
	"strings"

	"github.com/appetiteclub/posboard/pkg/event"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Kind struct {
	Name string
}

func (k Kind) Code() string {
	return k.Name
}

// Label turns "order_status_changed" into "Order Status Changed".
func (k Kind) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(k.Name, "_", " "))
}

// Resource returns the domain area the kind belongs to ("order", "bill", ...).
func (k Kind) Resource() string {
	head, _, _ := strings.Cut(k.Name, "_")
	return head
}

type Enum struct {
	OrderCreated       Kind
	OrderUpdated       Kind
	OrderDeleted       Kind
	OrderStatusChanged Kind
	BillCreated        Kind
	BillUpdated        Kind
	BillPaid           Kind
	TableUpdated       Kind
	DishUpdated        Kind
	CategoryUpdated    Kind
}

var Kinds = Enum{
	OrderCreated:       Kind{Name: event.EventOrderCreated},
	OrderUpdated:       Kind{Name: event.EventOrderUpdated},
	OrderDeleted:       Kind{Name: event.EventOrderDeleted},
	OrderStatusChanged: Kind{Name: event.EventOrderStatusChanged},
	BillCreated:        Kind{Name: event.EventBillCreated},
	BillUpdated:        Kind{Name: event.EventBillUpdated},
	BillPaid:           Kind{Name: event.EventBillPaid},
	TableUpdated:       Kind{Name: event.EventTableUpdated},
	DishUpdated:        Kind{Name: event.EventDishUpdated},
	CategoryUpdated:    Kind{Name: event.EventCategoryUpdated},
}

var All = []Kind{
	Kinds.OrderCreated,
	Kinds.OrderUpdated,
	Kinds.OrderDeleted,
	Kinds.OrderStatusChanged,
	Kinds.BillCreated,
	Kinds.BillUpdated,
	Kinds.BillPaid,
	Kinds.TableUpdated,
	Kinds.DishUpdated,
	Kinds.CategoryUpdated,
}

// ByName returns the kind for a given name, or nil if not found
func ByName(name string) *Kind {
	for _, k := range All {
		if k.Name == name {
			return &k
		}
	}
	return nil
}

// Valid reports whether name is a known kind.
func Valid(name string) bool {
	return ByName(name) != nil
}

// Parse splits a comma separated list ("order_created,bill_paid") into known
// kind names. Unknown names are returned separately.
func Parse(list string) (known []string, unknown []string) {
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if Valid(name) {
			known = append(known, name)
		} else {
			unknown = append(unknown, name)
		}
	}
	return known, unknown
}
