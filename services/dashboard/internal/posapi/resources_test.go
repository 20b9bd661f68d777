package posapi

import (
	"net/http"
	"testing"

	"github.com/appetiteclub/posboard/pkg/enums/updatekind"
	"github.com/appetiteclub/posboard/pkg/event"
)

func TestCatalogIsConsistent(t *testing.T) {
	for _, name := range Resources() {
		res, _ := Lookup(name)
		t.Run(name, func(t *testing.T) {
			if res.Name != name {
				t.Errorf("Name = %q", res.Name)
			}
			if res.IDField == "" || len(res.IDAliases) == 0 || len(res.CandidateKeys) == 0 {
				t.Error("identifier and candidate keys must be set")
			}
			if _, ok := res.Endpoint(ActionList); !ok {
				t.Error("missing list endpoint")
			}
			for action, kind := range res.Publishes {
				if _, ok := res.Endpoint(action); !ok {
					t.Errorf("publishes for unknown action %q", action)
				}
				if !updatekind.Valid(kind) {
					t.Errorf("publishes unknown kind %q", kind)
				}
			}
			for _, kind := range res.RefetchOn {
				if !updatekind.Valid(kind) {
					t.Errorf("refetches on unknown kind %q", kind)
				}
			}
		})
	}
}

func TestResourceHelpers(t *testing.T) {
	orders, _ := Lookup("orders")

	if got := orders.Actions(); len(got) != 4 || got[0] != ActionCreate || got[3] != ActionUpdate {
		t.Errorf("Actions() = %v", got)
	}
	if kind, ok := orders.KindFor(ActionStatus); !ok || kind != event.EventOrderStatusChanged {
		t.Errorf("KindFor(status) = %q, %v", kind, ok)
	}
	if !orders.Stale(event.EventOrderDeleted) || orders.Stale(event.EventBillPaid) {
		t.Error("Stale() mismatch")
	}

	branches, _ := Lookup("branches")
	if _, ok := branches.KindFor(ActionCreate); ok {
		t.Error("branches publish nothing")
	}

	bills, _ := Lookup("bills")
	if ep, _ := bills.Endpoint(ActionDelete); ep.Method != http.MethodDelete {
		t.Errorf("delete method = %s", ep.Method)
	}

	if _, ok := Lookup("tips"); ok {
		t.Error("Lookup(tips) should fail")
	}
}
