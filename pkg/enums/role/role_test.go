package role

import "testing"

func TestByName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact", input: "super_admin", want: "super_admin"},
		{name: "hyphenated", input: "Branch-Admin", want: "branch_admin"},
		{name: "padded", input: "  accountant ", want: "accountant"},
		{name: "unknown", input: "chef", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByName(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("ByName(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil || got.Code() != tt.want {
				t.Errorf("ByName(%q) = %v, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{Roles.SuperAdmin, "Super Admin"},
		{Roles.BranchAdmin, "Branch Admin"},
		{Roles.Accountant, "Accountant"},
		{Roles.OrderTaker, "Order Taker"},
	}
	for _, tt := range tests {
		if got := tt.role.Label(); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.role.Name, got, tt.want)
		}
	}
}
