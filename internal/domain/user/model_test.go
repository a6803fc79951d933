package user

import "testing"

func TestDisplayName(t *testing.T) {
	for _, tc := range []struct {
		first, last string
		want        string
	}{
		{"Alice", "Nguyen", "Alice N."},
		{"Bob", "O", "Bob O."},
		{"", "Nguyen", "Unknown"},
		{"Alice", "", "Unknown"},
	} {
		if got := DisplayName(tc.first, tc.last); got != tc.want {
			t.Fatalf("DisplayName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}

func TestValidateBasic(t *testing.T) {
	u := User{ID: "u1", FirstName: "Alice", Tokens: 5}
	if err := u.ValidateBasic(); err != nil {
		t.Fatalf("valid user must pass: %v", err)
	}

	if err := (User{Tokens: 5}).ValidateBasic(); err == nil {
		t.Fatalf("missing id must fail")
	}
	if err := (User{ID: "u1", Tokens: -1}).ValidateBasic(); err == nil {
		t.Fatalf("negative balance must fail")
	}
}
