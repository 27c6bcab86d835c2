package tagfilter

import "testing"

func TestFilter(t *testing.T) {
	names := NewNames("Alert", "CustomComponent")
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "partial name", in: "please see <Al", want: "please see "},
		{name: "complete name with attributes pending", in: "please see <Alert ", want: "please see "},
		{name: "complete name at end", in: "please see <Alert", want: "please see "},
		{name: "attributes streaming", in: `see <Alert type="warn`, want: "see "},
		{name: "unknown tag", in: "please see <Unknown", want: "please see <Unknown"},
		{name: "complete tag", in: "see <Alert>", want: "see <Alert>"},
		{name: "no bracket", in: "plain text", want: "plain text"},
		{name: "lone bracket", in: "a < b", want: "a < b"},
		{name: "comparison", in: "if a <b", want: "if a <b"},
		{name: "name longer than registered", in: "see <AlertBox", want: "see <AlertBox"},
		{name: "case sensitive", in: "see <al", want: "see <al"},
		{name: "partial closing tag", in: "<Alert>hi</Ale", want: "<Alert>hi"},
		{name: "earlier complete tag then partial", in: "<Alert>x</Alert> and <Cus", want: "<Alert>x</Alert> and "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filter(tt.in, names); got != tt.want {
				t.Fatalf("Filter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterWithoutNamesIsIdentity(t *testing.T) {
	if got := Filter("see <Al", nil); got != "see <Al" {
		t.Fatalf("got %q", got)
	}
}

func TestNames(t *testing.T) {
	n := NewNames("b", " a ", "")
	if !n.Has("a") || n.Has("") {
		t.Fatalf("unexpected names %v", n)
	}
	if got := n.List(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("List = %v", got)
	}
}
