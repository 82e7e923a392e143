package navigation

import "testing"

func TestResolveLine(t *testing.T) {
	text := "#include \"a/b.h\"\n\nstruct Widget {\n  int x;\n};\nint main(void)\n{\n  char *name;\n}\n"

	cases := []struct {
		name string
		loc  Location
		want int
		ok   bool
	}{
		{name: "precise line wins", loc: Location{Line: 4, Pattern: "/^int main(void)$/"}, want: 4, ok: true},
		{name: "regex pattern", loc: Location{Pattern: "/^struct Widget {$/"}, want: 3, ok: true},
		{name: "literal fallback for parens", loc: Location{Pattern: "/^int main(void)$/"}, want: 6, ok: true},
		{name: "escaped slash", loc: Location{Pattern: `/^#include "a\/b.h"$/`}, want: 1, ok: true},
		{name: "literal fallback for star", loc: Location{Pattern: "/^  char *name;$/"}, want: 8, ok: true},
		{name: "bare pattern", loc: Location{Pattern: "int x"}, want: 4, ok: true},
		{name: "invalid regex", loc: Location{Pattern: "/^foo(bar$/"}, ok: false},
		{name: "no match", loc: Location{Pattern: "/^nothing here$/"}, ok: false},
		{name: "file level only", loc: Location{Path: "a.c"}, ok: false},
	}

	for _, tc := range cases {
		got, ok := ResolveLine(tc.loc, text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: ResolveLine = %d,%v; want %d,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
