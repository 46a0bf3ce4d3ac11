package styles

import (
	"strings"
	"testing"
)

func TestExpandMixins(t *testing.T) {
	const btn = "@define-mixin btn $bg, $fg: white {\n  background: $bg;\n  color: $(fg);\n}\n"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no mixins",
			in:   "a { color: red; }",
			want: "a { color: red; }",
		},
		{
			name: "default argument",
			in:   btn + ".a { @mixin btn red; }\n",
			want: ".a { background: red;\n  color: white; }\n",
		},
		{
			name: "all arguments",
			in:   btn + ".b { @mixin btn #000, #eee; }\n",
			want: ".b { background: #000;\n  color: #eee; }\n",
		},
		{
			name: "argument with commas",
			in:   btn + ".c { @mixin btn rgba(0, 0, 0, 0.5); }\n",
			want: ".c { background: rgba(0, 0, 0, 0.5);\n  color: white; }\n",
		},
		{
			name: "last statement without semicolon",
			in:   btn + ".d { @mixin btn red }\n",
			want: ".d { background: red;\n  color: white;}\n",
		},
		{
			name: "variables are left for simple-vars",
			in:   "@define-mixin brand {\n  color: $brand;\n}\n.e { @mixin brand; }",
			want: ".e { color: $brand; }",
		},
		{
			name: "nested rules in the body",
			in:   "@define-mixin hover $c {\n  &:hover { color: $c; }\n}\n.f { @mixin hover blue; }",
			want: ".f { &:hover { color: blue; } }",
		},
		{
			name: "mixin including another",
			in:   "@define-mixin pad { padding: 4px; }\n@define-mixin box { @mixin pad; margin: 0; }\n.g { @mixin box; }",
			want: ".g { padding: 4px; margin: 0; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandMixins(tt.in)
			if err != nil {
				t.Fatalf("ExpandMixins error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandMixins =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestExpandMixinsThenVars(t *testing.T) {
	src := "$brand: #1d4ed8;\n@define-mixin tint $alpha {\n  color: $brand;\n  opacity: $alpha;\n}\n.h { @mixin tint 0.5; }"

	out, err := ExpandMixins(src)
	if err != nil {
		t.Fatal(err)
	}
	out, err = ExpandVars(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "\n.h { color: #1d4ed8;\n  opacity: 0.5; }"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestExpandMixins_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"undefined mixin", ".a { @mixin nope; }", "undefined mixin nope"},
		{"used before definition", ".a { @mixin late; }\n@define-mixin late { color: red; }", "undefined mixin late"},
		{"missing argument", "@define-mixin m $a { color: $a; }\n.a { @mixin m; }", "missing argument $a"},
		{"too many arguments", "@define-mixin m $a { color: $a; }\n.a { @mixin m 1, 2; }", "takes 1 arguments, got 2"},
		{"unclosed definition", "@define-mixin m { color: red;", "not closed"},
		{"parameter without dollar", "@define-mixin m a { color: red; }", "must start with $"},
		{"recursive mixin", "@define-mixin loop { @mixin loop; }\n.a { @mixin loop; }", "nested more than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandMixins(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}
