package samplemeta

import (
	"testing"

	"gopkg.in/guregu/null.v3"
)

func testRow(cells map[string]string) Row {
	row := Row{ID: "test", Cells: make(map[string]null.String)}
	for k, v := range cells {
		row.Cells[k] = null.StringFrom(v)
	}

	return row
}

func TestWhereMatch(t *testing.T) {
	tests := []struct {
		expr  string
		cells map[string]string
		want  bool
	}{
		{"a = 'x'", map[string]string{"a": "x"}, true},
		{"a = 'x'", map[string]string{"a": "y"}, false},
		{"a = 'x'", map[string]string{}, false},
		{"a != 'x'", map[string]string{"a": "y"}, true},
		{"a != 'x'", map[string]string{}, false},
		{"a <> 'x'", map[string]string{"a": "y"}, true},

		// When both sides parse as numbers the comparison is numeric, so
		// "10" sorts after "2" rather than before it.
		{"t > 2", map[string]string{"t": "10"}, true},
		{"t <= 2", map[string]string{"t": "10"}, false},
		{"t >= 7.0", map[string]string{"t": "7"}, true},
		{"a > 'b'", map[string]string{"a": "c"}, true},
		{"a < 'b'", map[string]string{"a": "c"}, false},

		{"a IN ('x', 'y')", map[string]string{"a": "y"}, true},
		{"a IN ('x', 'y')", map[string]string{"a": "z"}, false},
		{"a IN ('x')", map[string]string{}, false},
		{"a NOT IN ('x', 'y')", map[string]string{"a": "z"}, true},
		{"a NOT IN ('x', 'y')", map[string]string{}, false},
		{"t IN (0, 7)", map[string]string{"t": "7.0"}, true},

		{"a IS NULL", map[string]string{}, true},
		{"a IS NULL", map[string]string{"a": "x"}, false},
		{"a IS NOT NULL", map[string]string{"a": "x"}, true},
		{"a = NULL", map[string]string{"a": "x"}, false},

		{"a = 'x' AND b = 'y'", map[string]string{"a": "x", "b": "y"}, true},
		{"a = 'x' AND b = 'y'", map[string]string{"a": "x", "b": "z"}, false},
		{"a = 'x' OR b = 'y'", map[string]string{"b": "y"}, true},
		{"NOT a = 'x'", map[string]string{"a": "y"}, true},

		// NOT of an unknown comparison stays unknown, so the row does not
		// match even though the inner comparison also failed to match.
		{"NOT a = 'x'", map[string]string{}, false},

		// AND binds tighter than OR.
		{"a = 'x' OR a = 'y' AND b = 'z'", map[string]string{"a": "x", "b": "q"}, true},
		{"(a = 'x' OR a = 'y') AND b = 'z'", map[string]string{"a": "x", "b": "q"}, false},

		{"[column with spaces] = 'x'", map[string]string{"column with spaces": "x"}, true},
		{"\"quoted\" = 3", map[string]string{"quoted": "3.0"}, true},
		{"a = 'it''s'", map[string]string{"a": "it's"}, true},
		{"a in ('x') and a is not null", map[string]string{"a": "x"}, true},
	}

	for _, test := range tests {
		pred, err := Compile(test.expr)
		if err != nil {
			t.Errorf("Compile(%q): %v", test.expr, err)
			continue
		}

		if got := pred.Match(testRow(test.cells)); got != test.want {
			t.Errorf("Match(%q) against %v: expected %v, got %v", test.expr, test.cells, test.want, got)
		}
	}
}

func TestWhereCompileErrors(t *testing.T) {
	exprs := []string{
		"",
		"a = ",
		"a = 'unterminated",
		"[unterminated = 'x'",
		"a ! 'x'",
		"a = 'x' extra",
		"AND = 'x'",
		"a IN ()",
		"a IN ('x' 'y')",
		"a IS 'x'",
		"a = 1.2.3",
		"a # 'x'",
	}

	for _, expr := range exprs {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q): expected an error", expr)
		}
	}
}

func TestWhereColumns(t *testing.T) {
	pred, err := Compile("a = 'x' AND [b c] < 2 OR a IS NULL")
	if err != nil {
		t.Fatal(err)
	}

	cols := pred.Columns()
	if len(cols) != 2 || cols[0] != "a" || cols[1] != "b c" {
		t.Errorf("Expected columns [a, b c], got %v", cols)
	}
}
