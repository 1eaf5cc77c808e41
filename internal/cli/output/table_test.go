package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, f *TableFormatter, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	return buf.String()
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

type swatch struct{ colors []string }

func (s swatch) Table(wide bool) *Table {
	t := &Table{Headers: []string{"COLOR"}}
	for _, c := range s.colors {
		t.AddRow(c)
	}
	if wide {
		t.Headers = append(t.Headers, "N")
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], "1")
		}
	}
	return t
}

func TestTableFormatter_Tabular(t *testing.T) {
	got := render(t, &TableFormatter{}, swatch{colors: []string{"#000000", "#ffffff"}})
	if want := "COLOR\n#000000\n#ffffff\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = render(t, &TableFormatter{Wide: true, NoHeaders: true}, swatch{colors: []string{"#000000"}})
	if want := "#000000  1\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	closed := time.Date(2024, 4, 2, 0, 1, 0, 0, time.UTC)
	rows := []archiveRow{
		{EpochNumber: 1, CellCount: 10, ClosedAt: closed, Ref: "archive/1"},
		{EpochNumber: 2, CellCount: 0},
	}

	got := lines(render(t, &TableFormatter{}, rows))
	if len(got) != 3 {
		t.Fatalf("got %d lines:\n%s", len(got), strings.Join(got, "\n"))
	}
	if fields := strings.Fields(got[0]); !reflect.DeepEqual(fields, []string{"EPOCH_NUMBER", "CELL_COUNT", "CLOSED_AT"}) {
		t.Errorf("headers = %v", fields)
	}
	if fields := strings.Fields(got[1]); !reflect.DeepEqual(fields, []string{"1", "10", "2024-04-02T00:01:00Z"}) {
		t.Errorf("row = %v", fields)
	}
	if fields := strings.Fields(got[2]); fields[2] != "-" {
		t.Errorf("zero time should render as -, got %v", fields)
	}

	wide := lines(render(t, &TableFormatter{Wide: true}, rows))
	if !strings.Contains(wide[0], "REF") || !strings.Contains(wide[1], "archive/1") {
		t.Errorf("wide output missing ref column:\n%s", strings.Join(wide, "\n"))
	}
}

func TestTableFormatter_PointerSliceAndEmbedded(t *testing.T) {
	type Pos struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	type row struct {
		Pos
		Color  string `json:"color"`
		hidden int
		Skip   string `table:"-"`
	}
	_ = row{}.hidden

	got := lines(render(t, &TableFormatter{}, []*row{{Pos: Pos{1, 2}, Color: "#abcdef"}}))
	if fields := strings.Fields(got[0]); !reflect.DeepEqual(fields, []string{"X", "Y", "COLOR"}) {
		t.Errorf("headers = %v", fields)
	}
	if fields := strings.Fields(got[1]); !reflect.DeepEqual(fields, []string{"1", "2", "#abcdef"}) {
		t.Errorf("row = %v", fields)
	}
}

func TestTableFormatter_Scalars(t *testing.T) {
	got := render(t, &TableFormatter{}, []string{"0xabc", "0xdef"})
	if want := "VALUE\n0xabc\n0xdef\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTableFormatter_MapSorted(t *testing.T) {
	got := lines(render(t, &TableFormatter{}, map[string]int{"b": 2, "a": 1, "c": 3}))
	want := []string{"KEY", "a", "b", "c"}
	for i, line := range got {
		if !strings.HasPrefix(line, want[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, line, want[i])
		}
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	got := render(t, &TableFormatter{}, &archiveRow{EpochNumber: 5, Ref: "r"})
	for _, want := range []string{"FIELD", "epoch_number  5", "ref           r"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestTableFormatter_NilAndFallback(t *testing.T) {
	if got := render(t, &TableFormatter{}, nil); got != "" {
		t.Errorf("nil rendered %q", got)
	}
	if got := render(t, &TableFormatter{}, 42); strings.TrimSpace(got) != "42" {
		t.Errorf("scalar fallback = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	s := "x"
	var nilPtr *string
	tests := []struct {
		in   any
		want string
	}{
		{"", "-"},
		{"hi", "hi"},
		{int64(-3), "-3"},
		{uint8(7), "7"},
		{1.5, "1.50"},
		{true, "true"},
		{[]string{"a", "b"}, "a,b"},
		{[]string{"a", "b", "c", "d"}, "[4 items]"},
		{[]int{}, "-"},
		{map[string]int{"a": 1}, "{1 keys}"},
		{90 * time.Second, "1m30s"},
		{&s, "x"},
		{nilPtr, "-"},
		{struct {
			A int `json:"a"`
		}{1}, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := formatValue(reflect.ValueOf(tt.in)); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := formatValue(reflect.Value{}); got != "-" {
		t.Errorf("invalid value = %q", got)
	}
}

func TestToSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"EpochNumber": "epoch_number",
		"X":           "x",
		"cellCount":   "cell_count",
	} {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
