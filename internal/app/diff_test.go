package app

import (
	"testing"

	"seminargo/internal/domain"
)

func TestChanged_JSON(t *testing.T) {
	cases := []struct {
		name     string
		old, new string
		want     bool
	}{
		{"key order washes out", `{"a":1,"b":2}`, `{"b":2,"a":1}`, false},
		{"unicode escape washes out", `{"name":"caf\u00e9"}`, `{"name":"café"}`, false},
		{"empty vs null", ``, `null`, false},
		{"whitespace only", `  `, ``, false},
		{"real change", `{"a":1}`, `{"a":2}`, true},
		{"empty vs object", ``, `{"a":1}`, true},
		{"invalid compared verbatim", `{not json`, `{not json`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Changed(domain.KindJSON, tc.old, tc.new); got != tc.want {
				t.Fatalf("Changed(%q, %q) = %v, want %v", tc.old, tc.new, got, tc.want)
			}
		})
	}
}

func TestChanged_Float(t *testing.T) {
	if Changed(domain.KindFloat, 7.5000001, 7.5) {
		t.Fatal("sub-microdegree drift must not count as a change")
	}
	if !Changed(domain.KindFloat, 7.5, 8.2) {
		t.Fatal("expected change")
	}
	// DB hands floats back as strings
	if Changed(domain.KindFloat, "48.137154", 48.137154) {
		t.Fatal("string/float representations of the same value must match")
	}
}

func TestChanged_String(t *testing.T) {
	if Changed(domain.KindString, "  Hotel Alpenblick ", "Hotel Alpenblick") {
		t.Fatal("surrounding whitespace must not count")
	}
	if Changed(domain.KindString, nil, "") {
		t.Fatal("nil and empty must match")
	}
	if !Changed(domain.KindString, "Hotel A", "Hotel B") {
		t.Fatal("expected change")
	}
}

func TestDiffRecords(t *testing.T) {
	oldRec := domain.HotelRecord{
		ExternalID: "42", Title: "Hotel Alpenblick", Rating: 7.5,
		Texts: []byte(`{"description":{"language":"de","details":"alt"}}`),
	}
	newRec := oldRec
	newRec.Rating = 8.2
	newRec.Title = "Hotel Alpenblick Superior"

	changes := DiffRecords(oldRec, newRec)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}
	// deterministic field order: rating sorts before title
	if changes[0].Field != "rating" || changes[1].Field != "title" {
		t.Fatalf("unexpected order: %+v", changes)
	}
	if changes[0].Old != "7.5" || changes[0].New != "8.2" {
		t.Fatalf("rating change rendered as %q -> %q", changes[0].Old, changes[0].New)
	}

	if got := DiffRecords(oldRec, oldRec); len(got) != 0 {
		t.Fatalf("identical records must not diff: %+v", got)
	}
}

func TestChangedColumns(t *testing.T) {
	newRec := domain.HotelRecord{Rating: 8.2, Title: "Neu"}
	cols := ChangedColumns([]domain.FieldChange{{Field: "rating"}, {Field: "title"}}, newRec)
	if len(cols) != 2 {
		t.Fatalf("cols: %+v", cols)
	}
	if cols["rating"] != 8.2 || cols["title"] != "Neu" {
		t.Fatalf("cols carry wrong values: %+v", cols)
	}
}
