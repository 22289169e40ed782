package approach

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

func TestParse(t *testing.T) {
	for _, a := range All() {
		got, err := Parse(a.Key())
		if err != nil {
			t.Fatalf("Parse(%q): %v", a.Key(), err)
		}
		if got != a {
			t.Errorf("Parse(%q) = %q", a.Key(), got)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("bm25")
	if !errors.Is(err, domain.ErrUnknownApproach) {
		t.Fatalf("expected ErrUnknownApproach, got %v", err)
	}
}

func TestPayloadFieldTable(t *testing.T) {
	tests := []struct {
		a                               Approach
		text, vector, filter, semantic bool
	}{
		{TextOnly, true, false, false, false},
		{VectorOnly, false, true, false, false},
		{Hybrid, true, true, false, false},
		{VectorWithFilter, false, true, true, false},
		{HybridSemanticRerank, true, true, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.a.Key(), func(t *testing.T) {
			if tc.a.UsesText() != tc.text {
				t.Errorf("UsesText = %v", tc.a.UsesText())
			}
			if tc.a.UsesVector() != tc.vector {
				t.Errorf("UsesVector = %v", tc.a.UsesVector())
			}
			if tc.a.UsesFilter() != tc.filter {
				t.Errorf("UsesFilter = %v", tc.a.UsesFilter())
			}
			if tc.a.UsesSemantic() != tc.semantic {
				t.Errorf("UsesSemantic = %v", tc.a.UsesSemantic())
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if VectorOnly.Label() != "Vectors Only" {
		t.Errorf("unexpected label %q", VectorOnly.Label())
	}
	if Approach("x").Label() != "x" {
		t.Errorf("unknown approach should fall back to key")
	}
}
