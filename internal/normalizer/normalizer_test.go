package normalizer

import (
	"errors"
	"testing"

	"github.com/dhollis/twinrag/pkg/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantText     string
		wantKeywords []string
		wantKind     types.Kind
	}{
		{
			name:         "lowercase and punctuation stripped",
			raw:          "Kafka Incident-Response!!",
			wantText:     "kafka incident response",
			wantKeywords: []string{"kafka", "incident", "response"},
		},
		{
			name:         "stopwords dropped and keywords deduped",
			raw:          "what is the Kafka Kafka setup",
			wantText:     "what is the kafka kafka setup",
			wantKeywords: []string{"kafka", "setup"},
		},
		{
			name:         "work history infers experience",
			raw:          "summarize your work history with distributed systems",
			wantText:     "summarize your work history with distributed systems",
			wantKeywords: []string{"summarize", "work", "history", "distributed", "systems"},
			wantKind:     types.KindExperience,
		},
		{
			name:         "education trigger",
			raw:          "where did you get your degree?",
			wantText:     "where did you get your degree",
			wantKeywords: []string{"get", "degree"},
			wantKind:     types.KindEducation,
		},
		{
			name:         "ambiguous triggers leave filter empty",
			raw:          "work history and skills",
			wantText:     "work history and skills",
			wantKeywords: []string{"work", "history", "skills"},
			wantKind:     "",
		},
		{
			name:         "no trigger leaves filter empty",
			raw:          "kubernetes migration",
			wantText:     "kubernetes migration",
			wantKeywords: []string{"kubernetes", "migration"},
			wantKind:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if qc.RawText != tt.raw {
				t.Errorf("RawText = %q, want %q", qc.RawText, tt.raw)
			}
			if qc.NormalizedText != tt.wantText {
				t.Errorf("NormalizedText = %q, want %q", qc.NormalizedText, tt.wantText)
			}
			if len(qc.Keywords) != len(tt.wantKeywords) {
				t.Fatalf("Keywords = %v, want %v", qc.Keywords, tt.wantKeywords)
			}
			for i, kw := range tt.wantKeywords {
				if qc.Keywords[i] != kw {
					t.Errorf("Keywords[%d] = %q, want %q", i, qc.Keywords[i], kw)
				}
			}
			if qc.KindFilter != tt.wantKind {
				t.Errorf("KindFilter = %q, want %q", qc.KindFilter, tt.wantKind)
			}
		})
	}
}

func TestNormalizeInvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n "},
		{"punctuation only", "?!... ---"},
		{"stopwords only", "what is the"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if !errors.Is(err, types.ErrInvalidQuery) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidQuery", tt.raw, err)
			}
		})
	}
}

func TestInferKindPhraseBoundaries(t *testing.T) {
	// "skills" must match as a whole word, not inside another token.
	if got := inferKind("upskilling plans"); got != "" {
		t.Errorf("inferKind(upskilling plans) = %q, want empty", got)
	}
	if got := inferKind("strongest skills today"); got != types.KindSkill {
		t.Errorf("inferKind(strongest skills today) = %q, want %q", got, types.KindSkill)
	}
}
