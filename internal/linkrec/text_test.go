package linkrec

import (
	"slices"
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<p>Nokia is based in <a href="./Espoo" title="Espoo">Espoo</a>, Finland.</p>
		<p>See <a href="/wiki/Mobile_phone#History">mobile phone history</a> and
		<a href="https://example.org">an external site</a>.</p>
		<table><tr><td>Infobox text</td></tr></table>
	</body></html>`

	got, err := extractText(html)
	if err != nil {
		t.Fatalf("extractText() error = %v", err)
	}

	if len(got.LinkedTargets) != 2 || !got.LinkedTargets["Espoo"] || !got.LinkedTargets["Mobile_phone"] {
		t.Errorf("linked targets = %v, want Espoo and Mobile_phone", got.LinkedTargets)
	}
	if got.LinkTokens != 1+3+3 {
		t.Errorf("link tokens = %d, want 7", got.LinkTokens)
	}
	for _, absent := range []string{"Infobox", "Espoo"} {
		if strings.Contains(got.Prose, absent) {
			t.Errorf("prose %q should not contain %q", got.Prose, absent)
		}
	}
	if !strings.Contains(got.Prose, "Finland") {
		t.Errorf("prose %q should contain Finland", got.Prose)
	}
}

func TestCandidatePhrases(t *testing.T) {
	t.Parallel()

	got := candidatePhrases("The history of mobile phones\nin Finland", 3, 100)

	tests := []struct {
		phrase string
		want   bool
	}{
		{phrase: "history", want: true},
		{phrase: "mobile phones", want: true},
		{phrase: "history of mobile", want: true},
		{phrase: "Finland", want: true},
		{phrase: "The history", want: false},
		{phrase: "phones in", want: false},
		{phrase: "phones in Finland", want: false},
	}

	for _, tt := range tests {
		if slices.Contains(got, tt.phrase) != tt.want {
			t.Errorf("phrase %q present = %v, want %v (phrases %v)", tt.phrase, !tt.want, tt.want, got)
		}
	}
}

func TestCandidatePhrases_Limit(t *testing.T) {
	t.Parallel()

	if got := candidatePhrases("alpha beta gamma delta epsilon", 3, 4); len(got) != 4 {
		t.Errorf("got %d phrases, want 4", len(got))
	}
}

func TestFolder_KeepsRuneAlignment(t *testing.T) {
	t.Parallel()

	f := newFolder()
	in := "Café Müller"
	out := f.fold(in)

	if string(out) != "cafe muller" {
		t.Errorf("fold(%q) = %q, want %q", in, string(out), "cafe muller")
	}
	if len(out) != len([]rune(in)) {
		t.Errorf("fold(%q) has %d runes, want %d", in, len(out), len([]rune(in)))
	}
}

func TestOccurrences_RespectsWordBoundaries(t *testing.T) {
	t.Parallel()

	hay := []rune("phone, telephone and phones; phone")
	if got := occurrences(hay, []rune("phone")); !slices.Equal(got, []int{0, 29}) {
		t.Errorf("occurrences = %v, want [0 29]", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	t.Parallel()

	if got := collapseSpace("  a \t b \n\n  c  "); got != "a b\nc" {
		t.Errorf("collapseSpace() = %q, want %q", got, "a b\nc")
	}
}
