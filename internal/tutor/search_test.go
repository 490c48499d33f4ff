package tutor

import (
	"reflect"
	"testing"
)

func newtonCatalog() *Catalog {
	return NewCatalog([]Video{
		{
			ID:       "video_001",
			Title:    "Hukum Newton",
			Topics:   []string{"gaya", "gerak"},
			Keywords: []string{"f=ma", "inersia"},
		},
		{
			ID:       "video_002",
			Title:    "Energi Kinetik",
			Topics:   []string{"energi", "usaha"},
			Keywords: []string{"gerak benda"},
		},
		{
			ID:     "video_003",
			Title:  "Gaya Gesek",
			Topics: []string{"gaya", "gesekan"},
		},
	})
}

func ids(results []SearchResult) []VideoID {
	out := make([]VideoID, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_empty_query(t *testing.T) {
	c := newtonCatalog()
	for _, q := range []string{"", "   ", "\t\n"} {
		if got := Search(c, q); len(got) != 0 {
			t.Errorf("Search(%q) = %d results, want none", q, len(got))
		}
	}
}

func TestSearch_empty_catalog(t *testing.T) {
	if got := Search(NewCatalog(nil), "gaya"); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
	var nilCatalog *Catalog
	if got := Search(nilCatalog, "gaya"); len(got) != 0 {
		t.Errorf("nil catalog: expected no results, got %d", len(got))
	}
}

func TestSearch_title_match(t *testing.T) {
	c := NewCatalog([]Video{{ID: "v", Title: "Hukum Newton", Topics: []string{"gaya", "gerak"}}})

	got := Search(c, "newton")
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	// phrase 20 + title 15
	if got[0].Score != 35 {
		t.Errorf("score = %d, want 35", got[0].Score)
	}

	if got := Search(c, "xyz123"); len(got) != 0 {
		t.Errorf("xyz123: expected no results, got %+v", got)
	}
}

func TestSearch_scoring(t *testing.T) {
	tests := []struct {
		name  string
		video Video
		query string
		want  int
	}{
		{
			name:  "topic and keyword",
			video: Video{Topics: []string{"gaya"}, Keywords: []string{"gaya dorong"}},
			query: "gaya",
			want:  20 + 10 + 8,
		},
		{
			name:  "prefix bonus",
			video: Video{Title: "Hukum Newton"},
			query: "new",
			want:  20 + 15 + 3,
		},
		{
			name:  "prefix bonus counted per occurrence",
			video: Video{Title: "x", Topics: []string{"newtonian"}, Keywords: []string{"newtonian"}},
			query: "newton",
			want:  20 + 10 + 8 + 3 + 3,
		},
		{
			name:  "one-rune words ignored",
			video: Video{Topics: []string{"gaya"}},
			query: "a gaya",
			want:  10,
		},
		{
			name:  "substring inside a word",
			video: Video{Topics: []string{"percepatan"}},
			query: "cepat",
			want:  20 + 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.video.ID = "v"
			got := Search(NewCatalog([]Video{tt.video}), tt.query)
			if len(got) != 1 {
				t.Fatalf("expected 1 result, got %d", len(got))
			}
			if got[0].Score != tt.want {
				t.Errorf("score = %d, want %d", got[0].Score, tt.want)
			}
		})
	}
}

func TestSearch_positive_scores_only(t *testing.T) {
	c := newtonCatalog()
	for _, q := range []string{"gaya", "gerak", "energi", "zzz", "hukum gaya"} {
		for _, r := range Search(c, q) {
			if r.Score < 1 {
				t.Errorf("Search(%q): %s has score %d", q, r.ID, r.Score)
			}
		}
	}
}

func TestSearch_sorted_and_stable(t *testing.T) {
	c := NewCatalog([]Video{
		{ID: "a", Topics: []string{"gaya"}},
		{ID: "b", Title: "Gaya", Topics: []string{"gaya"}},
		{ID: "c", Topics: []string{"gaya"}},
	})

	got := Search(c, "gaya")
	want := []VideoID{"b", "a", "c"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Errorf("results not sorted at %d: %d < %d", i, got[i-1].Score, got[i].Score)
		}
	}
}

func TestSearch_case_insensitive(t *testing.T) {
	c := newtonCatalog()
	lower := Search(c, "gaya gesek")
	upper := Search(c, "GAYA GESEK")
	if !reflect.DeepEqual(lower, upper) {
		t.Errorf("case changed results:\n lower %+v\n upper %+v", lower, upper)
	}
	if len(lower) == 0 || lower[0].ID != "video_003" {
		t.Errorf("expected video_003 first, got %v", ids(lower))
	}
}

func TestSearch_idempotent(t *testing.T) {
	c := newtonCatalog()
	first := Search(c, "gerak")
	second := Search(c, "gerak")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated search differs: %v vs %v", ids(first), ids(second))
	}
}
