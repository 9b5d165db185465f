package lang

import "testing"

func TestNormalize_PersianFixes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"arabic yeh to persian", "علي", "علی"},
		{"arabic kaf to persian", "كتاب", "کتاب"},
		{"plural suffix joined", "کتاب ها", "کتاب‌ها"},
		{"plural ezafe suffix", "کتاب های خوب", "کتاب‌های خوب"},
		{"comparative suffix", "بزرگ تر است", "بزرگ‌تر است"},
		{"verbal prefix", "او می رود", "او می‌رود"},
		{"negated verbal prefix", "او نمی داند", "او نمی‌داند"},
		{"glued punctuation", "سلام.چطوری", "سلام. چطوری"},
		{"glued question mark", "چرا؟چون", "چرا؟ چون"},
		{"space run collapsed", "سلام   دنیا", "سلام دنیا"},
		{"decimal untouched", "حدود 3.5 ساعت", "حدود 3.5 ساعت"},
		{"url untouched", "به example.com برو", "به example.com برو"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in, Persian); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_ArabicSpacingOnly(t *testing.T) {
	got := Normalize("مرحبا.كيف  حالك", Arabic)
	want := "مرحبا. كيف حالك"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	// Arabic keeps its own letters.
	if Normalize("كتاب", Arabic) != "كتاب" {
		t.Fatal("arabic kaf must not be rewritten for ar")
	}
}

func TestNormalize_NoopLanguages(t *testing.T) {
	for _, c := range []Code{English, Hebrew} {
		in := "hello   world.next"
		if got := Normalize(in, c); got != in {
			t.Fatalf("Normalize(%q, %s) = %q, want unchanged", in, c, got)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"او می رود و کتاب های بزرگ تر را نمی خواند.حتما",
		"مرحبا.كيف  حالك؟",
		"plain english text. stays",
		"שלום  עולם",
		"مجھے دانت میں درد ہے",
		"",
	}
	for _, in := range inputs {
		for _, c := range Supported() {
			once := Normalize(in, c)
			twice := Normalize(once, c)
			if once != twice {
				t.Fatalf("not idempotent for %s: %q -> %q -> %q", c, in, once, twice)
			}
		}
	}
}
