package anchor_test

import (
	"errors"
	"testing"

	"vidpress/internal/anchor"
)

func TestResolveIgnoresCasePunctuationAndWhitespace(t *testing.T) {
	body := "Intro.\n\nNow,   WATCH this —   part carefully."
	r := anchor.NewResolver(body)

	m, err := r.Resolve("watch this part")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got := body[m.Start:m.End]; got != "WATCH this —   part" {
		t.Fatalf("unexpected match text %q", got)
	}
	if m.Text != body[m.Start:m.End] {
		t.Fatalf("match text mismatch: %q", m.Text)
	}
}

func TestResolveDuplicatesInDocumentOrder(t *testing.T) {
	body := "see the demo. later, see the demo again. and finally see the demo"
	r := anchor.NewResolver(body)

	var last = -1
	for i := 0; i < 3; i++ {
		m, err := r.Resolve("See the demo")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if m.Start <= last {
			t.Fatalf("offsets not strictly increasing: %d after %d", m.Start, last)
		}
		last = m.End - 1
	}
	if _, err := r.Resolve("see the demo"); !errors.Is(err, anchor.ErrUnresolved) {
		t.Fatalf("expected fourth lookup to be unresolved, got %v", err)
	}
	if r.Consumed() != 3 {
		t.Fatalf("expected 3 consumed matches, got %d", r.Consumed())
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	body := "alpha beta gamma. beta gamma delta. gamma."
	phrases := []string{"beta gamma", "beta gamma", "gamma"}

	run := func() []anchor.Match {
		r := anchor.NewResolver(body)
		out := make([]anchor.Match, 0, len(phrases))
		for _, p := range phrases {
			m, err := r.Resolve(p)
			if err != nil {
				t.Fatalf("resolve %q: %v", p, err)
			}
			out = append(out, m)
		}
		return out
	}
	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	// both earlier gammas are claimed, so the last one wins.
	if first[2].Start < first[1].End || body[first[2].Start:first[2].End] != "gamma." {
		t.Fatalf("expected the trailing gamma, got %+v", first[2])
	}
}

func TestResolveExtendsOverTrailingPunctuation(t *testing.T) {
	body := "它会自动截图。然后继续"
	r := anchor.NewResolver(body)
	m, err := r.Resolve("自动截图")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if body[m.End:] != "然后继续" {
		t.Fatalf("expected insertion point after the full stop, got %q", body[m.End:])
	}
}

func TestResolveFoldsCompatibilityForms(t *testing.T) {
	body := "Ｆｕｌｌｗｉｄｔｈ ＴＥＸＴ and cafe\u0301 talk"
	r := anchor.NewResolver(body)
	if _, err := r.Resolve("fullwidth text"); err != nil {
		t.Fatalf("expected NFKC match, got %v", err)
	}
	if _, err := r.Resolve("caf\u00e9 talk"); err != nil {
		t.Fatalf("expected composed/decomposed match, got %v", err)
	}
}

func TestResolveTreatsJoiningDashesAsWordBreaks(t *testing.T) {
	cases := []struct {
		name, body, phrase, want string
	}{
		{"hyphenated body", "A state-of-the-art demo today.", "state of the art demo", "state-of-the-art demo"},
		{"hyphenated anchor", "A state of the art demo today.", "state-of-the-art demo", "state of the art demo"},
		{"slash", "Use input/output streams.", "input output streams", "input/output streams."},
		{"en dash", "Pages 10–20 matter.", "10 20", "10–20"},
		{"cjk dash dropped", "这是最新—技术演示", "最新技术", "最新—技术"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := anchor.NewResolver(tc.body).Resolve(tc.phrase)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if got := tc.body[m.Start:m.End]; got != tc.want {
				t.Fatalf("unexpected match %q, want %q", got, tc.want)
			}
		})
	}
	if anchor.Contains("A state-of-the-art demo", "stateoftheart") {
		t.Fatal("joined words must not fold into one token")
	}
}

func TestResolveBlankAndMissing(t *testing.T) {
	r := anchor.NewResolver("some body text")
	for _, phrase := range []string{"", "   ", "!!!", "absent phrase"} {
		if _, err := r.Resolve(phrase); !errors.Is(err, anchor.ErrUnresolved) {
			t.Fatalf("expected unresolved for %q, got %v", phrase, err)
		}
	}
}

func TestContains(t *testing.T) {
	if !anchor.Contains("Hello, World!", "hello world") {
		t.Fatal("expected normalized containment")
	}
	if anchor.Contains("Hello", "") {
		t.Fatal("blank phrase must not match")
	}
}

func TestResolveWithinRestrictsRange(t *testing.T) {
	body := "intro mentions the demo. section two shows the demo."
	second := len("intro mentions the demo. ")
	r := anchor.NewResolver(body)

	m, err := r.ResolveWithin("the demo", second, len(body))
	if err != nil {
		t.Fatalf("ResolveWithin returned error: %v", err)
	}
	if m.Start < second || body[m.End-1] != '.' || m.End != len(body) {
		t.Fatalf("expected match inside the second sentence, got %+v", m)
	}
	if _, err := r.ResolveWithin("the demo", second, len(body)); !errors.Is(err, anchor.ErrUnresolved) {
		t.Fatalf("expected range to be exhausted, got %v", err)
	}
	if m, err := r.Resolve("the demo"); err != nil || m.Start >= second {
		t.Fatalf("expected the unrestricted lookup to find the first sentence, got %+v %v", m, err)
	}
}

func TestResolveWithinDoesNotExtendPastRange(t *testing.T) {
	body := "see here!! next"
	r := anchor.NewResolver(body)
	m, err := r.ResolveWithin("see here", 0, len("see here!"))
	if err != nil {
		t.Fatal(err)
	}
	if body[m.Start:m.End] != "see here!" {
		t.Fatalf("unexpected match %q", body[m.Start:m.End])
	}
}
