package catalog

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	"pagebuilder/internal/validate"
)

func TestBuiltinRegistersEveryKind(t *testing.T) {
	r := Builtin()

	kinds := AllKinds()
	slices.Sort(kinds)
	if !slices.Equal(kinds, r.Kinds()) {
		t.Errorf("AllKinds and registry disagree:\n  kinds:    %v\n  registry: %v", kinds, r.Kinds())
	}
	for _, k := range AllKinds() {
		e, ok := r.Lookup(string(k))
		if !ok {
			t.Fatalf("kind %q not registered", k)
		}
		if e.Label == "" || e.DefaultContent == nil {
			t.Errorf("kind %q needs a label and default content", k)
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Entry{Kind: KindHeading})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(Entry{Kind: KindHeading})
}

func TestRegisterUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when registering KindUnknown")
		}
	}()
	NewRegistry().Register(Entry{Kind: KindUnknown})
}

func TestParseKind(t *testing.T) {
	if ParseKind("quiz-true-false") != KindQuizTrueFalse {
		t.Error("expected known kind")
	}
	if ParseKind("hologram") != KindUnknown {
		t.Error("expected unknown kind")
	}
}

func TestDefaultContent_FreshCopies(t *testing.T) {
	r := Builtin()

	a := r.DefaultContent("quiz-single-choice")
	alts := a["alternatives"].([]map[string]any)
	alts[0]["text"] = "changed"

	b := r.DefaultContent("quiz-single-choice")
	if b["alternatives"].([]map[string]any)[0]["text"] != "Alternativa A" {
		t.Error("default content leaked a mutation")
	}
	if r.DefaultContent("hologram") != nil {
		t.Error("unknown types have no default content")
	}
}

func TestEngineUsesCatalogDefaults(t *testing.T) {
	ids := idgen.NewSequence("t")
	e := engine.New(ids, Builtin())
	p := domain.DefaultPage(ids.NewID)

	p = e.AddBlock(p, p.Rows[0].ID, p.Rows[0].Columns[0].ID, "heading", "")

	got, _ := json.Marshal(p.Rows[0].Columns[0].Blocks[0].Content)
	want := `{"alignment":"left","level":2,"maxChars":100,"text":"Novo Título"}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestValidatePage_EmptyImage(t *testing.T) {
	ids := idgen.NewSequence("t")
	p := domain.DefaultPage(ids.NewID)
	row, col := p.Rows[0], p.Rows[0].Columns[0]
	p.Rows[0].Columns[0].Blocks = []domain.Block{{
		ID: "img", Type: "image", Content: map[string]any{"src": "", "alt": ""},
	}}

	errs := validate.ValidatePage(Builtin(), p)

	prefix := row.ID + "-" + col.ID + "-img-"
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Field != prefix+"content.src" || errs[1].Field != prefix+"content.alt" {
		t.Errorf("unexpected fields %q, %q", errs[0].Field, errs[1].Field)
	}
}

// decoded round-trips content through JSON so checks see the shapes a
// stored page has.
func decoded(t *testing.T, content map[string]any) map[string]any {
	t.Helper()
	data, err := json.Marshal(content)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestStructuralChecks(t *testing.T) {
	r := Builtin()
	tests := []struct {
		name    string
		kind    Kind
		content map[string]any
		want    []string
	}{
		{"heading ok", KindHeading, map[string]any{"level": 2, "text": "Olá", "maxChars": 100}, nil},
		{"heading level", KindHeading, map[string]any{"level": 7, "text": "Olá"}, []string{"content.level"}},
		{"heading too long", KindHeading, map[string]any{"level": 1, "text": "abcdef", "maxChars": 5}, []string{"content.text"}},
		{"text ok", KindText, map[string]any{"html": "<p>Olá <b>mundo</b></p>"}, nil},
		{"text blank markup", KindText, map[string]any{"html": "<p> </p><p><br></p>"}, []string{"content.html"}},
		{"text image only", KindText, map[string]any{"html": `<p><img src="a.png"></p>`}, nil},
		{"text empty link", KindText, map[string]any{"html": `<p><a href="">aqui</a></p>`}, []string{"content.html"}},
		{"markdown ok", KindMarkdown, map[string]any{"source": "# Oi\n\n[site](https://example.com)"}, nil},
		{"markdown empty link", KindMarkdown, map[string]any{"source": "veja [isto]()"}, []string{"content.source"}},
		{"image ok", KindImage, map[string]any{"src": "a.png", "alt": "A", "width": "50%"}, nil},
		{"image bad width", KindImage, map[string]any{"src": "a.png", "alt": "A", "width": "wide"}, []string{"content.width"}},
		{"video scheme", KindVideo, map[string]any{"url": "ftp://x", "provider": "youtube"}, []string{"content.url"}},
		{"button missing href", KindButton, map[string]any{"label": "Ir", "variant": "primary"}, []string{"content.href"}},
		{"list empty", KindList, map[string]any{"items": []any{}}, []string{"content.items"}},
		{"list blank item", KindList, map[string]any{"items": []any{"a", " "}}, []string{"content.items.1"}},
		{"single choice ok", KindQuizSingleChoice, map[string]any{
			"question":     "?",
			"alternatives": []any{map[string]any{"text": "a", "correct": true}, map[string]any{"text": "b"}},
		}, nil},
		{"single choice two correct", KindQuizSingleChoice, map[string]any{
			"question":     "?",
			"alternatives": []any{map[string]any{"text": "a", "correct": true}, map[string]any{"text": "b", "correct": true}},
		}, []string{"content.alternatives"}},
		{"single choice none correct", KindQuizSingleChoice, map[string]any{
			"question":     "?",
			"alternatives": []any{map[string]any{"text": "a"}, map[string]any{"text": "b"}},
		}, []string{"content.alternatives"}},
		{"multiple choice too few", KindQuizMultipleChoice, map[string]any{
			"question":     "?",
			"alternatives": []any{map[string]any{"text": "a", "correct": true}},
		}, []string{"content.alternatives"}},
		{"multiple choice blank alternative", KindQuizMultipleChoice, map[string]any{
			"question":     "?",
			"alternatives": []any{map[string]any{"text": "a", "correct": true}, map[string]any{"text": ""}},
		}, []string{"content.alternatives.1.text"}},
		{"true false not bool", KindQuizTrueFalse, map[string]any{"statement": "s", "answer": "sim"}, []string{"content.answer"}},
		{"carousel missing src", KindCarousel, map[string]any{"slides": []any{map[string]any{"src": ""}}}, []string{"content.slides.0.src"}},
		{"carousel empty", KindCarousel, map[string]any{"slides": []any{}}, []string{"content.slides"}},
		{"tabs one", KindTabs, map[string]any{"tabs": []any{map[string]any{"title": "A"}}}, []string{"content.tabs"}},
		{"tabs untitled", KindTabs, map[string]any{"tabs": []any{map[string]any{"title": "A"}, map[string]any{"title": ""}}}, []string{"content.tabs.1.title"}},
		{"accordion empty", KindAccordion, map[string]any{"items": []any{}}, []string{"content.items"}},
		{"table ok", KindTable, map[string]any{"headers": []any{"a", "b"}, "rows": []any{[]any{"1", "2"}}}, nil},
		{"table ragged", KindTable, map[string]any{"headers": []any{"a", "b"}, "rows": []any{[]any{"1"}}}, []string{"content.rows.0"}},
		{"table empty", KindTable, map[string]any{"headers": []any{}, "rows": []any{}}, []string{"content.headers", "content.rows"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := domain.Block{ID: "b", Type: string(tt.kind), Content: decoded(t, tt.content)}

			var got []string
			for _, e := range validate.ValidateBlock(r, b) {
				got = append(got, e.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStructuralChecks_DefaultShapes(t *testing.T) {
	r := Builtin()
	for _, k := range []Kind{KindQuizSingleChoice, KindTabs, KindAccordion, KindList} {
		b := domain.Block{ID: "b", Type: string(k), Content: r.DefaultContent(string(k))}
		spec, _ := r.Spec(string(k))
		if errs := spec.Check(b); len(errs) != 0 {
			t.Errorf("%s defaults should pass the structural check, got %v", k, errs)
		}
	}
	table := domain.Block{ID: "t", Type: string(KindTable), Content: r.DefaultContent(string(KindTable))}
	if errs := checkTable(table); len(errs) != 0 {
		t.Errorf("table defaults should pass, got %v", errs)
	}
}

func TestList(t *testing.T) {
	list := Builtin().List()

	if len(list) != len(AllKinds()) {
		t.Fatalf("expected %d entries, got %d", len(AllKinds()), len(list))
	}
	if list[0].Type != string(KindHeading) || list[0].DefaultContent["text"] != "Novo Título" {
		t.Errorf("unexpected first entry %+v", list[0])
	}
}
