package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/validate"
)

const (
	categoryText   = "texto"
	categoryMedia  = "mídia"
	categoryAction = "ação"
	categoryLayout = "layout"
	categoryQuiz   = "quiz"
)

// Builtin returns a registry holding every kind in AllKinds.
func Builtin() *Registry {
	r := NewRegistry()
	for _, e := range builtinEntries() {
		r.Register(e)
	}
	return r
}

func defaults(m map[string]any) func() map[string]any {
	return func() map[string]any { return domain.CloneContent(m) }
}

func builtinEntries() []Entry {
	return []Entry{
		{
			Kind:     KindHeading,
			Label:    "Título",
			Category: categoryText,
			DefaultContent: defaults(map[string]any{
				"level": 2, "text": "Novo Título", "maxChars": 100, "alignment": "left",
			}),
			Rules: []validate.Rule{
				{Field: "content.text", Kind: validate.Required, Message: "O texto do título é obrigatório"},
				{Field: "content.alignment", Kind: validate.Pattern, Param: `^(left|center|right)$`, Message: "Alinhamento inválido"},
			},
			Check: checkHeading,
		},
		{
			Kind:           KindText,
			Label:          "Texto",
			Category:       categoryText,
			DefaultContent: defaults(map[string]any{"html": "<p>Digite seu texto aqui</p>"}),
			Rules: []validate.Rule{
				{Field: "content.html", Kind: validate.Required, Message: "O texto é obrigatório"},
			},
			Check: checkText,
		},
		{
			Kind:           KindMarkdown,
			Label:          "Markdown",
			Category:       categoryText,
			DefaultContent: defaults(map[string]any{"source": "## Título\n\nEscreva em **markdown**."}),
			Rules: []validate.Rule{
				{Field: "content.source", Kind: validate.Required, Message: "O conteúdo markdown é obrigatório"},
			},
			Check: checkMarkdown,
		},
		{
			Kind:     KindImage,
			Label:    "Imagem",
			Category: categoryMedia,
			DefaultContent: defaults(map[string]any{
				"src": "", "alt": "", "caption": "", "width": "100%",
			}),
			Rules: []validate.Rule{
				{Field: "content.src", Kind: validate.Required, Message: "A URL da imagem é obrigatória"},
				{Field: "content.alt", Kind: validate.Required, Message: "O texto alternativo é obrigatório"},
				{Field: "content.width", Kind: validate.Pattern, Param: cssLength, Message: "Largura inválida"},
			},
		},
		{
			Kind:     KindVideo,
			Label:    "Vídeo",
			Category: categoryMedia,
			DefaultContent: defaults(map[string]any{
				"url": "", "provider": "youtube", "autoplay": false, "controls": true,
			}),
			Rules: []validate.Rule{
				{Field: "content.url", Kind: validate.Required, Message: "A URL do vídeo é obrigatória"},
				{Field: "content.url", Kind: validate.Pattern, Param: `^https?://`, Message: "A URL do vídeo deve começar com http:// ou https://"},
				{Field: "content.provider", Kind: validate.Pattern, Param: `^(youtube|vimeo|file)$`, Message: "Provedor de vídeo inválido"},
			},
		},
		{
			Kind:     KindButton,
			Label:    "Botão",
			Category: categoryAction,
			DefaultContent: defaults(map[string]any{
				"label": "Clique aqui", "href": "", "variant": "primary", "target": "_self",
			}),
			Rules: []validate.Rule{
				{Field: "content.label", Kind: validate.Required, Message: "O texto do botão é obrigatório"},
				{Field: "content.label", Kind: validate.MaxLength, Param: 50, Message: "O texto do botão deve ter no máximo 50 caracteres"},
				{Field: "content.href", Kind: validate.Required, Message: "O link do botão é obrigatório"},
				{Field: "content.variant", Kind: validate.Pattern, Param: `^(primary|secondary|outline|link)$`, Message: "Variante inválida"},
				{Field: "content.target", Kind: validate.Pattern, Param: `^(_self|_blank)$`, Message: "Destino inválido"},
			},
		},
		{
			Kind:           KindQuote,
			Label:          "Citação",
			Category:       categoryText,
			DefaultContent: defaults(map[string]any{"text": "", "author": ""}),
			Rules: []validate.Rule{
				{Field: "content.text", Kind: validate.Required, Message: "O texto da citação é obrigatório"},
			},
		},
		{
			Kind:           KindList,
			Label:          "Lista",
			Category:       categoryText,
			DefaultContent: defaults(map[string]any{"ordered": false, "items": []string{"Item 1"}}),
			Check:          checkList,
		},
		{
			Kind:           KindCode,
			Label:          "Código",
			Category:       categoryText,
			DefaultContent: defaults(map[string]any{"language": "javascript", "code": ""}),
			Rules: []validate.Rule{
				{Field: "content.code", Kind: validate.Required, Message: "O código é obrigatório"},
			},
		},
		{
			Kind:           KindDivider,
			Label:          "Divisor",
			Category:       categoryLayout,
			DefaultContent: defaults(map[string]any{"style": "solid", "thickness": 1, "color": "#e5e7eb"}),
			Rules: []validate.Rule{
				{Field: "content.style", Kind: validate.Pattern, Param: `^(solid|dashed|dotted)$`, Message: "Estilo de divisor inválido"},
			},
		},
		{
			Kind:           KindSpacer,
			Label:          "Espaçador",
			Category:       categoryLayout,
			DefaultContent: defaults(map[string]any{"height": "32px"}),
			Rules: []validate.Rule{
				{Field: "content.height", Kind: validate.Required, Message: "A altura é obrigatória"},
				{Field: "content.height", Kind: validate.Pattern, Param: cssLength, Message: "Altura inválida"},
			},
		},
		{
			Kind:     KindQuizSingleChoice,
			Label:    "Quiz (escolha única)",
			Category: categoryQuiz,
			DefaultContent: defaults(map[string]any{
				"question":     "",
				"alternatives": defaultAlternatives(),
				"explanation":  "",
			}),
			Rules: []validate.Rule{questionRequired},
			Check: checkSingleChoice,
		},
		{
			Kind:     KindQuizMultipleChoice,
			Label:    "Quiz (múltipla escolha)",
			Category: categoryQuiz,
			DefaultContent: defaults(map[string]any{
				"question":     "",
				"alternatives": defaultAlternatives(),
				"explanation":  "",
			}),
			Rules: []validate.Rule{questionRequired},
			Check: checkMultipleChoice,
		},
		{
			Kind:           KindQuizTrueFalse,
			Label:          "Quiz (verdadeiro ou falso)",
			Category:       categoryQuiz,
			DefaultContent: defaults(map[string]any{"statement": "", "answer": true, "explanation": ""}),
			Rules: []validate.Rule{
				{Field: "content.statement", Kind: validate.Required, Message: "A afirmação é obrigatória"},
				{Field: "content.answer", Kind: validate.Custom, Message: "A resposta deve ser verdadeiro ou falso", Custom: isBool},
			},
		},
		{
			Kind:     KindCarousel,
			Label:    "Carrossel",
			Category: categoryMedia,
			DefaultContent: defaults(map[string]any{
				"slides":   []map[string]any{{"src": "", "alt": "", "caption": ""}},
				"autoplay": true,
				"interval": 5000,
			}),
			Check: checkCarousel,
		},
		{
			Kind:     KindTabs,
			Label:    "Abas",
			Category: categoryLayout,
			DefaultContent: defaults(map[string]any{
				"tabs": []map[string]any{
					{"title": "Aba 1", "content": ""},
					{"title": "Aba 2", "content": ""},
				},
			}),
			Check: checkTabs,
		},
		{
			Kind:     KindAccordion,
			Label:    "Acordeão",
			Category: categoryLayout,
			DefaultContent: defaults(map[string]any{
				"items":         []map[string]any{{"title": "Item 1", "content": ""}},
				"allowMultiple": false,
			}),
			Check: checkAccordion,
		},
		{
			Kind:     KindTable,
			Label:    "Tabela",
			Category: categoryText,
			DefaultContent: defaults(map[string]any{
				"headers": []string{"Coluna 1", "Coluna 2"},
				"rows":    [][]string{{"", ""}},
				"striped": true,
			}),
			Check: checkTable,
		},
	}
}

const cssLength = `^\d+(\.\d+)?(%|px|rem|em|vh|vw)$`

var questionRequired = validate.Rule{
	Field: "content.question", Kind: validate.Required, Message: "A pergunta é obrigatória",
}

func defaultAlternatives() []map[string]any {
	return []map[string]any{
		{"id": "a", "text": "Alternativa A", "correct": true},
		{"id": "b", "text": "Alternativa B", "correct": false},
	}
}

func isBool(v gjson.Result) bool {
	return v.Type == gjson.True || v.Type == gjson.False
}

// ── structural checks ─────────────────────────────────────

// objects reads a list of objects from content, accepting both the Go
// shapes used by defaults and the shapes produced by decoding JSON.
func objects(v any) []map[string]any {
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, cast.ToStringMap(it))
	}
	return out
}

func blank(v any) bool {
	return strings.TrimSpace(cast.ToString(v)) == ""
}

func fieldErr(field, msg string) validate.FieldError {
	return validate.FieldError{Field: field, Message: msg}
}

func checkHeading(b domain.Block) []validate.FieldError {
	var errs []validate.FieldError
	level := cast.ToInt(b.Content["level"])
	if level < 1 || level > 6 {
		errs = append(errs, validate.FieldError{
			Field: "content.level", Message: "O nível do título deve estar entre 1 e 6", Value: b.Content["level"],
		})
	}
	if limit := cast.ToInt(b.Content["maxChars"]); limit > 0 {
		if n := len([]rune(cast.ToString(b.Content["text"]))); n > limit {
			errs = append(errs, validate.FieldError{
				Field:   "content.text",
				Message: fmt.Sprintf("O título deve ter no máximo %d caracteres", limit),
				Value:   n,
			})
		}
	}
	return errs
}

func checkList(b domain.Block) []validate.FieldError {
	items := cast.ToStringSlice(b.Content["items"])
	if len(items) == 0 {
		return []validate.FieldError{fieldErr("content.items", "A lista deve ter pelo menos um item")}
	}
	var errs []validate.FieldError
	for i, it := range items {
		if blank(it) {
			errs = append(errs, fieldErr(fmt.Sprintf("content.items.%d", i), "O item não pode estar vazio"))
		}
	}
	return errs
}

func checkAlternatives(b domain.Block) ([]map[string]any, int, []validate.FieldError) {
	alts := objects(b.Content["alternatives"])
	if len(alts) < 2 {
		return alts, 0, []validate.FieldError{fieldErr("content.alternatives", "O quiz deve ter pelo menos duas alternativas")}
	}
	var errs []validate.FieldError
	correct := 0
	for i, a := range alts {
		if blank(a["text"]) {
			errs = append(errs, fieldErr(fmt.Sprintf("content.alternatives.%d.text", i), "A alternativa não pode estar vazia"))
		}
		if cast.ToBool(a["correct"]) {
			correct++
		}
	}
	return alts, correct, errs
}

func checkSingleChoice(b domain.Block) []validate.FieldError {
	alts, correct, errs := checkAlternatives(b)
	if len(alts) >= 2 && correct != 1 {
		errs = append(errs, validate.FieldError{
			Field: "content.alternatives", Message: "Marque exatamente uma alternativa correta", Value: correct,
		})
	}
	return errs
}

func checkMultipleChoice(b domain.Block) []validate.FieldError {
	alts, correct, errs := checkAlternatives(b)
	if len(alts) >= 2 && correct == 0 {
		errs = append(errs, fieldErr("content.alternatives", "Marque pelo menos uma alternativa correta"))
	}
	return errs
}

func checkCarousel(b domain.Block) []validate.FieldError {
	slides := objects(b.Content["slides"])
	if len(slides) == 0 {
		return []validate.FieldError{fieldErr("content.slides", "O carrossel deve ter pelo menos um slide")}
	}
	var errs []validate.FieldError
	for i, s := range slides {
		if blank(s["src"]) {
			errs = append(errs, fieldErr(fmt.Sprintf("content.slides.%d.src", i), "A imagem do slide é obrigatória"))
		}
	}
	return errs
}

func checkTitled(items []map[string]any, path, msg string) []validate.FieldError {
	var errs []validate.FieldError
	for i, it := range items {
		if blank(it["title"]) {
			errs = append(errs, fieldErr(fmt.Sprintf("%s.%d.title", path, i), msg))
		}
	}
	return errs
}

func checkTabs(b domain.Block) []validate.FieldError {
	tabs := objects(b.Content["tabs"])
	if len(tabs) < 2 {
		return []validate.FieldError{{Field: "content.tabs", Message: "As abas devem ter pelo menos duas entradas", Value: len(tabs)}}
	}
	return checkTitled(tabs, "content.tabs", "A aba precisa de um título")
}

func checkAccordion(b domain.Block) []validate.FieldError {
	items := objects(b.Content["items"])
	if len(items) == 0 {
		return []validate.FieldError{fieldErr("content.items", "O acordeão deve ter pelo menos um item")}
	}
	return checkTitled(items, "content.items", "O item precisa de um título")
}

func checkTable(b domain.Block) []validate.FieldError {
	var errs []validate.FieldError
	headers := cast.ToStringSlice(b.Content["headers"])
	if len(headers) == 0 {
		errs = append(errs, fieldErr("content.headers", "A tabela deve ter pelo menos um cabeçalho"))
	}
	rows := tableRows(b.Content["rows"])
	if len(rows) == 0 {
		errs = append(errs, fieldErr("content.rows", "A tabela deve ter pelo menos uma linha"))
	}
	if len(headers) == 0 {
		return errs
	}
	for i, r := range rows {
		if n := len(r); n != len(headers) {
			errs = append(errs, validate.FieldError{
				Field:   fmt.Sprintf("content.rows.%d", i),
				Message: fmt.Sprintf("A linha deve ter %d células", len(headers)),
				Value:   n,
			})
		}
	}
	return errs
}

func tableRows(v any) [][]string {
	if rows, ok := v.([][]string); ok {
		return rows
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	out := make([][]string, len(items))
	for i, it := range items {
		out[i] = cast.ToStringSlice(it)
	}
	return out
}
