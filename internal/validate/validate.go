// Package validate checks pages and blocks and reports problems as data.
// Nothing here modifies a page or returns an error.
package validate

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"pagebuilder/internal/domain"
)

// FieldError is one validation finding. Field is a dot path; for block
// findings inside a page it is prefixed with "rowId-columnId-blockId-".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Checker runs the structural rules of one block type.
type Checker func(b domain.Block) []FieldError

// BlockSpec is everything the validator needs to know about a block type.
type BlockSpec struct {
	Rules []Rule
	Check Checker
}

// Catalog resolves block types. Unknown types are not validated.
type Catalog interface {
	Spec(blockType string) (BlockSpec, bool)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// gridEpsilon absorbs float error from fractional spans like 12/7.
const gridEpsilon = 1e-9

// ValidateBlock runs the declarative rules and then the structural check
// for b's type.
func ValidateBlock(cat Catalog, b domain.Block) []FieldError {
	spec, ok := cat.Spec(b.Type)
	if !ok {
		return nil
	}

	var errs []FieldError
	if len(spec.Rules) > 0 {
		doc, err := json.Marshal(b)
		if err != nil {
			log.Printf("[VALIDATE] encode block %s: %v", b.ID, err)
		} else {
			for _, r := range spec.Rules {
				v := gjson.GetBytes(doc, r.Field)
				if !r.check(v) {
					errs = append(errs, FieldError{Field: r.Field, Message: r.Message, Value: v.Value()})
				}
			}
		}
	}
	if spec.Check != nil {
		errs = append(errs, spec.Check(b)...)
	}
	return errs
}

// ValidatePage runs the page-level checks followed by every block's checks,
// in document order.
func ValidatePage(cat Catalog, p domain.Page) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(p.Metadata.Title) == "" {
		errs = append(errs, FieldError{Field: "metadata.title", Message: "O título da página é obrigatório"})
	}
	switch {
	case strings.TrimSpace(p.Metadata.Slug) == "":
		errs = append(errs, FieldError{Field: "metadata.slug", Message: "O slug da página é obrigatório"})
	case !slugPattern.MatchString(p.Metadata.Slug):
		errs = append(errs, FieldError{
			Field:   "metadata.slug",
			Message: "O slug deve conter apenas letras minúsculas, números e hífens",
			Value:   p.Metadata.Slug,
		})
	}
	if len(p.Rows) == 0 {
		errs = append(errs, FieldError{Field: "rows", Message: "A página deve ter pelo menos uma linha"})
	}

	for _, r := range p.Rows {
		errs = append(errs, validateRow(r)...)
		for _, c := range r.Columns {
			for _, b := range c.Blocks {
				prefix := r.ID + "-" + c.ID + "-" + b.ID + "-"
				for _, e := range ValidateBlock(cat, b) {
					e.Field = prefix + e.Field
					errs = append(errs, e)
				}
			}
		}
	}
	return errs
}

func validateRow(r domain.Row) []FieldError {
	if len(r.Columns) == 0 {
		return []FieldError{{Field: r.ID + "-columns", Message: "A linha deve ter pelo menos uma coluna"}}
	}
	var errs []FieldError
	for _, bp := range domain.Breakpoints {
		var sum float64
		for _, c := range r.Columns {
			sum += c.Grid.Span(bp)
		}
		if sum > domain.GridColumns+gridEpsilon {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s-grid.%s", r.ID, bp),
				Message: fmt.Sprintf("A soma das colunas excede %d", domain.GridColumns),
				Value:   sum,
			})
		}
	}
	return errs
}
