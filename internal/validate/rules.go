package validate

import (
	"log"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// RuleKind selects how a Rule checks its field.
type RuleKind string

const (
	Required  RuleKind = "required"
	MaxLength RuleKind = "maxLength"
	MinLength RuleKind = "minLength"
	Pattern   RuleKind = "pattern"
	Custom    RuleKind = "custom"
)

// Rule is one declarative check on a block field. Field is a dot path into
// the block's JSON form, e.g. "content.text" or "accessibility.ariaLabel".
// Param is the length for MaxLength/MinLength and the regular expression
// for Pattern. Custom reports whether the value is acceptable.
type Rule struct {
	Field   string
	Kind    RuleKind
	Param   any
	Message string
	Custom  func(v gjson.Result) bool
}

// check returns false when the rule fails for v.
func (r Rule) check(v gjson.Result) bool {
	switch r.Kind {
	case Required:
		return !isEmpty(v)
	case MaxLength:
		if isEmpty(v) {
			return true
		}
		return length(v) <= cast.ToInt(r.Param)
	case MinLength:
		if isEmpty(v) {
			return true
		}
		return length(v) >= cast.ToInt(r.Param)
	case Pattern:
		if isEmpty(v) {
			return true
		}
		re := compile(cast.ToString(r.Param))
		if re == nil {
			return true
		}
		return re.MatchString(v.String())
	case Custom:
		if r.Custom == nil {
			return true
		}
		return r.Custom(v)
	}
	return true
}

func isEmpty(v gjson.Result) bool {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return true
	case v.Type == gjson.String:
		return strings.TrimSpace(v.Str) == ""
	case v.IsArray():
		return len(v.Array()) == 0
	case v.IsObject():
		return len(v.Map()) == 0
	}
	return false
}

// length is the rune count of strings and the element count of arrays.
func length(v gjson.Result) int {
	if v.IsArray() {
		return len(v.Array())
	}
	return utf8.RuneCountInString(cast.ToString(v.Value()))
}

var patterns sync.Map // string -> *regexp.Regexp

func compile(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		log.Printf("[VALIDATE] bad pattern %q: %v", expr, err)
		return nil
	}
	patterns.Store(expr, re)
	return re
}
