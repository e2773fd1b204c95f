package domain

import "reflect"

// Clone returns a deep copy of the page, including nested block content.
func (p Page) Clone() Page {
	out := p
	out.Metadata.Tags = cloneStrings(p.Metadata.Tags)
	if p.Rows != nil {
		out.Rows = make([]Row, len(p.Rows))
		for i, r := range p.Rows {
			out.Rows[i] = r.Clone()
		}
	}
	return out
}

func (r Row) Clone() Row {
	out := r
	if r.Columns != nil {
		out.Columns = make([]Column, len(r.Columns))
		for i, c := range r.Columns {
			out.Columns[i] = c.Clone()
		}
	}
	return out
}

func (c Column) Clone() Column {
	out := c
	if c.Blocks != nil {
		out.Blocks = make([]Block, len(c.Blocks))
		for i, b := range c.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	return out
}

func (b Block) Clone() Block {
	out := b
	out.Content = CloneContent(b.Content)
	if b.Style != nil {
		s := *b.Style
		out.Style = &s
	}
	if b.Accessibility.TabIndex != nil {
		ti := *b.Accessibility.TabIndex
		out.Accessibility.TabIndex = &ti
	}
	return out
}

// CloneContent deep-copies a free-form content map. Nested maps and slices
// are copied; scalar values are shared.
func CloneContent(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneContent(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CloneContent(e)
		}
		return out
	case []string:
		return cloneStrings(t)
	case [][]string:
		out := make([][]string, len(t))
		for i, e := range t {
			out[i] = cloneStrings(e)
		}
		return out
	default:
		return v
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Equal reports whether two pages are the same value.
func Equal(a, b Page) bool {
	return reflect.DeepEqual(a, b)
}
