package domain

// Block is a single piece of content inside a Column. Its Content map is
// shaped by Type; the catalog knows the shape, the tree does not.
type Block struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Version       string         `json:"version"`
	Content       map[string]any `json:"content"`
	Style         *BlockStyle    `json:"style,omitempty"`
	Layout        BlockLayout    `json:"layout"`
	Accessibility Accessibility  `json:"accessibility"`
}

// BlockStyle holds optional visual overrides for a block.
type BlockStyle struct {
	Background   string `json:"background,omitempty"`
	TextColor    string `json:"textColor,omitempty"`
	Padding      string `json:"padding,omitempty"`
	Margin       string `json:"margin,omitempty"`
	Border       string `json:"border,omitempty"`
	BorderRadius string `json:"borderRadius,omitempty"`
	CustomClass  string `json:"customClass,omitempty"`
}

type BlockLayout struct {
	Alignment string `json:"alignment,omitempty"` // left, center, right
	MinHeight string `json:"minHeight,omitempty"`
	ZIndex    int    `json:"zIndex,omitempty"`
}

type Accessibility struct {
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	TabIndex    *int   `json:"tabIndex,omitempty"`
}

// BlockPatch is a partial update for a block. A nil field is left untouched;
// a non-nil field replaces the block's value for that field wholesale.
type BlockPatch struct {
	Content       map[string]any `json:"content,omitempty"`
	Style         *BlockStyle    `json:"style,omitempty"`
	Layout        *BlockLayout   `json:"layout,omitempty"`
	Accessibility *Accessibility `json:"accessibility,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p BlockPatch) IsEmpty() bool {
	return p.Content == nil && p.Style == nil && p.Layout == nil && p.Accessibility == nil
}

// BlockVersion is stamped on every newly created block.
const BlockVersion = "1.0.0"
