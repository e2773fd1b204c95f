package catalog

import "slices"

// Kind tags a block type. KindUnknown stands for any type string the
// catalog does not know; such blocks get no default content and are not
// validated.
type Kind string

const (
	KindUnknown            Kind = ""
	KindHeading            Kind = "heading"
	KindText               Kind = "text"
	KindMarkdown           Kind = "markdown"
	KindImage              Kind = "image"
	KindVideo              Kind = "video"
	KindButton             Kind = "button"
	KindQuote              Kind = "quote"
	KindList               Kind = "list"
	KindCode               Kind = "code"
	KindDivider            Kind = "divider"
	KindSpacer             Kind = "spacer"
	KindQuizSingleChoice   Kind = "quiz-single-choice"
	KindQuizMultipleChoice Kind = "quiz-multiple-choice"
	KindQuizTrueFalse      Kind = "quiz-true-false"
	KindCarousel           Kind = "carousel"
	KindTabs               Kind = "tabs"
	KindAccordion          Kind = "accordion"
	KindTable              Kind = "table"
)

var allKinds = []Kind{
	KindHeading, KindText, KindMarkdown, KindImage, KindVideo, KindButton,
	KindQuote, KindList, KindCode, KindDivider, KindSpacer,
	KindQuizSingleChoice, KindQuizMultipleChoice, KindQuizTrueFalse,
	KindCarousel, KindTabs, KindAccordion, KindTable,
}

// AllKinds lists every known kind in palette order.
func AllKinds() []Kind {
	return slices.Clone(allKinds)
}

// ParseKind maps a block type string to its Kind, or KindUnknown.
func ParseKind(s string) Kind {
	k := Kind(s)
	if slices.Contains(allKinds, k) {
		return k
	}
	return KindUnknown
}
