package engine

import (
	"slices"

	"pagebuilder/internal/domain"
)

// UpdateMetadata applies the set fields of patch to the page metadata.
func (e *Engine) UpdateMetadata(p domain.Page, patch domain.MetadataPatch) domain.Page {
	m := p.Metadata
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Slug != nil {
		m.Slug = *patch.Slug
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if patch.Locale != nil {
		m.Locale = *patch.Locale
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Tags != nil {
		m.Tags = slices.Clone(patch.Tags)
	}
	out := p
	out.Metadata = m
	return out
}
