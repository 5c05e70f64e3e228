// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cms implements a client for the headless CMS Management API.
package cms

import "time"

// Link type discriminators used in sys.linkType.
const (
	LinkTypeEntry = "Entry"
	LinkTypeAsset = "Asset"
)

// Field types exposed by content-type schemas.
const (
	FieldTypeSymbol  = "Symbol"
	FieldTypeText    = "Text"
	FieldTypeInteger = "Integer"
	FieldTypeNumber  = "Number"
	FieldTypeBoolean = "Boolean"
	FieldTypeDate    = "Date"
	FieldTypeArray   = "Array"
	FieldTypeObject  = "Object"
	FieldTypeLink    = "Link"
)

// LinkSys is the sys block of a link value.
type LinkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

// TypeLink references a content type from an entry's sys block.
type TypeLink struct {
	Sys LinkSys `json:"sys"`
}

// Sys carries CMS system metadata for an entry or content type.
type Sys struct {
	ID               string    `json:"id"`
	Type             string    `json:"type,omitempty"`
	Version          int       `json:"version"`
	PublishedVersion int       `json:"publishedVersion,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
	ContentType      *TypeLink `json:"contentType,omitempty"`
}

// LocalizedValue maps a locale tag to a raw field value. A value is a
// scalar, an ordered sequence, a nested mapping, or a link object.
type LocalizedValue map[string]any

// Entry is a content object with localized fields and a version.
type Entry struct {
	Sys    Sys                       `json:"sys"`
	Fields map[string]LocalizedValue `json:"fields"`
}

// ContentTypeID returns the entry's content type id, or "".
func (e *Entry) ContentTypeID() string {
	if e == nil || e.Sys.ContentType == nil {
		return ""
	}
	return e.Sys.ContentType.Sys.ID
}

// IsDraft reports whether the entry has never been published.
func (e *Entry) IsDraft() bool {
	return e.Sys.PublishedVersion == 0
}

// Validation is a content-type field validation. Only enum membership is
// consumed here.
type Validation struct {
	In []string `json:"in,omitempty"`
}

// FieldItems describes the element schema of an Array field.
type FieldItems struct {
	Type        string       `json:"type"`
	LinkType    string       `json:"linkType,omitempty"`
	Validations []Validation `json:"validations,omitempty"`
}

// ContentTypeField is one ordered field definition of a content type.
type ContentTypeField struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Type        string       `json:"type"`
	LinkType    string       `json:"linkType,omitempty"`
	Required    bool         `json:"required"`
	Localized   bool         `json:"localized,omitempty"`
	Items       *FieldItems  `json:"items,omitempty"`
	Validations []Validation `json:"validations,omitempty"`
}

// IsLinkField reports whether the field holds a link or a list of links.
func (f *ContentTypeField) IsLinkField() bool {
	if f.Type == FieldTypeLink {
		return true
	}
	return f.Type == FieldTypeArray && f.Items != nil && f.Items.Type == FieldTypeLink
}

// EnumValues returns the first validations.in list, if any.
func (f *ContentTypeField) EnumValues() []string {
	for _, v := range f.Validations {
		if len(v.In) > 0 {
			return v.In
		}
	}
	return nil
}

// ContentType is the schema describing an entry's fields, in order.
type ContentType struct {
	Sys          Sys                `json:"sys"`
	Name         string             `json:"name"`
	DisplayField string             `json:"displayField,omitempty"`
	Fields       []ContentTypeField `json:"fields"`
}

// Field returns the field definition for id, or nil.
func (ct *ContentType) Field(id string) *ContentTypeField {
	if ct == nil {
		return nil
	}
	for i := range ct.Fields {
		if ct.Fields[i].ID == id {
			return &ct.Fields[i]
		}
	}
	return nil
}

// entryCollection is the wire shape of an entries query response.
type entryCollection struct {
	Total int      `json:"total"`
	Items []*Entry `json:"items"`
}
