package model

import "estate/shared/model"

const (
	TableName  = "categories"
	EntityName = "category"

	FieldID          = "id"
	FieldName        = "name"
	FieldSlug        = "slug"
	FieldDescription = "description"
	FieldParentID    = "parent_id"
	FieldActive      = "active"
)

type Category struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Slug        string  `db:"slug"`
	Description string  `db:"description"`
	ParentID    *string `db:"parent_id"`
	Active      bool    `db:"active"`
	model.Metadata
}
