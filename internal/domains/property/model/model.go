package model

import (
	"estate/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "properties"
	EntityName = "property"

	FieldID          = "id"
	FieldName        = "name"
	FieldSlug        = "slug"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldPrice       = "price"
	FieldBedrooms    = "bedrooms"
	FieldBathrooms   = "bathrooms"
	FieldSquareFeet  = "square_feet"
	FieldStatus      = "status"
	FieldCategoryID  = "category_id"
	FieldFeatured    = "featured"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusSold     = "sold"
)

type Property struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	Location    string          `db:"location"`
	Price       decimal.Decimal `db:"price"`
	Bedrooms    int             `db:"bedrooms"`
	Bathrooms   int             `db:"bathrooms"`
	SquareFeet  int             `db:"square_feet"`
	Status      string          `db:"status"`
	CategoryID  *string         `db:"category_id"`
	Featured    bool            `db:"featured"`
	model.Metadata
}

// Bookable reports whether the property can accept new bookings.
func (p *Property) Bookable() bool {
	return p.Status == StatusActive
}
