package dto

import (
	"estate/internal/domains/property/model"
	"estate/shared"
	gDto "estate/shared/dto"
	gModel "estate/shared/model"
	"estate/shared/timezone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePropertyRequest struct {
	Name        string          `json:"name"        validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	Location    string          `json:"location"    validate:"required,max=200"`
	Price       decimal.Decimal `json:"price"       validate:"required"`
	Bedrooms    int             `json:"bedrooms"    validate:"omitempty,min=0"`
	Bathrooms   int             `json:"bathrooms"   validate:"omitempty,min=0"`
	SquareFeet  int             `json:"square_feet" validate:"omitempty,min=0"`
	Status      string          `json:"status"      validate:"omitempty,oneof=active inactive sold"`
	CategoryID  *string         `json:"category_id" validate:"omitempty,uuid"`
	Featured    *bool           `json:"featured"    validate:"omitempty"`
}

func (c *CreatePropertyRequest) ToModel(user, slug string) model.Property {
	status := c.Status
	if status == "" {
		status = model.StatusActive
	}

	featured := false
	if c.Featured != nil {
		featured = *c.Featured
	}

	return model.Property{
		ID:          uuid.NewString(),
		Name:        c.Name,
		Slug:        slug,
		Description: c.Description,
		Location:    c.Location,
		Price:       c.Price,
		Bedrooms:    c.Bedrooms,
		Bathrooms:   c.Bathrooms,
		SquareFeet:  c.SquareFeet,
		Status:      status,
		CategoryID:  c.CategoryID,
		Featured:    featured,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdatePropertyRequest struct {
	Name        string           `db:"name"        json:"name"        validate:"omitempty,max=200"`
	Description string           `db:"description" json:"description" validate:"omitempty,max=2000"`
	Location    string           `db:"location"    json:"location"    validate:"omitempty,max=200"`
	Price       *decimal.Decimal `db:"price"       json:"price"       validate:"omitempty"`
	Bedrooms    *int             `db:"bedrooms"    json:"bedrooms"    validate:"omitempty,min=0"`
	Bathrooms   *int             `db:"bathrooms"   json:"bathrooms"   validate:"omitempty,min=0"`
	SquareFeet  *int             `db:"square_feet" json:"square_feet" validate:"omitempty,min=0"`
	Status      string           `db:"status"      json:"status"      validate:"omitempty,oneof=active inactive sold"`
	CategoryID  *string          `db:"category_id" json:"category_id" validate:"omitempty,uuid"`
	Featured    *bool            `db:"featured"    json:"featured"    validate:"omitempty"`
}

type PropertyResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	SquareFeet  int             `json:"square_feet"`
	Status      string          `json:"status"`
	CategoryID  *string         `json:"category_id"`
	Featured    bool            `json:"featured"`
	gDto.Metadata
}

func (r *PropertyResponse) FromModel(model model.Property) {
	r.ID = model.ID
	r.Name = model.Name
	r.Slug = model.Slug
	r.Description = model.Description
	r.Location = model.Location
	r.Price = model.Price
	r.Bedrooms = model.Bedrooms
	r.Bathrooms = model.Bathrooms
	r.SquareFeet = model.SquareFeet
	r.Status = model.Status
	r.CategoryID = model.CategoryID
	r.Featured = model.Featured
	r.Metadata.FromModel(model.Metadata)
}

type GetPropertiesResponse struct {
	Properties []PropertyResponse `json:"properties"`
	TotalPage  int                `json:"total_page"`
	TotalData  int                `json:"total_data"`
}

func (r *GetPropertiesResponse) FromModels(models []model.Property, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Properties = make([]PropertyResponse, len(models))
	for i, mod := range models {
		r.Properties[i].FromModel(mod)
	}
}

type RecommendationsResponse struct {
	Properties []PropertyResponse `json:"properties"`
}

func (r *RecommendationsResponse) FromModels(models []model.Property) {
	r.Properties = make([]PropertyResponse, len(models))
	for i, mod := range models {
		r.Properties[i].FromModel(mod)
	}
}
