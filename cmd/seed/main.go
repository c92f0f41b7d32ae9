package main

import (
	"context"

	"estate/config"
	"estate/infras/otel"
	"estate/infras/postgres"
	categoryModel "estate/internal/domains/category/model"
	categoryRepository "estate/internal/domains/category/repository"
	propertyModel "estate/internal/domains/property/model"
	propertyRepository "estate/internal/domains/property/repository"
	"estate/shared"
	"estate/shared/logger"
	gModel "estate/shared/model"
	"estate/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const seedUser = "seed"

// Seeds a small demo catalog: a three-level residential category tree, a
// commercial root and a handful of listings spread across them.
func main() {
	cfg := config.Get()

	logger.InitLogger()
	logger.SetLogLevel(cfg)

	db := postgres.New(cfg)
	ot := otel.New(cfg)

	categories := categoryRepository.New(db, ot)
	properties := propertyRepository.New(db, ot)

	ctx := context.Background()

	residential := seedCategory(ctx, categories, "Residential", nil)
	apartments := seedCategory(ctx, categories, "Apartments", &residential)
	luxury := seedCategory(ctx, categories, "Luxury Apartments", &apartments)
	commercial := seedCategory(ctx, categories, "Commercial", nil)

	seedProperty(ctx, properties, "Sunset Park Residence", apartments, 175000, 2, 1, 860)
	seedProperty(ctx, properties, "Harborview Penthouse", luxury, 420000, 3, 2, 1450)
	seedProperty(ctx, properties, "Skyline Loft", luxury, 389000, 2, 2, 1200)
	seedProperty(ctx, properties, "Main Street Office Block", commercial, 980000, 0, 4, 5200)

	log.Info().Msg("Database seeded successfully")
}

func seedCategory(ctx context.Context, repo categoryRepository.Category, name string, parentID *string) string {
	category := categoryModel.Category{
		ID:       uuid.NewString(),
		Name:     name,
		Slug:     shared.Slugify(name),
		ParentID: parentID,
		Active:   true,
		Metadata: metadata(),
	}

	if err := repo.Insert(ctx, category); err != nil {
		log.Fatal().Err(err).Str("name", name).Msg("failed to seed category")
	}

	log.Info().Str("name", name).Str("id", category.ID).Msg("seeded category")

	return category.ID
}

func seedProperty(ctx context.Context, repo propertyRepository.Property, name, categoryID string, price int64, bedrooms, bathrooms, squareFeet int) {
	property := propertyModel.Property{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       shared.Slugify(name),
		Price:      decimal.NewFromInt(price),
		Bedrooms:   bedrooms,
		Bathrooms:  bathrooms,
		SquareFeet: squareFeet,
		Status:     propertyModel.StatusActive,
		CategoryID: &categoryID,
		Featured:   true,
		Metadata:   metadata(),
	}

	if err := repo.Insert(ctx, property); err != nil {
		log.Fatal().Err(err).Str("name", name).Msg("failed to seed property")
	}

	log.Info().Str("name", name).Str("id", property.ID).Msg("seeded property")
}

func metadata() gModel.Metadata {
	return gModel.Metadata{
		CreatedAt:  timezone.Now(),
		ModifiedAt: timezone.Now(),
		CreatedBy:  seedUser,
		ModifiedBy: seedUser,
	}
}
