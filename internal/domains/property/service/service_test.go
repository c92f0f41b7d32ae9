package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"estate/config"
	"estate/infras/otel/mocks"
	categoryMocks "estate/internal/domains/category/mocks"
	categoryDto "estate/internal/domains/category/model/dto"
	propertyMocks "estate/internal/domains/property/mocks"
	"estate/internal/domains/property/model"
	"estate/internal/domains/property/model/dto"
	"estate/internal/domains/property/service"
	cacheMocks "estate/shared/cache/mocks"
	"estate/shared/constant"
	gDto "estate/shared/dto"
)

func newService(t *testing.T) (service.Property, *propertyMocks.MockProperty, *categoryMocks.MockCategoryService, *cacheMocks.MockRedisCache) {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockRepo := propertyMocks.NewMockProperty(ctrl)
	mockCategories := categoryMocks.NewMockCategoryService(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Clear(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, mockCategories, cfg, mockCache, mockOtel)

	return svc, mockRepo, mockCategories, mockCache
}

func TestPropertyService_Create(t *testing.T) {
	categoryID := "category-id"

	tests := []struct {
		name      string
		req       dto.CreatePropertyRequest
		setupMock func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService)
		wantErr   bool
	}{
		{
			name: "successful creation",
			req: dto.CreatePropertyRequest{
				Name:     "Seaside Villa",
				Location: "Cox's Bazar",
				Price:    decimal.NewFromInt(250000),
			},
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(false, nil)

				repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, prop model.Property) error {
						assert.Equal(t, "seaside-villa", prop.Slug)
						assert.Equal(t, model.StatusActive, prop.Status)

						return nil
					})
			},
			wantErr: false,
		},
		{
			name: "duplicate slug gets a suffix",
			req: dto.CreatePropertyRequest{
				Name:     "Seaside Villa",
				Location: "Cox's Bazar",
				Price:    decimal.NewFromInt(250000),
			},
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, prop model.Property) error {
						assert.NotEqual(t, "seaside-villa", prop.Slug)
						assert.Contains(t, prop.Slug, "seaside-villa-")

						return nil
					})
			},
			wantErr: false,
		},
		{
			name: "unknown category",
			req: dto.CreatePropertyRequest{
				Name:       "Seaside Villa",
				Location:   "Cox's Bazar",
				Price:      decimal.NewFromInt(250000),
				CategoryID: &categoryID,
			},
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService) {
				categories.EXPECT().
					Get(gomock.Any(), categoryID).
					Return(categoryDto.CategoryResponse{}, errors.New("category not found"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCategories, _ := newService(t)
			tt.setupMock(mockRepo, mockCategories)

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
			err := svc.Create(ctx, tt.req)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPropertyService_Recommendations(t *testing.T) {
	categoryID := "category-id"

	tests := []struct {
		name      string
		slug      string
		setupMock func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService, cache *cacheMocks.MockRedisCache)
		wantLen   int
		wantErr   bool
	}{
		{
			name: "computes from category subtree on cache miss",
			slug: "seaside-villa",
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Property{ID: "prop-1", Slug: "seaside-villa", CategoryID: &categoryID}, nil)

				categories.EXPECT().
					DescendantIDs(gomock.Any(), categoryID).
					Return([]string{categoryID, "child-id"}, nil)

				repo.EXPECT().
					GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Property{
						{ID: "prop-2", Status: model.StatusActive},
						{ID: "prop-3", Status: model.StatusActive},
					}, nil)
			},
			wantLen: 2,
		},
		{
			name: "property without category yields empty list",
			slug: "orphan-villa",
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Property{ID: "prop-1", Slug: "orphan-villa"}, nil)
			},
			wantLen: 0,
		},
		{
			name: "unknown slug",
			slug: "ghost-villa",
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Property{}, nil)
			},
			wantErr: true,
		},
		{
			name: "cache hit skips repository",
			slug: "seaside-villa",
			setupMock: func(repo *propertyMocks.MockProperty, categories *categoryMocks.MockCategoryService, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						res, _ := value.(*dto.RecommendationsResponse)
						res.Properties = []dto.PropertyResponse{{ID: "prop-2"}}

						return nil
					})
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCategories, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCategories, mockCache)

			res, err := svc.Recommendations(context.Background(), tt.slug)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.Len(t, res.Properties, tt.wantLen)
		})
	}
}

func TestPropertyService_ByCategory(t *testing.T) {
	svc, mockRepo, mockCategories, mockCache := newService(t)

	mockCache.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("cache miss")).
		AnyTimes()

	mockCategories.EXPECT().
		DescendantIDs(gomock.Any(), "root-id").
		Return([]string{"root-id", "child-id"}, nil)

	mockRepo.EXPECT().
		Count(gomock.Any(), gomock.Any()).
		Return(2, nil)

	mockRepo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.Property{
			{ID: "prop-1", Status: model.StatusActive},
			{ID: "prop-2", Status: model.StatusActive},
		}, nil)

	res, err := svc.ByCategory(context.Background(), "root-id", gDto.QueryParams{Page: 1, Limit: 10})

	assert.NoError(t, err)
	assert.Len(t, res.Properties, 2)
	assert.Equal(t, 2, res.TotalData)
}
