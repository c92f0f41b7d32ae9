package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"estate/config"
	"estate/infras/otel/mocks"
	categoryMocks "estate/internal/domains/category/mocks"
	"estate/internal/domains/category/model"
	"estate/internal/domains/category/model/dto"
	"estate/internal/domains/category/service"
	cacheMocks "estate/shared/cache/mocks"
	"estate/shared/constant"
)

func TestCategoryService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := categoryMocks.NewMockCategory(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	mockCache.EXPECT().
		Clear(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	parentID := "parent-id"

	tests := []struct {
		name      string
		req       dto.CreateCategoryRequest
		setupMock func()
		wantErr   bool
	}{
		{
			name: "successful creation without parent",
			req: dto.CreateCategoryRequest{
				Name: "Residential",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "successful creation with parent",
			req: dto.CreateCategoryRequest{
				Name:     "Apartments",
				ParentID: &parentID,
			},
			setupMock: func() {
				mockRepo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(true, nil)

				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "parent not found",
			req: dto.CreateCategoryRequest{
				Name:     "Apartments",
				ParentID: &parentID,
			},
			setupMock: func() {
				mockRepo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(false, nil)
			},
			wantErr: true,
		},
		{
			name: "repository error",
			req: dto.CreateCategoryRequest{
				Name: "Residential",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

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

func TestCategoryService_DescendantIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := categoryMocks.NewMockCategory(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	residentialID := "residential-id"
	apartmentsID := "apartments-id"
	luxuryID := "luxury-id"

	child := func(id string, parent string) model.Category {
		return model.Category{ID: id, ParentID: &parent}
	}

	tests := []struct {
		name      string
		id        string
		setupMock func()
		want      []string
		wantErr   bool
	}{
		{
			name: "three level subtree",
			id:   residentialID,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{residentialID}).
					Return([]model.Category{child(apartmentsID, residentialID)}, nil)

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{apartmentsID}).
					Return([]model.Category{child(luxuryID, apartmentsID)}, nil)

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{luxuryID}).
					Return([]model.Category{}, nil)
			},
			want: []string{residentialID, apartmentsID, luxuryID},
		},
		{
			name: "cycle between two categories terminates",
			id:   "a",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{"a"}).
					Return([]model.Category{child("b", "a")}, nil)

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{"b"}).
					Return([]model.Category{child("a", "b")}, nil)
			},
			want: []string{"a", "b"},
		},
		{
			name: "unknown category yields itself",
			id:   "ghost",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{"ghost"}).
					Return([]model.Category{}, nil)
			},
			want: []string{"ghost"},
		},
		{
			name: "cache hit skips repository",
			id:   residentialID,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						ids, _ := value.(*[]string)
						*ids = []string{residentialID, apartmentsID}

						return nil
					})
			},
			want: []string{residentialID, apartmentsID},
		},
		{
			name: "repository error",
			id:   residentialID,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{residentialID}).
					Return(nil, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			result, err := svc.DescendantIDs(context.Background(), tt.id)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.ElementsMatch(t, tt.want, result)
		})
	}
}

func TestCategoryService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := categoryMocks.NewMockCategory(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	mockCache.EXPECT().
		Clear(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	childID := "child-id"

	tests := []struct {
		name      string
		req       dto.UpdateCategoryRequest
		id        string
		setupMock func()
		wantErr   bool
	}{
		{
			name: "successful update",
			req: dto.UpdateCategoryRequest{
				Name: "Updated Name",
			},
			id: "test-id",
			setupMock: func() {
				mockRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Category{ID: "test-id"}, nil)

				mockRepo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "category not found",
			req: dto.UpdateCategoryRequest{
				Name: "Updated Name",
			},
			id: "nonexistent-id",
			setupMock: func() {
				mockRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Category{}, nil)
			},
			wantErr: true,
		},
		{
			name: "re-parenting under own subtree rejected",
			req: dto.UpdateCategoryRequest{
				ParentID: &childID,
			},
			id: "test-id",
			setupMock: func() {
				mockRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Category{ID: "test-id"}, nil)

				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{"test-id"}).
					Return([]model.Category{{ID: childID}}, nil)

				mockRepo.EXPECT().
					GetChildren(gomock.Any(), []string{childID}).
					Return([]model.Category{}, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
			err := svc.Update(ctx, tt.req, tt.id)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
