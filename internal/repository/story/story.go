package story

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storyreel/internal/model/story"
)

// StoryRepository 故事记录仓库接口
type StoryRepository interface {
	Create(ctx context.Context, s *story.Story) error
	FindByID(ctx context.Context, id string) (*story.Story, error)
	FindRecent(ctx context.Context, limit int) ([]*story.Story, error)
	UpdateStatus(ctx context.Context, id string, status story.StoryStatus, errorMsg string) error
	UpdateResult(ctx context.Context, id string, s *story.Story) error
}

// StoryRepo 故事记录仓库实现
type StoryRepo struct {
	coll *mongo.Collection
}

// NewStoryRepo 创建故事记录仓库
func NewStoryRepo(db *mongo.Database) *StoryRepo {
	var s story.Story
	return &StoryRepo{coll: db.Collection(s.Collection())}
}

// Create 创建故事记录
func (r *StoryRepo) Create(ctx context.Context, s *story.Story) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = story.StatusPending // 默认状态为待处理
	}
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

// FindByID 根据ID查询故事记录
func (r *StoryRepo) FindByID(ctx context.Context, id string) (*story.Story, error) {
	var s story.Story
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindRecent 查询最近创建的故事记录
func (r *StoryRepo) FindRecent(ctx context.Context, limit int) ([]*story.Story, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stories []*story.Story
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// UpdateStatus 更新故事状态
func (r *StoryRepo) UpdateStatus(ctx context.Context, id string, status story.StoryStatus, errorMsg string) error {
	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		update["error_message"] = errorMsg
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": update})
	return err
}

// UpdateResult 写入生成结果（场景明细、视频 key/链接、时长、最终状态）
func (r *StoryRepo) UpdateResult(ctx context.Context, id string, s *story.Story) error {
	update := bson.M{
		"style":       s.Style,
		"scene_count": s.SceneCount,
		"scenes":      s.Scenes,
		"video_key":   s.VideoKey,
		"video_url":   s.VideoURL,
		"duration":    s.Duration,
		"status":      s.Status,
		"updated_at":  time.Now(),
	}
	if s.ErrorMessage != "" {
		update["error_message"] = s.ErrorMessage
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": update})
	return err
}
