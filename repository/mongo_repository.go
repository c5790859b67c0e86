package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"VidTube/model"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	videosCollection        = "videos"
)

// EnsureMongoIndexes creates the unique user indexes and the subscription lookup indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "fullname", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel", Value: 1}}},
		{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription indexes: %w", err)
	}

	_, err = db.Collection(videosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create video indexes: %w", err)
	}
	return nil
}

type mongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a UserRepository backed by a MongoDB database.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(usersCollection)}
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	var or []bson.M
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, nil
	}

	user, err := r.findOne(ctx, bson.M{"$or": or})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username %q or email %q: %w", username, email, err)
	}
	return user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return user, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	set := bson.M{"updatedAt": time.Now()}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	var user model.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return &user, nil
}

func (r *mongoUserRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": presented},
		bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": time.Now()}})
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token for user %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

type channelProfileDoc struct {
	ID                        string `bson:"_id"`
	FullName                  string `bson:"fullname"`
	Username                  string `bson:"username"`
	Email                     string `bson:"email"`
	Avatar                    string `bson:"avatar"`
	CoverImage                string `bson:"coverImage"`
	SubscribersCount          int64  `bson:"subscribersCount"`
	ChannelsSubscribedToCount int64  `bson:"channelsSubscribedToCount"`
	IsSubscribed              bool   `bson:"isSubscribed"`
}

func (r *mongoUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{"$cond": bson.M{
				"if":   bson.M{"$in": bson.A{viewerID, "$subscribers.subscriber"}},
				"then": true,
				"else": false,
			}},
		}}},
		{{Key: "$project", Value: bson.M{
			"fullname":                  1,
			"username":                  1,
			"email":                     1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel profile %q: %w", username, err)
	}
	var docs []channelProfileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode channel profile %q: %w", username, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	doc := docs[0]
	return &model.ChannelProfile{
		ID:                        doc.ID,
		FullName:                  doc.FullName,
		Username:                  doc.Username,
		Email:                     doc.Email,
		Avatar:                    doc.Avatar,
		CoverImage:                doc.CoverImage,
		SubscribersCount:          doc.SubscribersCount,
		ChannelsSubscribedToCount: doc.ChannelsSubscribedToCount,
		IsSubscribed:              doc.IsSubscribed,
	}, nil
}

type watchHistoryDoc struct {
	WatchHistory []string             `bson:"watchHistory"`
	History      []model.VideoSummary `bson:"history"`
}

func (r *mongoUserRepository) WatchHistory(ctx context.Context, userID string) ([]model.VideoSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "history",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         usersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{"fullname": 1, "username": 1, "avatar": 1}},
					},
				}},
				bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{"watchHistory": 1, "history": 1}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load watch history for user %s: %w", userID, err)
	}
	var docs []watchHistoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode watch history for user %s: %w", userID, err)
	}
	if len(docs) == 0 {
		return []model.VideoSummary{}, nil
	}

	// $lookup does not preserve the order of the local array.
	byID := make(map[string]model.VideoSummary, len(docs[0].History))
	for _, v := range docs[0].History {
		byID[v.ID] = v
	}
	history := make([]model.VideoSummary, 0, len(docs[0].WatchHistory))
	for _, id := range docs[0].WatchHistory {
		if v, ok := byID[id]; ok {
			history = append(history, v)
		}
	}
	return history, nil
}

func (r *mongoUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$push": bson.M{"watchHistory": videoID}, "$set": bson.M{"updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to append video %s to history of user %s: %w", videoID, userID, err)
	}
	return nil
}

type mongoSubscriptionRepository struct {
	subscriptions *mongo.Collection
}

// NewMongoSubscriptionRepository creates a SubscriptionRepository backed by MongoDB.
func NewMongoSubscriptionRepository(db *mongo.Database) SubscriptionRepository {
	return &mongoSubscriptionRepository{subscriptions: db.Collection(subscriptionsCollection)}
}

func (r *mongoSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if _, err := r.subscriptions.InsertOne(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription %s -> %s: %w", sub.SubscriberID, sub.ChannelID, err)
	}
	return nil
}

func (r *mongoSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) (int64, error) {
	res, err := r.subscriptions.DeleteMany(ctx, bson.M{"subscriber": subscriberID, "channel": channelID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete subscription %s -> %s: %w", subscriberID, channelID, err)
	}
	return res.DeletedCount, nil
}

func (r *mongoSubscriptionRepository) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	n, err := r.subscriptions.CountDocuments(ctx,
		bson.M{"subscriber": subscriberID, "channel": channelID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check subscription %s -> %s: %w", subscriberID, channelID, err)
	}
	return n > 0, nil
}

type mongoVideoRepository struct {
	videos *mongo.Collection
}

// NewMongoVideoRepository creates a VideoRepository backed by MongoDB.
func NewMongoVideoRepository(db *mongo.Database) VideoRepository {
	return &mongoVideoRepository{videos: db.Collection(videosCollection)}
}

func (r *mongoVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if _, err := r.videos.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *mongoVideoRepository) FindByID(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	if err := r.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find video %s: %w", id, err)
	}
	return &video, nil
}
