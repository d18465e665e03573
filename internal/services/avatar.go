package services

import (
	"context"
	"fmt"
	"time"

	"popin-backend/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AvatarService issues pre-signed S3 upload URLs for profile pictures
type AvatarService struct {
	userRepo  storage.UserStore
	s3Client  *s3.Client
	s3Bucket  string
	awsRegion string
}

// NewAvatarService creates a new avatar service
func NewAvatarService(userRepo storage.UserStore, awsRegion, s3Bucket string) (*AvatarService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AvatarService{
		userRepo:  userRepo,
		s3Client:  s3.NewFromConfig(cfg),
		s3Bucket:  s3Bucket,
		awsRegion: awsRegion,
	}, nil
}

// UploadResponse carries the pre-signed upload URL and the public URL the
// avatar will have once uploaded
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	AvatarURL string `json:"avatar_url"`
	ExpiresIn int    `json:"expires_in"`
}

// GetUploadURL generates a pre-signed PUT URL for the user's avatar and
// records the resulting public URL
func (s *AvatarService) GetUploadURL(ctx context.Context, userID, contentType string) (*UploadResponse, error) {
	key := fmt.Sprintf("avatars/%s.jpg", userID)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = 5 * time.Minute
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	avatarURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.awsRegion, key)
	if err := s.userRepo.UpdateAvatarURL(ctx, userID, avatarURL); err != nil {
		return nil, fmt.Errorf("failed to record avatar url: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		AvatarURL: avatarURL,
		ExpiresIn: 300,
	}, nil
}
