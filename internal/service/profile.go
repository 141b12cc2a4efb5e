package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/repository"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidProfile  = errors.New("username must be at most 32 characters and display name at most 64")
	ErrNotAnImage      = errors.New("avatar must be an image")
)

const (
	maxUsernameLen    = 32
	maxDisplayNameLen = 64
)

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, id string, username, displayName *string) (*model.Profile, error)
	SetAvatar(ctx context.Context, id, avatarURL string) error
}

type ProfileService struct {
	profiles ProfileStore
	avatars  ImageBucket
}

func NewProfileService(profiles ProfileStore, avatars ImageBucket) *ProfileService {
	return &ProfileService{profiles: profiles, avatars: avatars}
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// UpdateProfile sets the names of the caller's profile, creating the row if
// needed. Blank names are stored as NULL.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	username := optionalTrimmed(req.Username)
	displayName := optionalTrimmed(req.DisplayName)
	if username != nil && utf8.RuneCountInString(*username) > maxUsernameLen {
		return nil, ErrInvalidProfile
	}
	if displayName != nil && utf8.RuneCountInString(*displayName) > maxDisplayNameLen {
		return nil, ErrInvalidProfile
	}

	p, err := s.profiles.Upsert(ctx, userID, username, displayName)
	if errors.Is(err, repository.ErrUsernameTaken) {
		return nil, ErrUsernameTaken
	}
	return p, err
}

// UploadAvatar replaces the caller's avatar and returns its public URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, up ImageUpload) (string, error) {
	if s.avatars == nil {
		return "", ErrStorageUnavailable
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return "", ErrNotAnImage
	}

	key := avatarPath(userID, up.Name)
	if err := s.avatars.Upload(ctx, key, up.ContentType, up.Data, true); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	url := s.avatars.PublicURL(key)
	if err := s.profiles.SetAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

func avatarPath(userID, name string) string {
	safe := strings.ReplaceAll(name, "/", "-")
	if ext := strings.TrimPrefix(path.Ext(safe), "."); ext != "" {
		return userID + "/avatar." + ext
	}
	return userID + "/avatar"
}

func optionalTrimmed(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
