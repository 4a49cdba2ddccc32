package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/fjod/go_bookshop/internal/domain"
)

const maxPhoneLength = 20

type ProfileUpdate struct {
	Phone      string
	Address    string
	PictureRef string
}

type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// Get returns the user's profile, creating an empty one on first access.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.GetOrCreateProfile(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*domain.Profile, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.PictureRef = strings.TrimSpace(in.PictureRef)

	if utf8.RuneCountInString(in.Phone) > maxPhoneLength {
		return nil, fmt.Errorf("%w: phone must be at most %d characters", ErrInvalidProfile, maxPhoneLength)
	}
	if in.PictureRef != "" {
		u, err := url.ParseRequestURI(in.PictureRef)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: picture reference must be an http(s) URL", ErrInvalidProfile)
		}
	}

	p := &domain.Profile{
		UserID:     userID,
		Phone:      in.Phone,
		Address:    in.Address,
		PictureRef: in.PictureRef,
	}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
