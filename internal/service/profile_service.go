package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/observability"
	"witwaves/internal/repository"
	"witwaves/internal/validation"
)

// ProfileService reads and edits user profiles.
type ProfileService struct {
	profiles repository.ProfileRepository
	views    *cache.ViewInvalidator
}

// NewProfileService creates a new profile service.
func NewProfileService(profiles repository.ProfileRepository, views *cache.ViewInvalidator) *ProfileService {
	return &ProfileService{profiles: profiles, views: views}
}

// UpdateProfileInput holds every editable profile field.
type UpdateProfileInput struct {
	UID         string            `form:"uid" validate:"required"`
	DisplayName string            `form:"displayName" validate:"notblank,max=100"`
	Username    string            `form:"username" validate:"omitempty,max=30,username"`
	Bio         string            `form:"bio" validate:"max=600"`
	PhotoURL    string            `form:"photoURL" validate:"omitempty,httpurl"`
	SocialLinks map[string]string `form:"socialLinks" validate:"dive,keys,oneof=twitter linkedin instagram portfolio github,endkeys,httpurl"`
	Interests   []string          `form:"interests" validate:"max=20,dive,max=50"`
}

// UpdateProfileInputFromFields decodes a profile form. Social links arrive
// as "socialLinks.<kind>" (or "socialLinks[<kind>]") fields and interests
// as a comma-separated list.
func UpdateProfileInputFromFields(uid string, f Fields) UpdateProfileInput {
	in := UpdateProfileInput{
		UID:         uid,
		DisplayName: f.Get("displayName"),
		Username:    f.Get("username"),
		Bio:         f.Get("bio"),
		PhotoURL:    f.Get("photoURL"),
		Interests:   validation.ParseTags(f.Raw("interests")),
	}
	for name := range f {
		kind, ok := socialLinkKind(name)
		if !ok {
			continue
		}
		if v := f.Get(name); v != "" {
			if in.SocialLinks == nil {
				in.SocialLinks = map[string]string{}
			}
			in.SocialLinks[kind] = v
		}
	}
	return in
}

func socialLinkKind(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "socialLinks."):
		return strings.TrimPrefix(name, "socialLinks."), true
	case strings.HasPrefix(name, "socialLinks[") && strings.HasSuffix(name, "]"):
		return strings.TrimSuffix(strings.TrimPrefix(name, "socialLinks["), "]"), true
	}
	return "", false
}

func (in *UpdateProfileInput) normalize() {
	in.UID = strings.TrimSpace(in.UID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Username = strings.TrimSpace(in.Username)
	in.Bio = strings.TrimSpace(in.Bio)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	links := make(map[string]string, len(in.SocialLinks))
	for k, v := range in.SocialLinks {
		if v = strings.TrimSpace(v); v != "" {
			links[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	in.SocialLinks = links
	in.Interests = validation.NormalizeTags(in.Interests)
}

// GetProfile returns the profile of uid, or nil when there is none or the
// store fails.
func (s *ProfileService) GetProfile(ctx context.Context, uid string) *models.UserProfile {
	p, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, models.ErrProfileNotFound) {
			observability.GlobalLogger.ErrorContext(ctx, "failed to load profile",
				slog.String("uid", uid), slog.String("error", err.Error()))
		}
		return nil
	}
	return p
}

// UpdateUserProfile validates and saves the profile of the acting user.
func (s *ProfileService) UpdateUserProfile(ctx context.Context, in UpdateProfileInput) ActionResult {
	const action = "updateUserProfile"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "Please correct the highlighted fields.", errs)
		}

		var username *string
		if in.Username != "" {
			free, err := s.profiles.IsUsernameAvailable(ctx, in.Username, in.UID)
			if err != nil {
				return fail(ctx, action, err)
			}
			if !free {
				return usernameTaken(action)
			}
			username = &in.Username
		}

		profile := &models.UserProfile{
			UID:         in.UID,
			DisplayName: in.DisplayName,
			Username:    username,
			Bio:         in.Bio,
			PhotoURL:    in.PhotoURL,
			SocialLinks: in.SocialLinks,
			Interests:   in.Interests,
		}
		if existing, err := s.profiles.GetByUID(ctx, in.UID); err == nil {
			profile.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, models.ErrProfileNotFound) {
			return fail(ctx, action, err)
		}

		if err := s.profiles.Upsert(ctx, profile); err != nil {
			if errors.Is(err, repository.ErrUsernameTaken) {
				return usernameTaken(action)
			}
			return fail(ctx, action, err)
		}

		keys := []string{cache.UserKey(in.UID)}
		invalidate(ctx, s.views, action, keys)
		return succeed(action, "Profile updated.", profile, keys)
	})
}

func usernameTaken(action string) ActionResult {
	return invalid(action, "Please correct the highlighted fields.", map[string][]string{
		"username": {"Username is already taken."},
	})
}
