// Package user holds the profile side of a user account: validation rules
// shared with registration and the profile view and edit operations.
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/redmonkez12/meetos/internal/store"
)

// Profile is everything shown on a user's own profile page.
type Profile struct {
	User        *store.User
	OwnedGroups []store.Group
	Groups      []store.Group
}

// ProfileInput is the edit-profile form.
type ProfileInput struct {
	Name     string
	GitHub   string
	GitLab   string
	LinkedIn string
	About    string
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Profile loads the user with the groups they own and the groups they joined.
func (s *Service) Profile(ctx context.Context, u *store.User) (*Profile, error) {
	owned, err := s.store.GroupsByOwner(ctx, u.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned groups: %w", err)
	}
	joined, err := s.store.GroupsByMember(ctx, u.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined groups: %w", err)
	}
	return &Profile{User: u, OwnedGroups: owned, Groups: joined}, nil
}

func (s *Service) Get(ctx context.Context, uid int64) (*store.User, error) {
	return s.store.GetUserByID(ctx, uid)
}

func (s *Service) List(ctx context.Context) ([]store.User, error) {
	return s.store.ListUsers(ctx)
}

// Search filters users whose name or email contains query, case-insensitively.
func (s *Service) Search(ctx context.Context, query string) ([]store.User, error) {
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}

	out := []store.User{}
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Name), query) || strings.Contains(u.Email, query) {
			out = append(out, u)
		}
	}
	return out, nil
}

// UpdateProfile validates and stores the edit-profile form.
func (s *Service) UpdateProfile(ctx context.Context, uid int64, in ProfileInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.GitHub = strings.TrimSpace(in.GitHub)
	in.GitLab = strings.TrimSpace(in.GitLab)
	in.LinkedIn = strings.TrimSpace(in.LinkedIn)

	if err := ValidateName(in.Name); err != nil {
		return err
	}
	if !handleRe.MatchString(in.GitHub) {
		return ErrInvalidGitHub
	}
	if !handleRe.MatchString(in.GitLab) {
		return ErrInvalidGitLab
	}
	if in.LinkedIn != "" && !linkedInRe.MatchString(in.LinkedIn) {
		return ErrInvalidLinkedIn
	}

	return s.store.UpdateProfile(ctx, uid, store.ProfileUpdate{
		Name:     in.Name,
		GitHub:   in.GitHub,
		GitLab:   in.GitLab,
		LinkedIn: in.LinkedIn,
		About:    in.About,
	})
}
