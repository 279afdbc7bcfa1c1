package agency

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"agency/internal/docstore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrProfileExists = errors.New("talent profile already exists")
)

// Service is the write path: every form submits through it, each call is a
// single awaited store write. ctx carries the caller's identity for the
// store's access rules.
type Service struct {
	store    docstore.Store
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store docstore.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		logger:   zap.NewNop(),
		validate: NewValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Validate(input any) error {
	return validateInput(s.validate, input)
}

// CreateMessage stores a contact form submission as an unread message.
func (s *Service) CreateMessage(ctx context.Context, input ContactInput) (*docstore.DocRef, error) {
	input = trimContact(input)
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	ref, err := s.store.Create(ctx, CollectionMessages, Message{
		Name:      input.Name,
		Email:     input.Email,
		Subject:   input.Subject,
		Message:   input.Message,
		CreatedAt: formatTimestamp(s.now()),
		Read:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.logger.Info("message received", zap.String("id", ref.ID))
	return ref, nil
}

// CreateUserProfile records the profile of a freshly signed-up account.
func (s *Service) CreateUserProfile(ctx context.Context, uid string, email string) error {
	ref := UserProfileRef(uid)
	if ref == nil {
		return fmt.Errorf("create user profile: %w", ErrNotFound)
	}

	err := s.store.Set(ctx, ref, UserProfile{
		Email: email,
		Role:  RoleTalent,
	})
	if err != nil {
		return fmt.Errorf("create user profile: %w", err)
	}
	return nil
}

// CompleteProfile creates the caller's talent document, keyed by uid and
// pending approval.
func (s *Service) CompleteProfile(ctx context.Context, uid string, email string, input ProfileInput) error {
	input = trimProfile(input)
	if err := s.Validate(input); err != nil {
		return err
	}

	ref := TalentRef(uid)
	if ref == nil {
		return fmt.Errorf("complete profile: %w", ErrNotFound)
	}

	existing, err := s.store.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("complete profile: %w", err)
	}
	if existing.Exists {
		return ErrProfileExists
	}

	category, _ := NormalizeCategory(input.Category)
	talent := Talent{
		Name:      input.Name,
		Category:  category,
		Bio:       input.Bio,
		Email:     email,
		Phone:     input.Phone,
		Socials:   profileSocials(input),
		Portfolio: []PortfolioItem{},
		Rate:      input.Rate,
		Currency:  input.Currency,
		Approved:  false,
		CreatedAt: formatTimestamp(s.now()),
	}
	if err := s.store.Set(ctx, ref, talent); err != nil {
		return fmt.Errorf("complete profile: %w", err)
	}

	s.logger.Info("talent profile submitted", zap.String("uid", uid))
	return nil
}

// UpdateProfile edits the caller's own talent document. Approval and
// portfolio are left as they are.
func (s *Service) UpdateProfile(ctx context.Context, uid string, input ProfileInput) error {
	input = trimProfile(input)
	if err := s.Validate(input); err != nil {
		return err
	}

	ref := TalentRef(uid)
	if ref == nil {
		return fmt.Errorf("update profile: %w", ErrNotFound)
	}

	category, _ := NormalizeCategory(input.Category)
	fields := map[string]any{
		"name":     input.Name,
		"phone":    input.Phone,
		"category": string(category),
		"bio":      input.Bio,
		"socials":  profileSocials(input),
		"currency": input.Currency,
	}
	if input.Rate != nil {
		fields["rate"] = *input.Rate
	}

	if err := s.store.Update(ctx, ref, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("update profile: %w", ErrNotFound)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// CreateTalent adds a talent from the back office. Admin-created talent is
// approved straight away.
func (s *Service) CreateTalent(ctx context.Context, input TalentInput) (*docstore.DocRef, error) {
	input = trimTalent(input)
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	category, _ := NormalizeCategory(input.Category)
	ref, err := s.store.Create(ctx, CollectionTalents, Talent{
		Name:     input.Name,
		Category: category,
		Bio:      input.Bio,
		Email:    input.Email,
		Phone:    input.Phone,
		Socials: Socials{
			Instagram: input.Instagram,
			Twitter:   input.Twitter,
			TikTok:    input.TikTok,
		},
		Portfolio: []PortfolioItem{},
		Approved:  true,
		CreatedAt: formatTimestamp(s.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("create talent: %w", err)
	}
	return ref, nil
}

func (s *Service) SetTalentApproval(ctx context.Context, id string, approved bool) error {
	ref := TalentRef(id)
	if ref == nil {
		return fmt.Errorf("set talent approval: %w", ErrNotFound)
	}

	if err := s.store.Update(ctx, ref, map[string]any{"approved": approved}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("set talent approval: %w", ErrNotFound)
		}
		return fmt.Errorf("set talent approval: %w", err)
	}

	s.logger.Info("talent approval changed", zap.String("id", id), zap.Bool("approved", approved))
	return nil
}

// CreatePost publishes a blog post. The URL of a post is its document id;
// the slug is kept for display.
func (s *Service) CreatePost(ctx context.Context, input PostInput) (*docstore.DocRef, error) {
	input = trimPost(input)
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	ref, err := s.store.Create(ctx, CollectionBlogPosts, BlogPost{
		Slug:        Slugify(input.Title),
		Title:       input.Title,
		Content:     input.Content,
		Author:      input.Author,
		PublishedAt: formatTimestamp(s.now()),
		Tags:        SplitTags(input.Tags),
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return ref, nil
}

func (s *Service) MarkMessageRead(ctx context.Context, id string, read bool) error {
	msgRef := ref(CollectionMessages, id)
	if msgRef == nil {
		return fmt.Errorf("mark message read: %w", ErrNotFound)
	}

	if err := s.store.Update(ctx, msgRef, map[string]any{"read": read}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("mark message read: %w", ErrNotFound)
		}
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// GrantAdmin creates roles_admin/{uid}. Only trusted callers reach it: the
// access rules never allow role writes.
func (s *Service) GrantAdmin(ctx context.Context, uid string, email string) error {
	ref := AdminRoleRef(uid)
	if ref == nil {
		return fmt.Errorf("grant admin: %w", ErrNotFound)
	}

	err := s.store.Set(docstore.Privileged(ctx), ref, AdminRole{
		Email:     email,
		GrantedAt: formatTimestamp(s.now()),
	})
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}

	s.logger.Info("admin role granted", zap.String("uid", uid))
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(title string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func profileSocials(input ProfileInput) Socials {
	return Socials{
		Instagram: input.Instagram,
		Twitter:   input.Twitter,
		TikTok:    input.TikTok,
		Facebook:  input.Facebook,
		YouTube:   input.YouTube,
	}
}

func trimContact(input ContactInput) ContactInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)
	return input
}

func trimProfile(input ProfileInput) ProfileInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Bio = strings.TrimSpace(input.Bio)
	input.Instagram = strings.TrimSpace(input.Instagram)
	input.Twitter = strings.TrimSpace(input.Twitter)
	input.TikTok = strings.TrimSpace(input.TikTok)
	input.Facebook = strings.TrimSpace(input.Facebook)
	input.YouTube = strings.TrimSpace(input.YouTube)
	return input
}

func trimTalent(input TalentInput) TalentInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Bio = strings.TrimSpace(input.Bio)
	return input
}

func trimPost(input PostInput) PostInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Content = strings.TrimSpace(input.Content)
	return input
}
