package storage

import (
	"context"
	"errors"
	"strings"

	"matchago/backend/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// Storage is the persistent-store boundary the matching core reads users
// through and writes match records to. It never mutates user rows.
type Storage interface {
	GetProjection(ctx context.Context, userID string) (*models.Projection, error)
	SaveMatch(ctx context.Context, m *models.Match) error
	EnsureGuest(ctx context.Context, guestID string) error
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// GetProjection loads the fixed read-only slice of a user the matcher
// consumes. Gender and the stored filter are normalized here; raw strings
// never reach matching logic.
func (s *Service) GetProjection(ctx context.Context, userID string) (*models.Projection, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	interests := make([]string, 0, len(user.Interests))
	for _, tag := range user.Interests {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			interests = append(interests, tag)
		}
	}

	filter, ok := models.ParseGenderFilter(user.GenderPref)
	if !ok {
		filter = models.FilterAny
	}

	return &models.Projection{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Gender:      models.NormalizeGender(user.Gender),
		IsPro:       user.IsPro,
		IsGuest:     user.IsGuest,
		Interests:   interests,
		Filter:      filter,
	}, nil
}

// SaveMatch appends one match record. Records are immutable after creation.
func (s *Service) SaveMatch(ctx context.Context, m *models.Match) error {
	return s.DB.WithContext(ctx).Create(m).Error
}

// EnsureGuest creates a guest shell row on first contact so projections
// resolve for guests too. Idempotent.
func (s *Service) EnsureGuest(ctx context.Context, guestID string) error {
	guest := models.User{
		ID:          guestID,
		DisplayName: "Stranger",
		IsGuest:     true,
	}
	return s.DB.WithContext(ctx).
		Where("id = ?", guestID).
		FirstOrCreate(&guest).Error
}
