package services

import (
	"errors"
	"fmt"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound = errors.New("roll token not found")
	ErrTokenExpired  = errors.New("roll token has expired")
	ErrTokenConflict = errors.New("roll token already moved on")
)

// TokenLifetime is the validity window of a freshly issued roll token.
const TokenLifetime = 7 * 24 * time.Hour

// DiceTokenService drives the bonus-roll token machine. The chain is
// strictly linear (created -> user_scanned -> present_at_restaurant ->
// processed) and every step commits as a compare-and-swap on the expected
// prior state — customer app and staff app race on these rows across
// sessions, so in-process locking would not help.
type DiceTokenService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDiceTokenService(db *gorm.DB) *DiceTokenService {
	return &DiceTokenService{DB: db, Now: time.Now}
}

// CreateToken issues a fresh token for a restaurant.
func (s *DiceTokenService) CreateToken(restaurantID string) (*models.DiceToken, error) {
	tok := &models.DiceToken{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		TokenState:   models.TokenStateCreated,
		ExpiresAt:    s.Now().Add(TokenLifetime),
	}
	if err := s.DB.Create(tok).Error; err != nil {
		return nil, fmt.Errorf("failed to create roll token: %w", err)
	}
	return tok, nil
}

// UserScan: customer scans the token. created -> user_scanned.
func (s *DiceTokenService) UserScan(tokenID, userID string) (*models.DiceToken, error) {
	return s.transition(tokenID, models.TokenStateCreated, models.TokenStateUserScanned,
		map[string]interface{}{"user_scanned_by": userID})
}

// PresentAtRestaurant: staff scans the customer's token.
// user_scanned -> present_at_restaurant.
func (s *DiceTokenService) PresentAtRestaurant(tokenID, staffID string) (*models.DiceToken, error) {
	return s.transition(tokenID, models.TokenStateUserScanned, models.TokenStatePresentAtRestaurant,
		map[string]interface{}{"restaurant_scanned_by": staffID})
}

// ProcessRoll: staff settles the roll. present_at_restaurant -> processed.
func (s *DiceTokenService) ProcessRoll(tokenID, staffID string) (*models.DiceToken, error) {
	return s.transition(tokenID, models.TokenStatePresentAtRestaurant, models.TokenStateProcessed,
		map[string]interface{}{"processed_by": staffID})
}

// transition performs one guarded step. The UPDATE only matches rows whose
// current state equals the expected prior state; zero affected rows means
// someone else already transitioned the token (or it never was in that
// state), and the row is left untouched.
func (s *DiceTokenService) transition(tokenID string, from, to models.TokenState, extra map[string]interface{}) (*models.DiceToken, error) {
	var tok models.DiceToken
	if err := s.DB.First(&tok, "id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if tok.ExpiresAt.Before(s.Now()) {
		return nil, ErrTokenExpired
	}

	updates := map[string]interface{}{"token_state": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.DB.Model(&models.DiceToken{}).
		Where("id = ? AND token_state = ?", tokenID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w (expected %s)", ErrTokenConflict, from)
	}

	if err := s.DB.First(&tok, "id = ?", tokenID).Error; err != nil {
		return nil, err
	}
	return &tok, nil
}
