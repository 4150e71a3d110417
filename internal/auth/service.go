package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/notifications"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/config"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/middleware"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Referral codes avoid 0/O and 1/I so they survive being read aloud.
const referralCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const referralCodeLen = 8

// Service handles login flows: phone OTP and Google OAuth. Both resolve to
// the same user record and the same bearer token.
type Service struct {
	repo      RepositoryInterface
	store     cache.Store
	sms       notifications.SMSSender
	jwtSecret string
	jwtExpiry time.Duration
	oauth     *oauth2.Config
}

// NewService creates a new auth service. The Google flow stays disabled when
// OAuth credentials are not configured.
func NewService(repo RepositoryInterface, store cache.Store, sms notifications.SMSSender, cfg *config.Config) *Service {
	s := &Service{
		repo:      repo,
		store:     store,
		sms:       sms,
		jwtSecret: cfg.JWT.Secret,
		jwtExpiry: cfg.JWT.Expiration(),
	}
	if cfg.OAuth.Configured() {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       []string{goauth.UserinfoEmailScope, goauth.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

// SendOTP generates a login code, stores it under the phone's key, and texts
// it. A resend overwrites the previous code.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	code, err := generateOTP()
	if err != nil {
		return common.NewInternalError("failed to generate code", err)
	}

	if err := s.store.Set(ctx, cache.OTPKey(phone), code, cache.OTPTTL); err != nil {
		return common.NewInternalError("failed to store code", err)
	}

	body := fmt.Sprintf("Your Safar login code is %s. It expires in 5 minutes.", code)
	if err := s.sms.SendSMS(ctx, phone, body); err != nil {
		logger.ErrorContext(ctx, "otp delivery failed", zap.Error(err))
		return common.NewInternalError("failed to send code", err)
	}
	return nil
}

// VerifyOTP checks the code, consumes it, and logs the caller in. A first
// login creates the user record.
func (s *Service) VerifyOTP(ctx context.Context, phone, otp string) (*AuthResponse, error) {
	stored, err := s.store.Get(ctx, cache.OTPKey(phone))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, common.NewUnauthorizedError("invalid or expired code")
		}
		return nil, common.NewInternalError("failed to read code", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) != 1 {
		return nil, common.NewUnauthorizedError("invalid or expired code")
	}
	// Single use.
	if err := s.store.Delete(ctx, cache.OTPKey(phone)); err != nil {
		logger.WarnContext(ctx, "failed to consume otp", zap.Error(err))
	}

	user, err := s.findOrCreateByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, user)
}

// GoogleConfigured reports whether the OAuth flow can be served.
func (s *Service) GoogleConfigured() bool {
	return s.oauth != nil
}

// GoogleLoginURL returns the consent page URL with a fresh state nonce.
func (s *Service) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.oauth == nil {
		return "", common.NewInternalError("google oauth not configured", nil)
	}

	state := uuid.NewString()
	if err := s.store.Set(ctx, cache.OAuthStateKey(state), "1", cache.OAuthStateTTL); err != nil {
		return "", common.NewInternalError("failed to store oauth state", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// GoogleCallback completes the consent round-trip and logs the caller in,
// creating the account on first sight of the email.
func (s *Service) GoogleCallback(ctx context.Context, state, code string) (*AuthResponse, error) {
	if s.oauth == nil {
		return nil, common.NewInternalError("google oauth not configured", nil)
	}

	if _, err := s.store.Get(ctx, cache.OAuthStateKey(state)); err != nil {
		return nil, common.NewUnauthorizedError("invalid oauth state")
	}
	_ = s.store.Delete(ctx, cache.OAuthStateKey(state))

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, common.NewUnauthorizedError("oauth code exchange failed")
	}

	svc, err := goauth.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, common.NewInternalError("failed to build userinfo client", err)
	}
	info, err := svc.Userinfo.Get().Do()
	if err != nil || info.Email == "" {
		return nil, common.NewUnauthorizedError("failed to fetch google profile")
	}

	user, err := s.findOrCreateByEmail(ctx, info)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, user)
}

func (s *Service) login(ctx context.Context, user *models.User) (*AuthResponse, error) {
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		logger.WarnContext(ctx, "failed to stamp login time", zap.Error(err))
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, common.NewInternalError("failed to issue token", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *Service) findOrCreateByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.repo.GetByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	user, err = s.createUser(ctx, phone, nil, nil)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "new user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// findOrCreateByEmail resolves a Google profile to a user. Accounts created
// this way have no phone yet; a synthetic unique value keeps the column's
// uniqueness honest until the user verifies a real number.
func (s *Service) findOrCreateByEmail(ctx context.Context, info *goauth.Userinfo) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, info.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	var name *string
	if info.Name != "" {
		name = &info.Name
	}
	email := info.Email
	phone := "google:" + info.Id

	user, err = s.createUser(ctx, phone, name, &email)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "new user registered via google", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) createUser(ctx context.Context, phone string, name, email *string) (*models.User, error) {
	referral, err := generateReferralCode()
	if err != nil {
		return nil, common.NewInternalError("failed to generate referral code", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Phone:        phone,
		Name:         name,
		Email:        email,
		ReferralCode: referral,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, common.NewInternalError("failed to create user", err)
	}
	return user, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		UserID: user.ID,
		Phone:  user.Phone,
		Admin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateReferralCode() (string, error) {
	code := make([]byte, referralCodeLen)
	max := big.NewInt(int64(len(referralCharset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralCharset[n.Int64()]
	}
	return string(code), nil
}
