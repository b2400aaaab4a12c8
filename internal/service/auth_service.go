package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"loan-insights-be/internal/dto"
	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/pkg/apperr"
	"loan-insights-be/internal/pkg/mailer"
	"loan-insights-be/internal/repository/specification"
	"loan-insights-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

const otpTTL = 5 * time.Minute

type IAuthService interface {
	RequestOTP(ctx context.Context, req *dto.RequestOTPRequest) (*dto.RequestOTPResponse, error)
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	otpStore     *gocache.Cache
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, emailService mailer.IEmailService) IAuthService {
	return &authService{
		uowFactory:   uowFactory,
		emailService: emailService,
		otpStore:     gocache.New(otpTTL, 10*time.Minute),
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func (s *authService) RequestOTP(ctx context.Context, req *dto.RequestOTPRequest) (*dto.RequestOTPResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.AdminRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	otpCode, err := generateOTP()
	if err != nil {
		return nil, err
	}
	s.otpStore.Set(req.Email, otpCode, otpTTL)

	go func() {
		if emailErr := s.emailService.SendOTP(req.Email, otpCode); emailErr != nil {
			fmt.Printf("Error sending OTP email: %v\n", emailErr)
		}
	}()

	return &dto.RequestOTPResponse{Email: req.Email}, nil
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	stored, found := s.otpStore.Get(req.Email)
	if !found || stored.(string) != req.OTP {
		return nil, apperr.Validation("invalid or expired otp code")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.AdminRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &entity.Admin{
		Id:            uuid.New(),
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  string(hash),
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}

	if err := uow.AdminRepository().Create(ctx, admin); err != nil {
		return nil, err
	}

	s.otpStore.Delete(req.Email)

	return &dto.SignupResponse{Id: admin.Id, Email: admin.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	admin, err := uow.AdminRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	claims := jwt.MapClaims{
		"admin_id": admin.Id.String(),
		"email":    admin.Email,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: signedToken,
		TokenType:   "bearer",
	}, nil
}
