package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/healthmate/server/internal/models"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
	"gorm.io/gorm"
)

const dateOfBirthLayout = "2006-01-02"

type RegistrationInput struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02,pastdate"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,max=256"`
}

// Identity is what a successful login reveals about a user. It never carries the digest.
type Identity struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type CredentialService struct {
	DB       *gorm.DB
	validate *validator.Validate
	// dummyHash is verified against when the email is unknown so both failure paths cost one hash.
	dummyHash string
}

func NewCredentialService(db *gorm.DB) *CredentialService {
	dummy, err := utils.HashPassword("healthmate-unknown-account")
	if err != nil {
		logger.Error("dummy_hash_failed", err, nil)
	}
	return &CredentialService{
		DB:        db,
		validate:  newValidator(),
		dummyHash: dummy,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		parsed, err := time.Parse(dateOfBirthLayout, fl.Field().String())
		if err != nil {
			// datetime reports the format problem.
			return true
		}
		return !parsed.After(time.Now().UTC())
	})
	return v
}

// NormalizeEmail trims and lower-cases so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *CredentialService) Register(ctx context.Context, input RegistrationInput) (*models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.DateOfBirth = strings.TrimSpace(input.DateOfBirth)
	input.Email = NormalizeEmail(input.Email)

	if err := s.validate.Struct(input); err != nil {
		return nil, toValidationError(err)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		DateOfBirth:  input.DateOfBirth,
		Email:        input.Email,
		PasswordHash: hash,
	}

	// No pre-check: the unique index decides which of two racing sign-ups wins.
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			logger.Warn("registration_duplicate_email", map[string]interface{}{
				"email": input.Email,
			})
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return &user, nil
}

func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CheckPassword(password, s.dummyHash)
		logger.Warn("login_failed", map[string]interface{}{
			"email":  email,
			"reason": "unknown_email",
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		logger.WarnWithUser(strconv.FormatUint(uint64(user.ID), 10), "login_failed", map[string]interface{}{
			"email":  email,
			"reason": "password_mismatch",
		})
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = describeFieldError(fe)
	}
	return out
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "pastdate":
		return "cannot be in the future"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
