package service

import (
	"context"
	"strings"
	"time"

	"TripChat/logger"
	"TripChat/module/user/model"
	"TripChat/module/user/store"
	"TripChat/service/media"
	"TripChat/service/metrics"
	"TripChat/tools/errs"
	"TripChat/tools/safe"
	jwtsec "TripChat/tools/security"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errs.NewCodeError(errs.ArgsError, "invalid credentials")
	ErrEmailTaken         = errs.NewCodeError(errs.ArgsError, "this email already has an account, try logging in")
	ErrUsernameTaken      = errs.NewCodeError(errs.ArgsError, "this username is already taken")
	ErrBadDate            = errs.NewCodeError(errs.ArgsError, "invalid date of birth")
)

const (
	avatarFolder = "tripchat_users"
	dateLayout   = "2006-01-02"
)

var validate = validator.New()

type RegisterReq struct {
	Name        string `json:"name" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Username    string `json:"username" validate:"required,min=3"`
	DateOfBirth string `json:"dateOfBirth" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

type LoginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateReq struct {
	Name           string `json:"name" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	Username       string `json:"username" validate:"required,min=3"`
	DateOfBirth    string `json:"dateOfBirth" validate:"required"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
}

type Service struct {
	store    store.Store
	uploader media.Uploader
	jwt      jwtsec.Options
	cost     int
	log      *zap.Logger
}

func New(st store.Store, up media.Uploader, jwt jwtsec.Options) *Service {
	safe.MustNotNil(st, "user store")
	safe.MustNotNil(up, "uploader")
	return &Service{
		store:    st,
		uploader: up,
		jwt:      jwt,
		cost:     bcrypt.DefaultCost,
		log:      logger.Named("user"),
	}
}

// SetHashCost changes the bcrypt cost; tests lower it.
func (s *Service) SetHashCost(cost int) { s.cost = cost }

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, req RegisterReq) (*model.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, "", validationError(err, "all fields are required")
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, "", err
	}

	taken, err := s.store.EmailTaken(ctx, req.Email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", ErrEmailTaken.WrapMsg("", "email", req.Email)
	}
	if taken, err = s.store.UsernameTaken(ctx, req.Username, ""); err != nil {
		return nil, "", err
	} else if taken {
		return nil, "", ErrUsernameTaken.WrapMsg("", "username", req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, "", errs.WrapMsg(err, "hash password")
	}
	u := &model.User{
		Name:           req.Name,
		LastName:       req.LastName,
		Username:       req.Username,
		DateOfBirth:    dob,
		Email:          req.Email,
		Password:       string(hash),
		ProfilePicture: model.DefaultProfilePicture,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user registered", zap.String("user", u.GetUserID()))
	return u, token, nil
}

// Login checks the password. Unknown email and wrong password fail the same way.
func (s *Service) Login(ctx context.Context, req LoginReq) (*model.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, "", validationError(err, "email and password are required")
	}
	u, err := s.store.FindByEmail(ctx, req.Email)
	if errors.Is(err, errs.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials.WrapMsg("unknown email")
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials.WrapMsg("password mismatch", "user", u.GetUserID())
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	u.Password = ""
	return u, token, nil
}

// Update changes the caller's profile. A data-URL picture is uploaded first;
// if that fails the current picture is kept.
func (s *Service) Update(ctx context.Context, userID string, req UpdateReq) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err, "name, last name, username and date of birth are required")
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	taken, err := s.store.UsernameTaken(ctx, req.Username, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken.WrapMsg("", "username", req.Username)
	}

	p := model.Profile{
		Name:        req.Name,
		LastName:    req.LastName,
		Username:    req.Username,
		DateOfBirth: dob,
		Bio:         req.Bio,
	}
	if strings.HasPrefix(req.ProfilePicture, "data:") {
		url, err := s.uploader.Upload(ctx, req.ProfilePicture, media.Options{Folder: avatarFolder})
		if err != nil {
			metrics.UploadFailures.Inc()
			s.log.Warn("profile picture upload failed, keeping the old one",
				zap.String("user", userID), zap.Error(err))
		} else {
			p.ProfilePicture = url
		}
	}
	return s.store.UpdateProfile(ctx, userID, p)
}

func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.store.FindByID(ctx, userID)
}

// Sidebar lists every user except the caller, newest first.
func (s *Service) Sidebar(ctx context.Context, userID string) ([]model.User, error) {
	return s.store.ListExcept(ctx, userID)
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	return s.store.Exists(ctx, userID)
}

// TokenTTL is how long issued session tokens stay valid.
func (s *Service) TokenTTL() time.Duration {
	if s.jwt.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.jwt.TTL
}

func (s *Service) issue(u *model.User) (string, error) {
	token, _, err := jwtsec.Generate(s.jwt, u.GetUserID())
	if err != nil {
		return "", errs.WrapMsg(err, "sign token", "user", u.GetUserID())
	}
	return token, nil
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrBadDate.WrapMsg("", "value", v)
}

func validationError(err error, requiredMsg string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.ErrArgs.WrapMsg(err.Error())
	}
	fe := verrs[0]
	msg := requiredMsg
	switch {
	case fe.Tag() == "required":
	case fe.Field() == "Password" && fe.Tag() == "min":
		msg = "password must be at least 6 characters"
	case fe.Field() == "Password":
		msg = "password is too long"
	case fe.Field() == "Username":
		msg = "username must be at least 3 characters"
	case fe.Field() == "Email":
		msg = "invalid email"
	default:
		msg = "invalid " + strings.ToLower(fe.Field())
	}
	return errs.NewCodeError(errs.ArgsError, msg).WrapMsg(fe.Error())
}
