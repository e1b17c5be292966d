package service

import (
	"context"
	"testing"
	"time"

	"TripChat/module/user/store"
	"TripChat/service/media"
	"TripChat/service/media/mocks"
	"TripChat/tools/errs"
	jwtsec "TripChat/tools/security"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

var testJWT = jwtsec.DefaultOptions([]byte("0123456789abcdef0123"))

func newService(t *testing.T) (*Service, *store.Memory, *mocks.MockUploader) {
	t.Helper()
	st := store.NewMemory()
	up := mocks.NewMockUploader(gomock.NewController(t))
	s := New(st, up, testJWT)
	s.SetHashCost(bcrypt.MinCost)
	return s, st, up
}

func validRegister() RegisterReq {
	return RegisterReq{
		Name:        "Ada",
		LastName:    "Lovelace",
		Username:    "ada",
		DateOfBirth: "1815-12-10",
		Email:       "Ada@Example.com",
		Password:    "secret1",
	}
}

func TestRegister_IssuesTokenAndHashes(t *testing.T) {
	s, _, _ := newService(t)

	u, token, err := s.Register(context.Background(), validRegister())
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, "default.jpg", u.ProfilePicture)
	require.NotEqual(t, "secret1", u.Password)
	require.Equal(t, 1815, u.DateOfBirth.Year())

	claims, err := jwtsec.Verify(testJWT, token)
	require.NoError(t, err)
	require.Equal(t, u.GetUserID(), claims.UserID)
}

func TestRegister_Validation(t *testing.T) {
	s, _, _ := newService(t)
	cases := []struct {
		name string
		mut  func(*RegisterReq)
		msg  string
	}{
		{"missing name", func(r *RegisterReq) { r.Name = "" }, "all fields are required"},
		{"short password", func(r *RegisterReq) { r.Password = "12345" }, "password must be at least 6 characters"},
		{"short username", func(r *RegisterReq) { r.Username = "ab" }, "username must be at least 3 characters"},
		{"bad email", func(r *RegisterReq) { r.Email = "nope" }, "invalid email"},
		{"bad date", func(r *RegisterReq) { r.DateOfBirth = "yesterday" }, "invalid date of birth"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegister()
			tc.mut(&req)
			_, _, err := s.Register(context.Background(), req)
			require.Error(t, err)
			require.Equal(t, 400, errs.Status(err))
			code, ok := errs.AsCode(err)
			require.True(t, ok)
			require.Equal(t, tc.msg, code.Msg)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := s.Register(ctx, validRegister())
	require.NoError(t, err)

	_, _, err = s.Register(ctx, validRegister())
	require.ErrorIs(t, err, ErrEmailTaken)

	req := validRegister()
	req.Email = "other@example.com"
	_, _, err = s.Register(ctx, req)
	require.ErrorIs(t, err, errs.ErrArgs)
	code, _ := errs.AsCode(err)
	require.Equal(t, ErrUsernameTaken.Msg, code.Msg)
}

func TestLogin(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	reg, _, err := s.Register(ctx, validRegister())
	require.NoError(t, err)

	u, token, err := s.Login(ctx, LoginReq{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, reg.ID, u.ID)
	require.Empty(t, u.Password)
	require.NotEmpty(t, token)

	_, _, err = s.Login(ctx, LoginReq{Email: "ada@example.com", Password: "wrong!!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(ctx, LoginReq{Email: "ghost@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	code, _ := errs.AsCode(err)
	require.Equal(t, "invalid credentials", code.Msg)
}

func TestUpdate_UploadsPicture(t *testing.T) {
	s, _, up := newService(t)
	ctx := context.Background()
	u, _, err := s.Register(ctx, validRegister())
	require.NoError(t, err)

	up.EXPECT().
		Upload(gomock.Any(), "data:image/png;base64,AA", media.Options{Folder: "tripchat_users"}).
		Return("https://cdn.example/ada.jpg", nil)

	got, err := s.Update(ctx, u.GetUserID(), UpdateReq{
		Name: "Ada", LastName: "King", Username: "countess", DateOfBirth: "1815-12-10",
		Bio: "analyst", ProfilePicture: "data:image/png;base64,AA",
	})
	require.NoError(t, err)
	require.Equal(t, "King", got.LastName)
	require.Equal(t, "countess", got.Username)
	require.Equal(t, "https://cdn.example/ada.jpg", got.ProfilePicture)
	require.Empty(t, got.Password)
}

func TestUpdate_UploadFailureKeepsPicture(t *testing.T) {
	s, _, up := newService(t)
	ctx := context.Background()
	u, _, err := s.Register(ctx, validRegister())
	require.NoError(t, err)

	up.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return("", media.ErrUploadDisabled)

	got, err := s.Update(ctx, u.GetUserID(), UpdateReq{
		Name: "Ada", LastName: "Lovelace", Username: "ada", DateOfBirth: "1815-12-10",
		ProfilePicture: "data:image/png;base64,AA",
	})
	require.NoError(t, err)
	require.Equal(t, "default.jpg", got.ProfilePicture)
}

func TestUpdate_UsernameTakenAndMissingUser(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()
	ada, _, err := s.Register(ctx, validRegister())
	require.NoError(t, err)
	other := validRegister()
	other.Username, other.Email = "bob", "bob@example.com"
	_, _, err = s.Register(ctx, other)
	require.NoError(t, err)

	req := UpdateReq{Name: "Ada", LastName: "L", Username: "bob", DateOfBirth: "1815-12-10"}
	_, err = s.Update(ctx, ada.GetUserID(), req)
	require.ErrorIs(t, err, ErrUsernameTaken)

	// keeping one's own username is fine
	req.Username = "ada"
	_, err = s.Update(ctx, ada.GetUserID(), req)
	require.NoError(t, err)

	st.Remove(ada.GetUserID())
	_, err = s.Update(ctx, ada.GetUserID(), req)
	require.ErrorIs(t, err, errs.ErrRecordNotFound)
}

func TestSidebar_ExcludesCaller(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"ann", "ben", "cid"} {
		req := validRegister()
		req.Username, req.Email = name, name+"@example.com"
		u, _, err := s.Register(ctx, req)
		require.NoError(t, err)
		ids = append(ids, u.GetUserID())
	}

	users, err := s.Sidebar(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "cid", users[0].Username)
	require.Equal(t, "ben", users[1].Username)
	for _, u := range users {
		require.Empty(t, u.Password)
	}
}

func TestTokenTTL(t *testing.T) {
	up := mocks.NewMockUploader(gomock.NewController(t))
	s := New(store.NewMemory(), up, jwtsec.Options{Secret: []byte("x")})
	require.Equal(t, 7*24*time.Hour, s.TokenTTL())
}
