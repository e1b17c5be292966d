package media

import (
	"context"
	"strings"

	"TripChat/logger"
	"TripChat/tools/errs"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

//go:generate mockgen -source=media.go -destination=mocks/uploader_mock.go -package=mocks

var ErrUploadDisabled = errs.New("media upload is not configured")

type Options struct {
	Folder string
}

// Uploader stores an image payload (a data URI or a remote URL) and returns
// its public https URL.
type Uploader interface {
	Upload(ctx context.Context, payload string, opts Options) (string, error)
}

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type cloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

// New returns a Cloudinary-backed uploader, or one that always fails with
// ErrUploadDisabled when the credentials are missing.
func New(cfg Config) (Uploader, error) {
	if !cfg.Enabled() {
		logger.Warn("cloudinary credentials missing, image upload disabled")
		return disabled{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, errs.WrapMsg(err, "init cloudinary", "cloud", cfg.CloudName)
	}
	cld.Config.URL.Secure = true
	return &cloudinaryUploader{cld: cld, folder: cfg.Folder, log: logger.Named("media")}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, payload string, opts Options) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", errs.ErrArgs.WrapMsg("empty image payload")
	}
	folder := opts.Folder
	if folder == "" {
		folder = u.folder
	}
	res, err := u.cld.Upload.Upload(ctx, payload, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", errs.WrapMsg(err, "cloudinary upload", "folder", folder)
	}
	if res.Error.Message != "" {
		return "", errs.New("cloudinary rejected upload", "folder", folder, "reason", res.Error.Message)
	}
	u.log.Debug("image uploaded", zap.String("publicId", res.PublicID), zap.Int("bytes", res.Bytes))
	return res.SecureURL, nil
}

type disabled struct{}

func (disabled) Upload(context.Context, string, Options) (string, error) {
	return "", ErrUploadDisabled
}
