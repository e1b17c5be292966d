package service

import (
	"context"
	"strings"

	"TripChat/logger"
	"TripChat/module/message/model"
	"TripChat/module/message/store"
	"TripChat/service/chat"
	"TripChat/service/media"
	"TripChat/service/metrics"
	"TripChat/tools/errs"
	"TripChat/tools/safe"

	"go.uber.org/zap"
)

var ErrInvalidTarget = errs.NewCodeError(errs.ArgsError, "invalid target")

// Notifier pushes live events to whichever connection a user holds when
// the push happens. *chat.Server implements it.
type Notifier interface {
	Lookup(userID string) (chat.Handle, bool)
	Push(h chat.Handle, userID, event string, data any) bool
}

type SendReq struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type Service struct {
	store    store.Store
	uploader media.Uploader
	notifier Notifier
	folder   string
	log      *zap.Logger
}

type Option func(*Service)

func WithFolder(folder string) Option {
	return func(s *Service) { s.folder = folder }
}

func New(st store.Store, up media.Uploader, n Notifier, opts ...Option) *Service {
	safe.MustNotNil(st, "message store")
	safe.MustNotNil(up, "uploader")
	safe.MustNotNil(n, "notifier")
	s := &Service{
		store:    st,
		uploader: up,
		notifier: n,
		folder:   "tripchat_messages",
		log:      logger.Named("message"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send persists a message from senderID to receiverID. An image that fails to
// upload is dropped and the message is stored without it. Live delivery is
// left to Deliver so the caller can answer first.
func (s *Service) Send(ctx context.Context, senderID, receiverID string, req SendReq) (*model.Message, error) {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, ErrInvalidTarget.WrapMsg("empty receiver", "sender", senderID)
	}

	var imageURL string
	if req.Image != "" {
		url, err := s.uploader.Upload(ctx, req.Image, media.Options{Folder: s.folder})
		if err != nil {
			metrics.UploadFailures.Inc()
			s.log.Warn("image upload failed, sending without image",
				zap.String("sender", senderID), zap.String("receiver", receiverID), zap.Error(err))
		} else {
			imageURL = url
		}
	}

	msg := &model.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       req.Text,
		Image:      imageURL,
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()
	return msg, nil
}

// Deliver pushes newMessage to the receiver and messageSent to the sender,
// resolving both connections at push time. Misses are not errors.
// Pushes only enqueue, so Deliver runs on the caller's goroutine and a
// writer's messages reach the receiver in the order they were sent.
func (s *Service) Deliver(msg *model.Message) {
	m := *msg
	safe.Run(func() {
		if h, ok := s.notifier.Lookup(m.ReceiverID); ok {
			s.notifier.Push(h, m.ReceiverID, chat.EventNewMessage, m)
		}
		if h, ok := s.notifier.Lookup(m.SenderID); ok {
			s.notifier.Push(h, m.SenderID, chat.EventMessageSent, m)
		}
	})
}

// Delete removes a message its sender asked to delete and returns it. Anyone
// else gets ErrForbidden and the message stays.
func (s *Service) Delete(ctx context.Context, requesterID, messageID string) (*model.Message, error) {
	msg, err := s.store.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, errs.ErrForbidden.WrapMsg("only the sender can delete a message",
			"message", messageID, "requester", requesterID)
	}
	if err := s.store.Delete(ctx, messageID); err != nil {
		return nil, err
	}
	return msg, nil
}

// AnnounceDeleted tells both parties the message is gone. A self-message
// resolves to one connection and is pushed once.
func (s *Service) AnnounceDeleted(msg *model.Message) {
	senderID, receiverID := msg.SenderID, msg.ReceiverID
	payload := chat.DeletedPayload{MessageID: msg.ID.Hex()}
	safe.Run(func() {
		sh, sok := s.notifier.Lookup(senderID)
		if sok {
			s.notifier.Push(sh, senderID, chat.EventMessageDeleted, payload)
		}
		rh, rok := s.notifier.Lookup(receiverID)
		if rok && !(sok && rh.ID() == sh.ID()) {
			s.notifier.Push(rh, receiverID, chat.EventMessageDeleted, payload)
		}
	})
}

// MarkRead flags every unread message partnerID sent to userID as read.
func (s *Service) MarkRead(ctx context.Context, userID, partnerID string) (int64, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return 0, ErrInvalidTarget.WrapMsg("empty partner", "user", userID)
	}
	return s.store.MarkRead(ctx, partnerID, userID)
}

func (s *Service) Conversation(ctx context.Context, userID, partnerID string) ([]model.Message, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return nil, ErrInvalidTarget.WrapMsg("empty partner", "user", userID)
	}
	return s.store.Conversation(ctx, userID, partnerID)
}

func (s *Service) LastActivities(ctx context.Context, userID string) ([]model.Activity, error) {
	return s.store.LastActivities(ctx, userID)
}
