// Package kyc — service.go: подача документов и проверка админом.
package kyc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications"
)

// Store — хранилище заявок.
type Store interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	Upsert(ctx context.Context, s *Submission) error
	List(ctx context.Context, status string, page common.Page) ([]*Submission, int, error)
	Review(ctx context.Context, id, operatorID uuid.UUID, status, note string, now time.Time) (*Reviewed, error)
}

// ObjectStore — хранилище файлов документов.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service управляет KYC.
type Service struct {
	store    Store
	objects  ObjectStore
	notifier notifications.Notifier
	now      func() time.Time
}

// NewService создаёт сервис. objects может быть nil — тогда подача документов выключена.
func NewService(store Store, objects ObjectStore, notifier notifications.Notifier) *Service {
	return &Service{store: store, objects: objects, notifier: notifier, now: time.Now}
}

// DocumentKey — kyc/<userID>/<unix-nano><ext>.
func DocumentKey(userID uuid.UUID, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return UserPrefix(userID.String()) + strconv.FormatInt(at.UnixNano(), 10) + ext
}

// Submit загружает документ и сохраняет заявку.
// Если запись в БД не удалась, загруженный файл удаляется.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest, doc Document, body io.Reader) (*Submission, error) {
	if s.objects == nil {
		return nil, common.ErrStorageDisabled
	}
	if body == nil || doc.Size <= 0 {
		return nil, common.ErrDocumentRequired
	}

	prev, err := s.store.GetByUser(ctx, userID)
	switch {
	case err == nil && prev.Status == StatusApproved:
		return nil, common.ErrKYCAlreadyApproved
	case err != nil && !errors.Is(err, common.ErrKYCNotFound):
		return nil, err
	}

	key := DocumentKey(userID, doc.Filename, s.now())
	if err := s.objects.Put(ctx, key, body, doc.Size, doc.ContentType); err != nil {
		return nil, err
	}

	sub := &Submission{
		ID:             uuid.New(),
		UserID:         userID,
		FullName:       strings.TrimSpace(req.FullName),
		DocumentType:   strings.TrimSpace(req.DocumentType),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		DocumentKey:    key,
	}
	if err := s.store.Upsert(ctx, sub); err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	if prev != nil && prev.DocumentKey != "" && prev.DocumentKey != key {
		s.deleteObject(ctx, prev.DocumentKey)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"kyc_id":  sub.ID,
		"type":    sub.DocumentType,
	}).Info("Документы KYC поданы")

	s.notifier.Notify(ctx, notifications.Message{
		UserID: userID,
		Title:  "KYC Submitted",
		Body:   "Your documents were received and are awaiting review.",
		Type:   notifications.TypeKYC,
	})
	s.notifier.AlertAdmins(ctx, fmt.Sprintf("New KYC submission: %s (%s)", sub.FullName, sub.DocumentType))
	return sub, nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if err := s.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.WithError(err).WithField("key", key).Warn("Не удалось удалить документ KYC")
	}
}

// Mine — заявка текущего пользователя.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) (*Submission, error) {
	return s.store.GetByUser(ctx, userID)
}

// List — заявки для админки.
func (s *Service) List(ctx context.Context, status string, page common.Page) ([]*Submission, int, error) {
	switch status {
	case "", StatusSubmitted, StatusApproved, StatusRejected:
	default:
		return nil, 0, fmt.Errorf("unknown status %q: %w", status, common.ErrKYCInvalidDecision)
	}
	return s.store.List(ctx, status, page)
}

// Review — решение админа: approved или rejected.
func (s *Service) Review(ctx context.Context, id, operatorID uuid.UUID, req ReviewRequest) (*Submission, error) {
	decision := strings.ToLower(strings.TrimSpace(req.Decision))
	if decision != StatusApproved && decision != StatusRejected {
		return nil, common.ErrKYCInvalidDecision
	}

	res, err := s.store.Review(ctx, id, operatorID, decision, strings.TrimSpace(req.Note), s.now())
	if err != nil {
		return nil, err
	}
	sub := res.Submission

	log.WithFields(log.Fields{
		"kyc_id":   sub.ID,
		"user_id":  sub.UserID,
		"status":   sub.Status,
		"operator": operatorID,
	}).Info("KYC проверен")

	msg := notifications.Message{UserID: sub.UserID, Type: notifications.TypeKYC}
	if decision == StatusApproved {
		msg.Title = "KYC Approved"
		msg.Body = "Your identity is verified. Withdrawals are now enabled."
	} else {
		msg.Title = "KYC Rejected"
		msg.Body = "Your documents were rejected. Please submit them again."
		if sub.ReviewNote != "" {
			msg.Body += " Reason: " + sub.ReviewNote
		}
	}
	s.notifier.Notify(ctx, msg)
	if res.OwnerEmail != "" {
		s.notifier.Email(ctx, notifications.Email{
			To:      res.OwnerEmail,
			Subject: msg.Title,
			Message: msg.Body,
			Kind:    "kyc_" + decision,
		})
	}
	return sub, nil
}

// DocumentURL — временная ссылка на документ заявки.
func (s *Service) DocumentURL(ctx context.Context, id uuid.UUID) (string, error) {
	if s.objects == nil {
		return "", common.ErrStorageDisabled
	}
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if sub.DocumentKey == "" {
		return "", common.ErrDocumentRequired
	}
	return s.objects.PresignGet(ctx, sub.DocumentKey, PresignTTL)
}
