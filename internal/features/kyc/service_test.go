package kyc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
	"serotonyl.ru/invest-platform/internal/features/notifications/notifytest"
)

type memStore struct {
	byUser    map[uuid.UUID]*Submission
	upsertErr error
}

func newMemStore() *memStore { return &memStore{byUser: map[uuid.UUID]*Submission{}} }

func (m *memStore) GetByUser(_ context.Context, userID uuid.UUID) (*Submission, error) {
	s, ok := m.byUser[userID]
	if !ok {
		return nil, common.ErrKYCNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	for _, s := range m.byUser {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrKYCNotFound
}

func (m *memStore) Upsert(_ context.Context, s *Submission) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if prev, ok := m.byUser[s.UserID]; ok {
		s.ID = prev.ID
	}
	s.Status = StatusSubmitted
	cp := *s
	m.byUser[s.UserID] = &cp
	return nil
}

func (m *memStore) List(context.Context, string, common.Page) ([]*Submission, int, error) {
	return nil, 0, nil
}

func (m *memStore) Review(_ context.Context, id, operatorID uuid.UUID, status, note string, now time.Time) (*Reviewed, error) {
	for _, s := range m.byUser {
		if s.ID != id {
			continue
		}
		if s.Status == StatusApproved {
			return nil, common.ErrKYCAlreadyApproved
		}
		s.Status = status
		s.ReviewNote = note
		s.ReviewedBy = &operatorID
		s.ReviewedAt = &now
		cp := *s
		return &Reviewed{Submission: &cp, OwnerEmail: "user@example.com"}, nil
	}
	return nil, common.ErrKYCNotFound
}

type memObjects struct {
	objects map[string][]byte
	putErr  error
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.example.com/" + key + "?ttl=" + ttl.String(), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func submitForm() SubmitRequest {
	return SubmitRequest{FullName: " Jane Doe ", DocumentType: "passport", DocumentNumber: "X123"}
}

func passport() (Document, io.Reader) {
	data := []byte("%PDF-1.4 passport")
	return Document{Filename: "Scan.PDF", ContentType: "application/pdf", Size: int64(len(data))}, bytes.NewReader(data)
}

func TestDocumentKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "kyc/11111111-2222-3333-4444-555555555555/1700000000000000000.pdf", DocumentKey(id, "Scan.PDF", at))
}

func TestSubmit_UploadsAndStores(t *testing.T) {
	store, objects, rec := newMemStore(), newMemObjects(), &notifytest.Recorder{}
	svc := NewService(store, objects, rec)
	user := uuid.New()

	doc, body := passport()
	sub, err := svc.Submit(context.Background(), user, submitForm(), doc, body)
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, sub.Status)
	assert.Equal(t, "Jane Doe", sub.FullName)
	assert.True(t, strings.HasPrefix(sub.DocumentKey, "kyc/"+user.String()+"/"))
	assert.Contains(t, objects.objects, sub.DocumentKey)
	assert.Equal(t, []string{"KYC Submitted"}, rec.Titles())
	assert.Len(t, rec.Alerts, 1)
}

func TestSubmit_ResubmitReplacesDocument(t *testing.T) {
	store, objects := newMemStore(), newMemObjects()
	svc := NewService(store, objects, &notifytest.Recorder{})
	user := uuid.New()
	ctx := context.Background()

	doc, body := passport()
	first, err := svc.Submit(ctx, user, submitForm(), doc, body)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	doc, body = passport()
	second, err := svc.Submit(ctx, user, submitForm(), doc, body)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotContains(t, objects.objects, first.DocumentKey)
	assert.Contains(t, objects.objects, second.DocumentKey)
}

func TestSubmit_StoreFailureRemovesUpload(t *testing.T) {
	store, objects := newMemStore(), newMemObjects()
	store.upsertErr = errors.New("db down")
	svc := NewService(store, objects, &notifytest.Recorder{})

	doc, body := passport()
	_, err := svc.Submit(context.Background(), uuid.New(), submitForm(), doc, body)
	require.Error(t, err)
	assert.Empty(t, objects.objects)
}

func TestSubmit_Guards(t *testing.T) {
	ctx := context.Background()

	svc := NewService(newMemStore(), nil, &notifytest.Recorder{})
	doc, body := passport()
	_, err := svc.Submit(ctx, uuid.New(), submitForm(), doc, body)
	assert.ErrorIs(t, err, common.ErrStorageDisabled)

	svc = NewService(newMemStore(), newMemObjects(), &notifytest.Recorder{})
	_, err = svc.Submit(ctx, uuid.New(), submitForm(), Document{Filename: "a.png"}, nil)
	assert.ErrorIs(t, err, common.ErrDocumentRequired)
}

func TestReview(t *testing.T) {
	store, objects, rec := newMemStore(), newMemObjects(), &notifytest.Recorder{}
	svc := NewService(store, objects, rec)
	ctx := context.Background()
	user := uuid.New()

	doc, body := passport()
	sub, err := svc.Submit(ctx, user, submitForm(), doc, body)
	require.NoError(t, err)

	_, err = svc.Review(ctx, sub.ID, uuid.New(), ReviewRequest{Decision: "maybe"})
	assert.ErrorIs(t, err, common.ErrKYCInvalidDecision)

	reviewed, err := svc.Review(ctx, sub.ID, uuid.New(), ReviewRequest{Decision: "Approved"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.Contains(t, rec.Titles(), "KYC Approved")
	require.Len(t, rec.Emails, 1)
	assert.Equal(t, "kyc_approved", rec.Emails[0].Kind)

	doc, body = passport()
	_, err = svc.Submit(ctx, user, submitForm(), doc, body)
	assert.ErrorIs(t, err, common.ErrKYCAlreadyApproved)

	url, err := svc.DocumentURL(ctx, sub.ID)
	require.NoError(t, err)
	assert.Contains(t, url, sub.DocumentKey)
	assert.Contains(t, url, "ttl=15m0s")
}
