// Package kyc — проверка личности: пользователь загружает документ,
// админ одобряет или отклоняет. Без одобренного KYC выводы закрыты.
package kyc

import (
	"time"

	"github.com/google/uuid"
)

// Статусы KYC (совпадают с users.kyc_status)
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Submission — одна запись в таблице kyc (у пользователя не больше одной).
type Submission struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	FullName       string     `json:"fullName"`
	DocumentType   string     `json:"documentType"`
	DocumentNumber string     `json:"documentNumber"`
	DocumentKey    string     `json:"-"` // ключ объекта в S3
	Status         string     `json:"status"`
	ReviewNote     string     `json:"reviewNote,omitempty"`
	ReviewedBy     *uuid.UUID `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// SubmitRequest — поля формы (multipart) без самого файла.
type SubmitRequest struct {
	FullName       string `form:"fullName" binding:"required"`
	DocumentType   string `form:"documentType" binding:"required"`
	DocumentNumber string `form:"documentNumber" binding:"required"`
}

// Document — загружаемый файл.
type Document struct {
	Filename    string
	ContentType string
	Size        int64
}

// ReviewRequest — решение админа.
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"` // approved | rejected
	Note     string `json:"note"`
}

// Reviewed — результат проверки и email владельца.
type Reviewed struct {
	Submission *Submission
	OwnerEmail string
}
