package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// MetadataCategory is the metadata key the worker owns; every other key is
// left as the upload path wrote it.
const MetadataCategory = "category"

type Asset struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	BucketName          string            `gorm:"column:bucket_name;type:varchar(64);not null" json:"bucket_name"`
	ObjectName          string            `gorm:"column:object_name;type:varchar(255);not null" json:"object_name"`
	MimeType            string            `gorm:"column:mime_type;type:varchar(127);not null" json:"mime_type"`
	SizeBytes           int64             `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	Caption             *string           `gorm:"column:caption;type:text" json:"caption,omitempty"`
	ContentText         *string           `gorm:"column:content_text;type:text" json:"content_text,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	ProcessingStatus    string            `gorm:"column:processing_status;type:varchar(32);not null;default:'PENDING';index:idx_assets_status_created,priority:1" json:"processing_status"`
	ClaimedBy           string            `gorm:"column:claimed_by;type:varchar(128)" json:"claimed_by,omitempty"`
	ProcessingStartedAt *time.Time        `gorm:"column:processing_started_at" json:"processing_started_at,omitempty"`
	CreatedAt           time.Time         `gorm:"autoCreateTime;index:idx_assets_status_created,priority:2" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Asset) TableName() string { return "assets" }

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ProcessingStatus == "" {
		a.ProcessingStatus = StatusPending
	}
	if a.Metadata == nil {
		a.Metadata = datatypes.JSONMap{}
	}
	return nil
}

// Category returns the category recorded in metadata, or "".
func (a *Asset) Category() string {
	if a == nil || a.Metadata == nil {
		return ""
	}
	s, _ := a.Metadata[MetadataCategory].(string)
	return s
}

// Recoverable reports whether the asset still has processing to do.
func Recoverable(status string) bool {
	return status == StatusPending || status == StatusProcessing
}
