package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vcscsvcscs/raredx/apps/backend/internal/azure"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/security"
	"go.uber.org/zap"
)

const (
	archivePrefix        = "intakes/"
	archiveTimeLayout    = "20060102_150405"
	archiveDefaultName   = "user"
	plainContentType     = "application/json"
	encryptedContentType = "application/octet-stream"
)

// IntakeArchive keeps a copy of every patient intake sent for diagnosis
type IntakeArchive struct {
	storage   azure.BlobStorage
	encryptor *security.Encryptor
	logger    *zap.Logger
	now       func() time.Time
}

// NewIntakeArchive creates an archive on top of blob storage. With a nil
// encryptor intakes are stored as plain JSON.
func NewIntakeArchive(storage azure.BlobStorage, encryptor *security.Encryptor, logger *zap.Logger) *IntakeArchive {
	return &IntakeArchive{
		storage:   storage,
		encryptor: encryptor,
		logger:    logger,
		now:       time.Now,
	}
}

// Save stores the intake as intakes/<name>_<yyyymmdd_hhmmss>.json (with a
// .enc suffix when encrypted) and returns the blob name
func (a *IntakeArchive) Save(ctx context.Context, patient map[string]any) (string, error) {
	data, err := json.MarshalIndent(patient, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode intake: %w", err)
	}

	blobName := a.blobName(patient)
	contentType := plainContentType
	if a.encryptor != nil {
		data, err = a.encryptor.Seal(data)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt intake: %w", err)
		}
		blobName += ".enc"
		contentType = encryptedContentType
	}

	name, err := a.storage.Upload(ctx, blobName, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to archive intake: %w", err)
	}

	a.logger.Info("intake archived",
		zap.String("blob_name", name),
		zap.Bool("encrypted", a.encryptor != nil),
	)
	return name, nil
}

// Encrypted reports whether new intakes are sealed before upload
func (a *IntakeArchive) Encrypted() bool {
	return a.encryptor != nil
}

// Load reads an archived intake back
func (a *IntakeArchive) Load(ctx context.Context, blobName string) (map[string]any, error) {
	data, err := a.storage.Download(ctx, blobName)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived intake: %w", err)
	}

	if strings.HasSuffix(blobName, ".enc") {
		if a.encryptor == nil {
			return nil, fmt.Errorf("archived intake %s is encrypted but no key is configured", blobName)
		}
		data, err = a.encryptor.Open(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt archived intake: %w", err)
		}
	}

	var patient map[string]any
	if err := json.Unmarshal(data, &patient); err != nil {
		return nil, fmt.Errorf("failed to decode archived intake: %w", err)
	}
	return patient, nil
}

func (a *IntakeArchive) blobName(patient map[string]any) string {
	name, _ := patient["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		name = archiveDefaultName
	}
	name = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(name)

	return fmt.Sprintf("%s%s_%s.json", archivePrefix, name, a.now().Format(archiveTimeLayout))
}
