package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9.\-_]`)

func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "-")
}

// StoragePath builds <profileId>/<documentType>/<unixMillis>-<sanitizedName>.
func StoragePath(profileID, documentType string, at time.Time, originalFilename string) string {
	return fmt.Sprintf("%s/%s/%d-%s", profileID, documentType, at.UnixMilli(), SanitizeFilename(originalFilename))
}

type StoragePathParts struct {
	ProfileID    string
	DocumentType string
	UploadedAt   time.Time
	Filename     string
}

// ParseStoragePath splits a path built by StoragePath.
func ParseStoragePath(p string) (StoragePathParts, error) {
	cleaned := strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	parts := strings.SplitN(cleaned, "/", 3)
	if len(parts) != 3 {
		return StoragePathParts{}, fmt.Errorf("storage path %q does not match profile/type/file", p)
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return StoragePathParts{}, fmt.Errorf("storage path %q has an empty segment", p)
	}
	stamp, name, ok := strings.Cut(parts[2], "-")
	if !ok {
		return StoragePathParts{}, fmt.Errorf("storage path %q missing timestamp prefix", p)
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return StoragePathParts{}, fmt.Errorf("storage path %q has invalid timestamp: %w", p, err)
	}
	return StoragePathParts{
		ProfileID:    parts[0],
		DocumentType: parts[1],
		UploadedAt:   time.UnixMilli(millis).UTC(),
		Filename:     name,
	}, nil
}
