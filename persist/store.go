package persist

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// VersionedData represents a stored document with its version information
type VersionedData struct {
	Data      []byte
	Version   string // MD5 hex of the content
	Timestamp time.Time
}

// Store defines the interface for persisting configuration documents.
// Documents are addressed by a relative, slash separated name and every
// write is guarded by optimistic concurrency: callers pass the version
// they loaded and the save fails with a ConcurrencyError when the stored
// version has moved underneath them.
type Store interface {

	// List retrieves the names of stored documents matching a glob
	// pattern. An empty pattern matches every document.
	// Returns:
	// - A sorted slice of document names.
	// - An error if the operation fails or the pattern is invalid.
	List(pattern string) ([]string, error)

	// Load retrieves a document together with its version and timestamp.
	// Returns:
	// - The versioned document content.
	// - An error satisfying errors.Is(err, os.ErrNotExist) if the
	//   document does not exist, or another error if the operation fails.
	Load(name string) (*VersionedData, error)

	Save(name string, data []byte, expectedVersion string) (newVersion string, err error)

	// Exists checks whether a document is present in the store.
	// Returns:
	// - A boolean indicating whether the document exists.
	// - An error if the operation fails.
	Exists(name string) (bool, error)

	// Delete removes the named document from the store.
	// Returns:
	// - An error if the operation fails, or if the document does not exist.
	Delete(name string) error

	// Health and utilities

	// Ping tests the connectivity for remote backends.
	// Returns:
	// - An error if the connectivity test fails.
	Ping() error

	// Close closes the store and releases any resources it holds.
	Close() error

	// GetType retrieves the type of store being used.
	// Returns:
	// - A string indicating the type of store (e.g., "file_system", "s3").
	GetType() string
}

// StoreConfig provides configuration for different storage backends.
//
// The StoreConfig struct holds the parameters needed to interact with a
// storage system. It consists of a type that specifies which storage
// backend to use, and a configuration map that contains specific settings
// for that backend.
//
// Example usage:
//
//	config := StoreConfig{
//	    Type:   StoreTypeFileSystem,
//	    Config: map[string]interface{}{"base_path": "/data/config"},
//	}
type StoreConfig struct {
	// Type specifies the storage backend to be used.
	// This field must be one of the predefined StoreType constants.
	Type StoreType `json:"type"`

	// Config contains configuration settings specific to the chosen
	// storage backend. The actual keys and values depend on the backend;
	// for StoreTypeS3 this includes keys like "Endpoint" and "Bucket".
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the different types of storage backends that can be used.
type StoreType string

// Supported storage types.
const (
	// StoreTypeFileSystem indicates that the local file system should be
	// used for storage. The base path is provided in the Config field.
	StoreTypeFileSystem StoreType = "file_system"

	// StoreTypeS3 indicates that S3 compatible object storage should be
	// used as the backend. Connection settings such as endpoint, bucket
	// and credentials are provided in the Config field.
	StoreTypeS3 StoreType = "s3"
)

// ConcurrencyError represents version conflict errors
type ConcurrencyError struct {
	Name            string
	ExpectedVersion string
	ActualVersion   string
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("version conflict on %s: expected version %s, but found %s",
		e.Name, e.ExpectedVersion, e.ActualVersion)
}

func (e ConcurrencyError) IsConcurrencyError() bool {
	return true
}

// IsConcurrencyError reports whether err is a version conflict returned
// by a Save call.
func IsConcurrencyError(err error) bool {
	var ce ConcurrencyError
	return errors.As(err, &ce)
}

// calculateVersion derives the version identifier for document content.
// Both backends use the MD5 hex of the content, which for simple S3 puts
// also matches the object ETag.
func calculateVersion(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}
