package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"southwinds.dev/cloak/internal/debug"
)

const (
	ctxTimeout = 10 * time.Second
)

// S3Store implements the Store interface using MinIO as the backend.
// Documents are stored as objects under an optional key prefix, so one
// bucket can be shared by several applications:
//
// bucketName/
// ├── [keyPrefix/]app.yaml
// ├── [keyPrefix/]config/database.toml
// └── [keyPrefix/]config/service.json
//
// The content version travels in object user metadata and, for simple
// puts, matches the object ETag.
type S3Store struct {
	// client is the MinIO client used to interact with the S3 server.
	client *minio.Client

	// bucketName is the name of the S3 bucket used to store documents.
	bucketName string

	// keyPrefix is an optional prefix for the keys in the bucket, allowing
	// for namespace separation if multiple applications use the same bucket.
	keyPrefix string
}

// NewS3Store initializes a new S3Store instance using the provided S3
// configuration. It establishes a connection to the server and ensures
// that the specified bucket exists.
//
// Parameters:
//   - config (S3Config): Configuration structure containing:
//   - Endpoint (string): The endpoint URL for the S3 server.
//   - AccessKeyID (string): The access key ID for authentication.
//   - SecretAccessKey (string): The secret access key for authentication.
//   - UseSSL (bool): Indicates whether to use SSL for the connection.
//   - Region (string): The region where the bucket is located.
//   - Bucket (string): The name of the bucket to use.
//   - KeyPrefix (string): A prefix for keys stored in the bucket.
//
// Returns:
//   - (*S3Store, error): A pointer to an S3Store instance if successful,
//     or an error if the client fails to initialize or the bucket cannot
//     be ensured.
func NewS3Store(config S3Config) (*S3Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &S3Store{
		client:     client,
		bucketName: config.Bucket,
		keyPrefix:  strings.Trim(config.KeyPrefix, "/"),
	}

	// Create a fresh context for this operation
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err = store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

// NewS3StoreFromConfig initializes a new S3Store instance from the given
// StoreConfig. It validates the store type and unmarshals the
// configuration map into an S3Config.
func NewS3StoreFromConfig(config StoreConfig) (*S3Store, error) {
	if config.Type != StoreTypeS3 {
		return nil, fmt.Errorf("invalid store type for S3: %s", config.Type)
	}

	// Parse the config map into S3Config
	configBytes, err := json.Marshal(config.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var s3Config S3Config
	if err = json.Unmarshal(configBytes, &s3Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal S3 config: %w", err)
	}

	return NewS3Store(s3Config)
}

// S3Config contains the configuration required to connect to S3 (MinIO).
type S3Config struct {
	Endpoint        string // The endpoint for the S3 service.
	AccessKeyID     string // The Access Key ID for accessing the S3 service.
	SecretAccessKey string // The Secret Access Key for accessing the S3 service.
	Bucket          string // The S3 bucket to use.
	KeyPrefix       string // The prefix for keys stored in the S3 bucket.
	UseSSL          bool   // Whether to use SSL for the connection.
	Region          string // The region of the S3 bucket.
}

// List returns the names of stored documents matching the glob pattern,
// relative to the key prefix. An empty pattern matches everything.
func (s3s *S3Store) List(pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid list pattern %q", pattern)
	}

	listPrefix := s3s.keyPrefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	debug.Print("List: listing objects with prefix '%s'\n", listPrefix)

	// Create a fresh context for this operation
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	objectCh := s3s.client.ListObjects(ctx, s3s.bucketName, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	})

	var names []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}

		// Skip directory entries (objects ending with '/')
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		name := strings.TrimPrefix(object.Key, listPrefix)
		if name == "" {
			continue
		}

		if pattern != "" {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("invalid list pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Load returns the named document together with its content version and
// timestamp. A missing document satisfies errors.Is with os.ErrNotExist.
func (s3s *S3Store) Load(name string) (*VersionedData, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	objectName := s3s.objectName(name)

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	object, err := s3s.client.GetObject(ctx, s3s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", name, err)
	}
	defer object.Close()

	// The not-found error surfaces on the first read, not on GetObject
	data, err := io.ReadAll(object)
	if err != nil {
		if s3s.isNotFoundError(err) {
			return nil, fmt.Errorf("document %s does not exist: %w", name, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	objectInfo, err := object.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get document info for %s: %w", name, err)
	}

	// Parse timestamp from metadata, fallback to LastModified
	var timestamp time.Time
	if createdAt := metadataValue(objectInfo.UserMetadata, "created-at"); createdAt != "" {
		if parsedTime, err := time.Parse(time.RFC3339, createdAt); err == nil {
			timestamp = parsedTime
		}
	}
	if timestamp.IsZero() {
		timestamp = objectInfo.LastModified
	}

	// Prefer the content version from metadata, fallback to the ETag
	version := metadataValue(objectInfo.UserMetadata, "content-version")
	if version == "" {
		version = s3s.cleanETag(objectInfo.ETag)
	}

	return &VersionedData{
		Data:      data,
		Version:   version,
		Timestamp: timestamp,
	}, nil
}

// Save writes a document with optimistic concurrency control. The content
// version is stored in object user metadata and a conditional put guards
// against concurrent writers.
func (s3s *S3Store) Save(name string, data []byte, expectedVersion string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("document data cannot be nil")
	}
	objectName := s3s.objectName(name)

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	version := calculateVersion(data)
	putOptions := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"content-version": version,
			"created-at":      time.Now().UTC().Format(time.RFC3339),
		},
	}

	// Validate expected version if provided
	if expectedVersion != "" {
		currentVersion, err := s3s.getObjectVersion(ctx, objectName)
		if err != nil {
			return "", fmt.Errorf("failed to check current version: %w", err)
		}
		if currentVersion != expectedVersion {
			return "", ConcurrencyError{
				Name:            name,
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
			}
		}

		// Set if-match condition for atomic update
		putOptions.SetMatchETag(expectedVersion)
	}

	_, err := s3s.client.PutObject(ctx, s3s.bucketName, objectName,
		bytes.NewReader(data), int64(len(data)), putOptions)
	if err != nil {
		if s3s.isPreconditionFailedError(err) {
			currentVersion, _ := s3s.getObjectVersion(ctx, objectName)
			return "", ConcurrencyError{
				Name:            name,
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
			}
		}
		return "", fmt.Errorf("failed to save document %s: %w", name, err)
	}

	debug.Print("Save: wrote %d bytes to %s, version %s\n", len(data), objectName, version)

	return version, nil
}

func (s3s *S3Store) Exists(name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	objectName := s3s.objectName(name)

	// Create a fresh context for this operation
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s3s.client.StatObject(ctx, s3s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if s3s.isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check document %s: %w", name, err)
	}

	return true, nil
}

// Delete removes the named document. Deleting a missing document is an
// error that satisfies errors.Is with os.ErrNotExist.
func (s3s *S3Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	objectName := s3s.objectName(name)

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if _, err := s3s.client.StatObject(ctx, s3s.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		if s3s.isNotFoundError(err) {
			return fmt.Errorf("document %s does not exist: %w", name, os.ErrNotExist)
		}
		return fmt.Errorf("failed to check document %s: %w", name, err)
	}

	err := s3s.client.RemoveObject(ctx, s3s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		// Don't fail if the object was already deleted
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return fmt.Errorf("failed to delete document %s: %w", name, err)
		}
	}

	return nil
}

// Health and utilities
func (s3s *S3Store) Ping() error {
	// Create a fresh context for this operation
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	// Test connectivity by checking if the bucket exists
	exists, err := s3s.client.BucketExists(ctx, s3s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to ping S3: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s3s.bucketName)
	}
	return nil
}

func (s3s *S3Store) Close() error {
	return nil
}

func (s3s *S3Store) GetType() string {
	return string(StoreTypeS3)
}

// Helper methods
func (s3s *S3Store) objectName(name string) string {
	if s3s.keyPrefix == "" {
		return name
	}
	return s3s.keyPrefix + "/" + name
}

func (s3s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s3s.client.BucketExists(ctx, s3s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s3s.client.MakeBucket(ctx, s3s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Helper methods for version management
func (s3s *S3Store) getObjectVersion(ctx context.Context, objectName string) (string, error) {
	objInfo, err := s3s.client.StatObject(ctx, s3s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if s3s.isNotFoundError(err) {
			return "", nil // Object doesn't exist, version is empty
		}
		return "", err
	}
	if version := metadataValue(objInfo.UserMetadata, "content-version"); version != "" {
		return version, nil
	}
	return s3s.cleanETag(objInfo.ETag), nil
}

func (s3s *S3Store) cleanETag(etag string) string {
	// Remove quotes from ETag
	return strings.Trim(etag, "\"")
}

func (s3s *S3Store) isPreconditionFailedError(err error) bool {
	return minio.ToErrorResponse(err).Code == "PreconditionFailed"
}

func (s3s *S3Store) isNotFoundError(err error) bool {
	var errResp minio.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
	}
	return false
}

// metadataValue looks up a user metadata key regardless of the case and
// separator normalisation applied by the S3 backend.
func metadataValue(metadata map[string]string, key string) string {
	searchKey := strings.ToLower(strings.ReplaceAll(key, "_", "-"))
	for k, v := range metadata {
		normalizedKey := strings.ToLower(strings.ReplaceAll(k, "_", "-"))
		if normalizedKey == searchKey {
			return v
		}
	}
	return ""
}
