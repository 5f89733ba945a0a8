package stores

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const rotationRecordVersion1 = 1

var (
	// ErrRotationBackend wraps Redis backend failures.
	ErrRotationBackend = errors.New("rotation cache backend unavailable")
	// ErrRotationRecordCorrupt reports an undecodable cached record.
	ErrRotationRecordCorrupt = errors.New("rotation cache record corrupt")
)

// RotationRecord is the identity a superseded token pair authenticated.
type RotationRecord struct {
	UserID string
	Login  string
}

// RotationCache keeps superseded (series, tokenValue) pairs in Redis for
// the rotation-grace window. Keys embed the hashed token value, never the
// raw secret.
type RotationCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRotationCache creates a [RotationCache] with the given key prefix and
// grace TTL.
func NewRotationCache(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *RotationCache {
	if prefix == "" {
		prefix = "gsrot"
	}
	return &RotationCache{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RotationCache) key(series, tokenHash string) string {
	return c.prefix + ":" + series + ":" + tokenHash
}

// Put stores the record under the superseded pair for the grace TTL.
func (c *RotationCache) Put(ctx context.Context, series, tokenHash string, record RotationRecord) error {
	encoded, err := encodeRotationRecord(record)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(series, tokenHash), encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRotationBackend, err)
	}
	return nil
}

// Get returns the cached record for the pair, reporting presence
// separately from backend failure.
func (c *RotationCache) Get(ctx context.Context, series, tokenHash string) (RotationRecord, bool, error) {
	data, err := c.redis.Get(ctx, c.key(series, tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RotationRecord{}, false, nil
		}
		return RotationRecord{}, false, fmt.Errorf("%w: %v", ErrRotationBackend, err)
	}

	record, err := decodeRotationRecord(data)
	if err != nil {
		return RotationRecord{}, false, err
	}
	return record, true, nil
}

func encodeRotationRecord(record RotationRecord) ([]byte, error) {
	if len(record.UserID) > 255 || len(record.Login) > 255 {
		return nil, ErrRotationRecordCorrupt
	}

	var buf bytes.Buffer
	buf.WriteByte(rotationRecordVersion1)
	buf.WriteByte(byte(len(record.UserID)))
	buf.WriteString(record.UserID)
	buf.WriteByte(byte(len(record.Login)))
	buf.WriteString(record.Login)
	return buf.Bytes(), nil
}

func decodeRotationRecord(data []byte) (RotationRecord, error) {
	var record RotationRecord

	r := bytes.NewReader(data)
	version, err := r.ReadByte()
	if err != nil || version != rotationRecordVersion1 {
		return record, ErrRotationRecordCorrupt
	}

	record.UserID, err = readString(r)
	if err != nil {
		return record, ErrRotationRecordCorrupt
	}
	record.Login, err = readString(r)
	if err != nil {
		return record, ErrRotationRecordCorrupt
	}
	if r.Len() != 0 {
		return record, ErrRotationRecordCorrupt
	}
	return record, nil
}

func readString(r *bytes.Reader) (string, error) {
	size, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
