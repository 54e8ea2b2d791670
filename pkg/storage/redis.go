package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	pong               = "PONG"
	redisScanBatchSize = 1000
	setListPrefix      = "setlist"
	setIndexPrefix     = "setidx"
)

// addToSetScript appends the member to the ordered list only when the companion
// SET did not contain it yet. Running as a script keeps check-then-append atomic
// across concurrent instances.
var addToSetScript = goredis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return 1
`)

var removeFromSetScript = goredis.NewScript(`
redis.call('SREM', KEYS[1], ARGV[1])
redis.call('LREM', KEYS[2], 0, ARGV[1])
return 1
`)

// RedisDB is a networked implementation of ServiceStorage. Ordered sets are kept
// as a LIST for ordering with a companion SET for membership.
type RedisDB struct {
	db *goredis.Client
}

func NewRedisDB(opts ...Option) (*RedisDB, error) {
	var address, password string
	for _, opt := range opts {
		switch opt.ID {
		case RedisAddressOption:
			maybeAddress, ok := opt.Option.(string)
			if !ok || maybeAddress == "" {
				return nil, errors.New("redis address option must be a non-empty string")
			}
			address = maybeAddress
		case RedisPasswordOption:
			maybePassword, ok := opt.Option.(string)
			if !ok {
				return nil, errors.New("redis password option must be a string")
			}
			password = maybePassword
		}
	}
	if address == "" {
		return nil, errors.New("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{Addr: address, Password: password})

	// the network backend may come up after us; retry the initial ping
	connect := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	}
	if err := backoff.Retry(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return nil, unavailable(err, "connecting to redis")
	}
	return &RedisDB{db: client}, nil
}

func (r *RedisDB) Type() Type {
	return Redis
}

func (r *RedisDB) URI() string {
	return r.db.Options().Addr
}

func (r *RedisDB) IsOpen() bool {
	res, err := r.db.Ping(context.Background()).Result()
	if err != nil {
		logrus.WithError(err).Error("pinging redis")
		return false
	}
	return res == pong
}

func (r *RedisDB) Close() error {
	return r.db.Close()
}

func (r *RedisDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	// zero expiration: the key never expires
	if err := r.db.Set(ctx, redisKey(namespace, key), value, 0).Err(); err != nil {
		return unavailable(err, "writing to redis")
	}
	return nil
}

func (r *RedisDB) WriteIfAbsent(ctx context.Context, namespace, key string, value []byte) (bool, error) {
	if err := validateKey(namespace, key); err != nil {
		return false, err
	}
	written, err := r.db.SetNX(ctx, redisKey(namespace, key), value, 0).Result()
	if err != nil {
		return false, unavailable(err, "conditionally writing to redis")
	}
	return written, nil
}

func (r *RedisDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := validateKey(namespace, key); err != nil {
		return nil, err
	}
	value, err := r.db.Get(ctx, redisKey(namespace, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, "reading from redis")
	}
	return value, nil
}

func (r *RedisDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	if namespace == "" {
		return nil, errors.New("namespace required")
	}
	keys, err := r.scanKeys(ctx, redisKey(namespace, "")+"*")
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte, len(keys))
	prefixLen := len(redisKey(namespace, ""))
	for _, k := range keys {
		if isSetKey(k[prefixLen:]) {
			continue
		}
		value, err := r.db.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, unavailable(err, "reading namespace from redis")
		}
		result[k[prefixLen:]] = value
	}
	return result, nil
}

func (r *RedisDB) Delete(ctx context.Context, namespace, key string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	if err := r.db.Del(ctx, redisKey(namespace, key)).Err(); err != nil {
		return unavailable(err, "deleting from redis")
	}
	return nil
}

func (r *RedisDB) DeleteNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	keys, err := r.scanKeys(ctx, namespace+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.db.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err, "deleting namespace from redis")
	}
	return nil
}

func (r *RedisDB) AddToSet(ctx context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	keys := []string{setIndexKey(namespace, setKey), setListKey(namespace, setKey)}
	if err := addToSetScript.Run(ctx, r.db, keys, member).Err(); err != nil {
		return unavailable(err, "adding set member in redis")
	}
	return nil
}

func (r *RedisDB) RemoveFromSet(ctx context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	keys := []string{setIndexKey(namespace, setKey), setListKey(namespace, setKey)}
	if err := removeFromSetScript.Run(ctx, r.db, keys, member).Err(); err != nil {
		return unavailable(err, "removing set member in redis")
	}
	return nil
}

func (r *RedisDB) SetMembers(ctx context.Context, namespace, setKey string) ([]string, error) {
	if err := validateKey(namespace, setKey); err != nil {
		return nil, err
	}
	members, err := r.db.LRange(ctx, setListKey(namespace, setKey), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err, "reading set members from redis")
	}
	return members, nil
}

func (r *RedisDB) ClearSet(ctx context.Context, namespace, setKey string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	keys := []string{setIndexKey(namespace, setKey), setListKey(namespace, setKey)}
	if err := r.db.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err, "clearing set in redis")
	}
	return nil
}

func (r *RedisDB) ReplaceAll(ctx context.Context, namespace, setKey string, entries []SetEntry) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	existing, err := r.scanKeys(ctx, namespace+"*")
	if err != nil {
		return err
	}

	// the pipeline commits all deletions and writes together
	_, err = r.db.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(existing) > 0 {
			if err := pipe.Del(ctx, existing...).Err(); err != nil {
				return err
			}
		}
		for _, entry := range entries {
			if err := pipe.Set(ctx, redisKey(namespace, entry.Member), entry.Value, 0).Err(); err != nil {
				return err
			}
			if err := pipe.SAdd(ctx, setIndexKey(namespace, setKey), entry.Member).Err(); err != nil {
				return err
			}
			if err := pipe.RPush(ctx, setListKey(namespace, setKey), entry.Member).Err(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(err, "replacing namespace in redis")
	}
	return nil
}

func (r *RedisDB) scanKeys(ctx context.Context, match string) ([]string, error) {
	var cursor uint64
	allKeys := make([]string, 0)
	for {
		keys, nextCursor, err := r.db.Scan(ctx, cursor, match, redisScanBatchSize).Result()
		if err != nil {
			return nil, unavailable(err, "scanning redis keys")
		}
		allKeys = append(allKeys, keys...)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return allKeys, nil
}

// isSetKey reports whether the key remainder belongs to a set's backing structures.
func isSetKey(remainder string) bool {
	return strings.HasPrefix(remainder, setListPrefix+"-") || strings.HasPrefix(remainder, setIndexPrefix+"-")
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("%s-%s", namespace, key)
}

func setListKey(namespace, setKey string) string {
	return fmt.Sprintf("%s-%s-%s", namespace, setListPrefix, setKey)
}

func setIndexKey(namespace, setKey string) string {
	return fmt.Sprintf("%s-%s-%s", namespace, setIndexPrefix, setKey)
}
