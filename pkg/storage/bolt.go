package storage

import (
	"context"
	"encoding/binary"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	// DBFile is the default file used when no path option is given.
	DBFile = "zkid-service.db"

	setBucketSeparator = "#set#"
)

// BoltDB is a file-backed implementation of ServiceStorage. Sets are stored in a
// companion bucket per set key, member -> insertion sequence number.
type BoltDB struct {
	db   *bolt.DB
	path string
}

func NewBoltDB(opts ...Option) (*BoltDB, error) {
	path := DBFile
	for _, opt := range opts {
		if opt.ID == BoltFilePathOption {
			maybePath, ok := opt.Option.(string)
			if !ok || maybePath == "" {
				return nil, errors.New("bolt file path option must be a non-empty string")
			}
			path = maybePath
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, unavailable(err, "opening bolt file")
	}
	return &BoltDB{db: db, path: path}, nil
}

func (b *BoltDB) Type() Type {
	return Bolt
}

func (b *BoltDB) URI() string {
	return b.path
}

func (b *BoltDB) IsOpen() bool {
	return b.db.Path() != ""
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) Write(_ context.Context, namespace, key string, value []byte) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return unavailable(err, "writing to bolt")
	}
	return nil
}

func (b *BoltDB) WriteIfAbsent(_ context.Context, namespace, key string, value []byte) (bool, error) {
	if err := validateKey(namespace, key); err != nil {
		return false, err
	}
	var written bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(key)) != nil {
			return nil
		}
		written = true
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return false, unavailable(err, "conditionally writing to bolt")
	}
	return written, nil
}

func (b *BoltDB) Read(_ context.Context, namespace, key string) ([]byte, error) {
	if err := validateKey(namespace, key); err != nil {
		return nil, err
	}
	var result []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			result = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err, "reading from bolt")
	}
	return result, nil
}

func (b *BoltDB) ReadAll(_ context.Context, namespace string) (map[string][]byte, error) {
	if namespace == "" {
		return nil, errors.New("namespace required")
	}
	result := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			result[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, unavailable(err, "reading namespace from bolt")
	}
	return result, nil
}

func (b *BoltDB) Delete(_ context.Context, namespace, key string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return unavailable(err, "deleting from bolt")
	}
	return nil
}

func (b *BoltDB) DeleteNamespace(_ context.Context, namespace string) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(namespace)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return unavailable(err, "deleting namespace from bolt")
	}
	return nil
}

func (b *BoltDB) AddToSet(_ context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(setBucketName(namespace, setKey))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(member)) != nil {
			return nil
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put([]byte(member), sequenceBytes(seq))
	})
	if err != nil {
		return unavailable(err, "adding set member in bolt")
	}
	return nil
}

func (b *BoltDB) RemoveFromSet(_ context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(setBucketName(namespace, setKey))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(member))
	})
	if err != nil {
		return unavailable(err, "removing set member in bolt")
	}
	return nil
}

func (b *BoltDB) SetMembers(_ context.Context, namespace, setKey string) ([]string, error) {
	if err := validateKey(namespace, setKey); err != nil {
		return nil, err
	}
	type orderedMember struct {
		member string
		seq    uint64
	}
	var members []orderedMember
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(setBucketName(namespace, setKey))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			members = append(members, orderedMember{member: string(k), seq: binary.BigEndian.Uint64(v)})
			return nil
		})
	})
	if err != nil {
		return nil, unavailable(err, "reading set members from bolt")
	}
	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })
	result := make([]string, 0, len(members))
	for _, m := range members {
		result = append(result, m.member)
	}
	return result, nil
}

func (b *BoltDB) ClearSet(_ context.Context, namespace, setKey string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(setBucketName(namespace, setKey)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return unavailable(err, "clearing set in bolt")
	}
	return nil
}

func (b *BoltDB) ReplaceAll(_ context.Context, namespace, setKey string, entries []SetEntry) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{[]byte(namespace), setBucketName(namespace, setKey)} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
		}
		kv, err := tx.CreateBucket([]byte(namespace))
		if err != nil {
			return err
		}
		set, err := tx.CreateBucket(setBucketName(namespace, setKey))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err = kv.Put([]byte(entry.Member), entry.Value); err != nil {
				return err
			}
			seq, err := set.NextSequence()
			if err != nil {
				return err
			}
			if err = set.Put([]byte(entry.Member), sequenceBytes(seq)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(err, "replacing namespace in bolt")
	}
	return nil
}

func setBucketName(namespace, setKey string) []byte {
	return []byte(namespace + setBucketSeparator + setKey)
}

func sequenceBytes(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
