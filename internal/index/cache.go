// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wheeldep/wheeldep/gps"
	"gopkg.in/yaml.v3"
)

// Cache is a persistent cache of candidate dependency lists, backed by a
// BoltDB file. Stored values are timestamped, and the epoch limits the age
// of returned values. Database access methods are safe for concurrent use
// with each other (excluding Close).
//
// Implementation:
//
// There is one top level bucket per project in each index:
//
//	Bucket: "project:<index>:<name>"
//
// Each holds one timestamped sub-bucket per cached candidate. The digest of
// the index entry the value was derived from is part of the key, so edited
// metadata is never answered from the cache:
//
//	Sub-Bucket: "deps:<candidate key>\x00<digest>:<timestamp>"
//	Key: "requires"
//	Value: zstd-compressed YAML list of requirement strings
type Cache struct {
	db    *bolt.DB
	epoch int64 // getters will not return values older than this unix timestamp
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	l     *logrus.Logger
}

// OpenCache opens, creating if necessary, the BoltDB file at path. A nil
// logger discards cache diagnostics.
func OpenCache(path string, epoch int64, l *logrus.Logger) (*Cache, error) {
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModeDir|os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "failed to create cache directory: %s", dir)
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to check cache directory: %s", dir)
	} else if !fi.IsDir() {
		return nil, errors.Errorf("cache path is not directory: %s", dir)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache %s", path)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set up cache compression")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, errors.Wrap(err, "failed to set up cache decompression")
	}

	if l == nil {
		l = logrus.New()
		l.Out = ioutil.Discard
	}
	return &Cache{
		db:    db,
		epoch: epoch,
		enc:   enc,
		dec:   dec,
		l:     l,
	}, nil
}

// Close releases all database resources.
// Must not be called concurrently with any other methods.
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		return errors.Wrap(err, "error closing cache compressor")
	}
	return errors.Wrapf(c.db.Close(), "error closing Bolt database %q", c.db.String())
}

func cacheBucketName(index string, cand gps.Candidate) string {
	return "project:" + index + ":" + cand.ID.Name
}

func cacheDepsPrefix(cand gps.Candidate) string {
	return "deps:" + cand.Key() + "\x00"
}

func (c *Cache) setDependencies(index string, cand gps.Candidate, digest string, reqs []gps.Requirement) {
	err := c.updateBucket(cacheBucketName(index, cand), func(b *bolt.Bucket) error {
		// drop values for this candidate under any digest
		if err := cachePrefixDelete(b, cacheDepsPrefix(cand)); err != nil {
			return err
		}
		cb, err := b.CreateBucket(cacheTimestampedKey(cacheDepsPrefix(cand)+digest+":", time.Now()))
		if err != nil {
			return err
		}

		v, err := c.encodeRequirements(reqs)
		if err != nil {
			return err
		}
		return errors.Wrap(cb.Put([]byte("requires"), v), "failed to put requirements")
	})
	if err != nil {
		c.l.WithError(err).WithField("candidate", cand.String()).Warn("Failed to cache dependencies")
	}
}

func (c *Cache) getDependencies(index string, cand gps.Candidate, digest string) (reqs []gps.Requirement, ok bool) {
	err := c.viewBucket(cacheBucketName(index, cand), func(b *bolt.Bucket) error {
		cb := cacheFindLatestValid(b, cacheDepsPrefix(cand)+digest+":", c.epoch)
		if cb == nil {
			return nil
		}
		v := cb.Get([]byte("requires"))
		if v == nil {
			return nil
		}

		var err error
		reqs, err = c.decodeRequirements(v)
		if err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		c.l.WithError(err).WithField("candidate", cand.String()).Warn("Failed to get cached dependencies")
		return nil, false
	}
	return reqs, ok
}

type cachedRequirements struct {
	Requires []string `yaml:"requires"`
}

func (c *Cache) encodeRequirements(reqs []gps.Requirement) ([]byte, error) {
	cr := cachedRequirements{Requires: make([]string, len(reqs))}
	for k, r := range reqs {
		cr.Requires[k] = r.String()
	}
	b, err := yaml.Marshal(cr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode requirements")
	}
	return c.enc.EncodeAll(b, nil), nil
}

func (c *Cache) decodeRequirements(v []byte) ([]gps.Requirement, error) {
	b, err := c.dec.DecodeAll(v, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decompress requirements")
	}
	var cr cachedRequirements
	if err := yaml.Unmarshal(b, &cr); err != nil {
		return nil, errors.Wrap(err, "failed to decode requirements")
	}
	reqs := make([]gps.Requirement, 0, len(cr.Requires))
	for _, line := range cr.Requires {
		r, err := gps.ParseRequirement(line)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode requirements")
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

// viewBucket executes view with the named bucket, if it exists.
func (c *Cache) viewBucket(name string, view func(b *bolt.Bucket) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return view(b)
	})
}

// updateBucket executes update with the named bucket, creating it first if necessary.
func (c *Cache) updateBucket(name string, update func(b *bolt.Bucket) error) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return errors.Wrapf(err, "failed to create bucket: %s", name)
		}
		return update(b)
	})
}

func cacheTimestampedKey(pre string, t time.Time) []byte {
	b := make([]byte, len(pre)+8)
	copy(b, pre)
	binary.BigEndian.PutUint64(b[len(pre):], uint64(t.Unix()))
	return b
}

// cachePrefixDelete prefix scans and deletes each bucket.
func cachePrefixDelete(b *bolt.Bucket, pre string) error {
	// collect first; deleting under a live cursor skips keys
	var doomed [][]byte
	c := b.Cursor()
	p := []byte(pre)
	for k, _ := c.Seek(p); bytes.HasPrefix(k, p); k, _ = c.Next() {
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := b.DeleteBucket(k); err != nil {
			return errors.Wrapf(err, "failed to delete bucket: %s", k)
		}
	}
	return nil
}

// cacheFindLatestValid prefix scans for the latest bucket which is timestamped >= epoch,
// or returns nil if none exists.
func cacheFindLatestValid(b *bolt.Bucket, pre string, epoch int64) *bolt.Bucket {
	c := b.Cursor()
	p := []byte(pre)
	var latest []byte
	for k, _ := c.Seek(p); bytes.HasPrefix(k, p); k, _ = c.Next() {
		latest = k
	}
	if latest == nil {
		return nil
	}
	ts := bytes.TrimPrefix(latest, p)
	if len(ts) != 8 {
		return nil
	}
	if int64(binary.BigEndian.Uint64(ts)) < epoch {
		return nil
	}
	return b.Bucket(latest)
}
