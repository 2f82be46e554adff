package leveldb

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	log "github.com/sirupsen/logrus"

	"decdata/catalog"
)

const (
	keyPrefixVideo = "VID" // Catalog entry indexed by video id
)

// CatalogIndex persists the local catalog across restarts, so the node can
// answer peers before the archive becomes reachable. Entries are stored
// CBOR-encoded under their video id.
type CatalogIndex struct {
	levelDB
}

func NewCatalogIndex(path string) (*CatalogIndex, error) {
	ldb, err := initLevelDb(path)
	if err != nil {
		return nil, err
	}

	return &CatalogIndex{
		levelDB: levelDB{
			path: path,
			db:   ldb,
		},
	}, nil
}

// Get returns the stored entry, or nil when the id is unknown.
func (l *CatalogIndex) Get(videoID string) (*catalog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := l.db.Get(keyFromVideoID(videoID), nil)
	if err == ldberrors.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &catalog.Entry{}
	if err := cbor.Unmarshal(raw, entry); err != nil {
		return nil, err
	}

	// Compare the id just in case
	if entry.VideoID != videoID {
		log.Errorf("Get: video id mismatch: %s != %s", videoID, entry.VideoID)
		return nil, ErrCorrupted
	}

	return entry, nil
}

func (l *CatalogIndex) Put(entry *catalog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := cbor.Marshal(entry)
	if err != nil {
		return err
	}

	return l.db.Put(keyFromVideoID(entry.VideoID), raw, nil)
}

// ReplaceAll atomically swaps the stored snapshot for the given one: every
// previous entry is deleted and the new set written in a single batch.
func (l *CatalogIndex) ReplaceAll(entries map[string]*catalog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)

	iter := l.db.NewIterator(util.BytesPrefix([]byte(keyPrefixVideo)), nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		batch.Delete(key)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	for _, entry := range entries {
		raw, err := cbor.Marshal(entry)
		if err != nil {
			return err
		}
		batch.Put(keyFromVideoID(entry.VideoID), raw)
	}

	return l.db.Write(batch, nil)
}

// Enumerate returns all stored entries.
func (l *CatalogIndex) Enumerate() ([]*catalog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var results []*catalog.Entry

	iter := l.db.NewIterator(util.BytesPrefix([]byte(keyPrefixVideo)), nil)
	defer iter.Release()

	for iter.Next() {
		entry := &catalog.Entry{}
		if err := cbor.Unmarshal(iter.Value(), entry); err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	return results, nil
}
