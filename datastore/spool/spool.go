// Package spool stores video files received from peers on disk until the
// archive picks them up. Files are keyed by video id; the first two
// characters of the id select a subdirectory shard. The file on disk holds
// raw bytes without any additional metadata.
package spool

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

type Spool struct {
	basePath string
}

func New(basePath string) (*Spool, error) {
	basePath = filepath.Clean(basePath)

	if err := ensureDir(basePath); err != nil {
		return nil, err
	}

	log.Infof("Opened spool at %s", basePath)

	return &Spool{basePath: basePath}, nil
}

// ensureDir checks if a directory exists at the given path, and if not, creates it.
func ensureDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(path, 0755)
		}
		return err
	}
	if !stat.IsDir() {
		return &os.PathError{Op: "ensureDir", Path: path, Err: os.ErrExist}
	}
	return nil
}

// idToPath converts a video id to its file path and the containing shard
// directory.
func (s *Spool) idToPath(videoID string) (dirPath string, filePath string) {
	shard := videoID
	if len(shard) > 2 {
		shard = shard[:2]
	}
	dirPath = filepath.Join(s.basePath, shard)
	filePath = filepath.Join(dirPath, videoID)
	return dirPath, filePath
}

func (s *Spool) Put(videoID string, data []byte) error {
	if videoID == "" {
		return os.ErrInvalid
	}

	dirPath, filePath := s.idToPath(videoID)

	if err := ensureDir(dirPath); err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

func (s *Spool) Get(videoID string) ([]byte, error) {
	_, filePath := s.idToPath(videoID)
	return os.ReadFile(filePath)
}

func (s *Spool) Has(videoID string) (bool, error) {
	_, filePath := s.idToPath(videoID)
	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !stat.IsDir(), nil
}

func (s *Spool) Delete(videoID string) error {
	_, filePath := s.idToPath(videoID)

	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Enumerate lists the video ids of all spooled files. Entries that don't
// match the expected shard layout are skipped with a warning.
func (s *Spool) Enumerate() ([]string, error) {
	var ids []string

	shardDirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		log.Errorf("Error reading spool path %s for enumeration: %v", s.basePath, err)
		return nil, err
	}

	for _, shardDirEntry := range shardDirEntries {
		if !shardDirEntry.IsDir() {
			log.Warnf("Skipping non-directory entry in spool during enumeration: %s", filepath.Join(s.basePath, shardDirEntry.Name()))
			continue
		}

		shardPath := filepath.Join(s.basePath, shardDirEntry.Name())
		fileEntries, err := os.ReadDir(shardPath)
		if err != nil {
			log.Errorf("Error reading spool shard %s during enumeration: %v", shardPath, err)
			return nil, err
		}

		for _, fileEntry := range fileEntries {
			if fileEntry.IsDir() {
				log.Warnf("Skipping unexpected subdirectory in spool shard %s: %s", shardPath, fileEntry.Name())
				continue
			}
			ids = append(ids, fileEntry.Name())
		}
	}

	return ids, nil
}
