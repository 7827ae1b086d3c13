// Package storage persists the small bits of client state that survive a
// restart: saved searches for the watcher and the cached auth token. Writes
// go through a temp file and an atomic rename so a crash never leaves a
// half-written file behind.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"
)

type DiskStorage struct {
	RootFolder string
}

func NewDiskStorage(rootFolder string) *DiskStorage {
	return &DiskStorage{RootFolder: rootFolder}
}

func (ds *DiskStorage) GetFileName(name string) (string, string) {
	fileName := path.Join(ds.RootFolder, name)
	tmpFileName := fileName + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixMilli())
	return fileName, tmpFileName
}

func (ds *DiskStorage) SaveJson(data any, name string) error {
	fileName, tmpFileName := ds.GetFileName(name)

	if err := os.MkdirAll(ds.RootFolder, 0o755); err != nil {
		return err
	}
	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(file)
	err = enc.Encode(data)
	file.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmpFileName, fileName)
}

func (ds *DiskStorage) LoadJson(data any, name string) error {
	fileName, _ := ds.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	err = json.NewDecoder(file).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

const (
	savedSearchesFile = "saved_searches.json"
	tokenFile         = "token.json"
)

// SavedSearch is a named filter query the watcher re-runs periodically.
// Query is the canonical shareable query string, LastTotal the result count
// at the previous run.
type SavedSearch struct {
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	LastTotal int       `json:"last_total"`
	CreatedAt time.Time `json:"created_at"`
}

func (ds *DiskStorage) LoadSavedSearches() ([]SavedSearch, error) {
	var searches []SavedSearch
	err := ds.LoadJson(&searches, savedSearchesFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return searches, err
}

func (ds *DiskStorage) SaveSavedSearches(searches []SavedSearch) error {
	return ds.SaveJson(searches, savedSearchesFile)
}

type storedToken struct {
	AccessToken string `json:"access_token"`
}

func (ds *DiskStorage) LoadToken() (string, error) {
	var t storedToken
	err := ds.LoadJson(&t, tokenFile)
	if os.IsNotExist(err) {
		return "", nil
	}
	return t.AccessToken, err
}

func (ds *DiskStorage) SaveToken(token string) error {
	return ds.SaveJson(storedToken{AccessToken: token}, tokenFile)
}
