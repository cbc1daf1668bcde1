package namespace

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

func openBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger namespace db at %s: %w", dir, err)
	}
	return db, nil
}

func putJSON(db *badger.DB, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func deleteKey(db *badger.DB, key []byte) error {
	return db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// loadAll reconstructs in-memory state from a badger namespace database,
// so NM restarts preserve folders, files, ACLs, and pending requests.
func loadAll(db *badger.DB) (map[string]*Folder, map[string]*FileRecord, map[string]*SSRecord, error) {
	folders := make(map[string]*Folder)
	files := make(map[string]*FileRecord)
	ssNodes := make(map[string]*SSRecord)

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				switch {
				case len(key) >= len(prefixFolder) && key[:len(prefixFolder)] == prefixFolder:
					var f Folder
					if err := json.Unmarshal(val, &f); err != nil {
						return err
					}
					folders[f.Path] = &f
				case len(key) >= len(prefixFile) && key[:len(prefixFile)] == prefixFile:
					var f FileRecord
					if err := json.Unmarshal(val, &f); err != nil {
						return err
					}
					files[f.Key()] = &f
				case len(key) >= len(prefixSS) && key[:len(prefixSS)] == prefixSS:
					var p persistedSS
					if err := json.Unmarshal(val, &p); err != nil {
						return err
					}
					ssNodes[p.ID] = &SSRecord{ID: p.ID, Addr: p.Addr, State: SSDead, Files: make(map[string]struct{})}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load namespace: %w", err)
	}
	return folders, files, ssNodes, nil
}
