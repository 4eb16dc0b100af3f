package fsstorage

import (
	"context"
	"net/url"
	"os"
	"path"
	"sync"

	"github.com/pkg/errors"
	"github.com/sgostarter/libreducer/sink"
	"gopkg.in/yaml.v3"
)

// NewFSStorage writes one yaml file per series key under root.
func NewFSStorage(root string) sink.Storage {
	return &fsStorageImpl{
		root: root,
	}
}

type fsStorageImpl struct {
	lock sync.Mutex
	root string
}

func (impl *fsStorageImpl) fileNameByKey(key string) string {
	return path.Join(impl.root, url.PathEscape(key)+".yaml")
}

func (impl *fsStorageImpl) load(key string) (records []sink.Record, err error) {
	d, err := os.ReadFile(impl.fileNameByKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}

		return
	}

	if err = yaml.Unmarshal(d, &records); err != nil {
		err = errors.Wrapf(sink.ErrBadRecord, "%s: %v", key, err)
	}

	return
}

func (impl *fsStorageImpl) Save(_ context.Context, key string, records []sink.Record) (err error) {
	if len(records) == 0 {
		return
	}

	impl.lock.Lock()
	defer impl.lock.Unlock()

	ds, err := impl.load(key)
	if err != nil {
		return
	}

	_ = os.MkdirAll(impl.root, 0700)

	d, err := yaml.Marshal(append(ds, records...))
	if err != nil {
		return
	}

	err = os.WriteFile(impl.fileNameByKey(key), d, 0600)

	return
}

func (impl *fsStorageImpl) Load(_ context.Context, key string) ([]sink.Record, error) {
	impl.lock.Lock()
	defer impl.lock.Unlock()

	return impl.load(key)
}

func (impl *fsStorageImpl) Remove(_ context.Context, key string) error {
	impl.lock.Lock()
	defer impl.lock.Unlock()

	err := os.Remove(impl.fileNameByKey(key))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}

	return err
}
