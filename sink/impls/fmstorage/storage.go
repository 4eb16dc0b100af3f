package fmstorage

import (
	"context"
	"sync"

	"github.com/sgostarter/i/l"
	"github.com/sgostarter/i/stg"
	"github.com/sgostarter/libeasygo/stg/fs/rawfs"
	"github.com/sgostarter/libeasygo/stg/mwf"
	"github.com/sgostarter/libreducer/sink"
)

type recordsMap = map[string][]sink.Record

// NewFMStorage keeps all series in memory, mirrored to one json file.
func NewFMStorage(file string, storage stg.FileStorage, logger l.Wrapper) sink.Storage {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "fmStorageImpl"))

	if file == "" {
		logger.Fatal("no file")
	}

	if storage == nil {
		storage = rawfs.NewFSStorage("")
	}

	return &fmStorageImpl{
		logger: logger,
		d: mwf.NewMemWithFile[recordsMap, mwf.Serial, mwf.Lock](make(recordsMap),
			&mwf.JSONSerial{}, &sync.RWMutex{}, file, storage),
	}
}

type fmStorageImpl struct {
	logger l.Wrapper
	d      *mwf.MemWithFile[recordsMap, mwf.Serial, mwf.Lock]
}

func (impl *fmStorageImpl) Save(_ context.Context, key string, records []sink.Record) error {
	if len(records) == 0 {
		return nil
	}

	return impl.d.Change(func(v recordsMap) (newV recordsMap, err error) {
		newV = v

		if newV == nil {
			newV = make(recordsMap)
		}

		newV[key] = append(newV[key], records...)

		return
	})
}

func (impl *fmStorageImpl) Load(_ context.Context, key string) (records []sink.Record, _ error) {
	impl.d.Read(func(v recordsMap) {
		records = append(records, v[key]...)
	})

	return
}

func (impl *fmStorageImpl) Remove(_ context.Context, key string) error {
	return impl.d.Change(func(v recordsMap) (newV recordsMap, err error) {
		newV = v

		delete(newV, key)

		return
	})
}
