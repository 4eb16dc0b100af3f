package redisstorage

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/sink"
)

// NewRedisStorage keeps the records of a key in a redis list, one snappy compressed
// json document per record.
func NewRedisStorage(redisCli *redis.Client, redisKeyPre string, logger l.Wrapper) sink.Storage {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "redisStorageImpl"))

	if redisCli == nil {
		logger.Fatal("no redis client")
	}

	return &redisStorageImpl{
		logger:      logger,
		redisCli:    redisCli,
		redisKeyPre: redisKeyPre,
	}
}

type redisStorageImpl struct {
	logger      l.Wrapper
	redisCli    *redis.Client
	redisKeyPre string
}

func (impl *redisStorageImpl) recordsRedisKey(key string) string {
	recordsRedisKey := "records:" + key
	if impl.redisKeyPre != "" {
		recordsRedisKey = impl.redisKeyPre + ":" + recordsRedisKey
	}

	return recordsRedisKey
}

func (impl *redisStorageImpl) Save(ctx context.Context, key string, records []sink.Record) error {
	if len(records) == 0 {
		return nil
	}

	vs := make([]interface{}, 0, len(records))

	for _, record := range records {
		d, err := json.Marshal(record)
		if err != nil {
			return err
		}

		vs = append(vs, snappy.Encode(nil, d))
	}

	return impl.redisCli.RPush(ctx, impl.recordsRedisKey(key), vs...).Err()
}

func (impl *redisStorageImpl) Load(ctx context.Context, key string) (records []sink.Record, err error) {
	items, err := impl.redisCli.LRange(ctx, impl.recordsRedisKey(key), 0, -1).Result()
	if err != nil {
		return
	}

	records = make([]sink.Record, 0, len(items))

	for idx, item := range items {
		d, errD := snappy.Decode(nil, []byte(item))
		if errD != nil {
			err = errors.Wrapf(sink.ErrBadRecord, "%s[%d]: %v", key, idx, errD)

			return
		}

		var record sink.Record

		if errD = json.Unmarshal(d, &record); errD != nil {
			err = errors.Wrapf(sink.ErrBadRecord, "%s[%d]: %v", key, idx, errD)

			return
		}

		records = append(records, record)
	}

	return
}

func (impl *redisStorageImpl) Remove(ctx context.Context, key string) error {
	return impl.redisCli.Del(ctx, impl.recordsRedisKey(key)).Err()
}
