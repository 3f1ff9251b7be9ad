package store

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

// The redis store keeps each session in two keys:
// - `<prefix>/sessions/info/<id>` the JSON session state without images
// - `<prefix>/sessions/images/<id>` the list of images in generation order
// and the set of session IDs in `<prefix>/sessions/ids`.
// Both session keys expire after ttl since the last save.

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store backed by Redis,
// a zero ttl means no expiration.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) SessionStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (m *redisStore) infoKey(id string) string {
	return path.Join(m.prefix, "sessions", "info", id)
}

func (m *redisStore) imagesKey(id string) string {
	return path.Join(m.prefix, "sessions", "images", id)
}

func (m *redisStore) idsKey() string {
	return path.Join(m.prefix, "sessions", "ids")
}

func (m *redisStore) Create(ctx context.Context, sess *tools.SessionContext) error {
	data, err := m.marshal(sess)
	if err != nil {
		return err
	}

	ok, err := m.client.SetNX(ctx, m.infoKey(sess.ID), data, m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to create session in Redis")
	}
	if !ok {
		return errors.Wrapf(ErrExists, "session %s", sess.ID)
	}
	return m.save(ctx, sess, data)
}

func (m *redisStore) Get(ctx context.Context, id string) (*tools.SessionContext, error) {
	pipe := m.client.Pipeline()
	infoCmd := pipe.Get(ctx, m.infoKey(id))
	imagesCmd := pipe.LRange(ctx, m.imagesKey(id), 0, -1)
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to get session from Redis")
	}

	data, err := infoCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ErrNotFound, "session %s", id)
		}
		return nil, errors.Wrap(err, "failed to get session from Redis")
	}

	var rec record
	if err = json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	rec.Images, err = imagesCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to get session images from Redis")
	}
	return tools.RestoreSession(&rec.SessionState), nil
}

func (m *redisStore) Save(ctx context.Context, sess *tools.SessionContext) error {
	data, err := m.marshal(sess)
	if err != nil {
		return err
	}
	return m.save(ctx, sess, data)
}

func (m *redisStore) save(ctx context.Context, sess *tools.SessionContext, data []byte) error {
	infoKey := m.infoKey(sess.ID)
	imagesKey := m.imagesKey(sess.ID)
	// the list is append-only, overlapping saves of one session
	// push only their own images
	images, upto := sess.UnsavedImages()

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, infoKey, data, m.ttl)
	if len(images) > 0 {
		list := make([]any, len(images))
		for i, img := range images {
			list[i] = img
		}
		pipe.RPush(ctx, imagesKey, list...)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, imagesKey, m.ttl)
	}
	pipe.SAdd(ctx, m.idsKey(), sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store session in Redis")
	}
	sess.MarkSaved(upto)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "saved",
		"session", sess.ID,
		"images", len(images),
	)
	return nil
}

func (m *redisStore) Delete(ctx context.Context, id string) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.infoKey(id))
	pipe.Del(ctx, m.imagesKey(id))
	pipe.SRem(ctx, m.idsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete session in Redis")
	}
	return nil
}

func (m *redisStore) List(ctx context.Context) ([]string, error) {
	ids, err := m.client.SMembers(ctx, m.idsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list sessions from Redis")
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *redisStore) Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error) {
	ids, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := uint32(0)
	cutoff := time.Now().Add(-olderThan)
	for _, id := range ids {
		data, err := m.client.Get(ctx, m.infoKey(id)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return deleted, errors.Wrap(err, "failed to get session from Redis")
		}

		expired := errors.Is(err, redis.Nil)
		if !expired {
			var rec record
			if err := json.Unmarshal([]byte(data), &rec); err != nil {
				return deleted, errors.Wrap(err, "failed to unmarshal session")
			}
			expired = rec.UpdatedAt.Before(cutoff)
		}

		if expired {
			if err := m.Delete(ctx, id); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

func (m *redisStore) marshal(sess *tools.SessionContext) ([]byte, error) {
	st := sess.State()
	st.Images = nil
	data, err := json.Marshal(&record{
		SessionState: *st,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session")
	}
	return data, nil
}
