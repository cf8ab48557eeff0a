package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/registry"
)

// Store keeps device registrations as JSON values keyed by
// cm:device:{cloudType}:{registrationID}, and hosts the dispatch queue
// (a LIST the worker BRPOPs from).
type Store struct {
	cfg cloudmsg.RedisSettings
	cli *redis.Client
}

func New(cfg cloudmsg.RedisSettings) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis: missing host")
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	opts := &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.Pool.MaxActive > 0 {
		opts.PoolSize = cfg.Pool.MaxActive
	}
	if cfg.Pool.MaxIdle > 0 {
		opts.MinIdleConns = cfg.Pool.MaxIdle
	}

	cli := redis.NewClient(opts)
	return &Store{cfg: cfg, cli: cli}, nil
}

func (s *Store) Close() error { return s.cli.Close() }

func (s *Store) deviceKey(ct cloudmsg.CloudType, id string) string {
	return fmt.Sprintf("cm:device:%s:%s", ct, id)
}

// Save upserts a device record. The dispatch core never calls this; it
// exists for the registering side of the platform and for seeding.
func (s *Store) Save(ctx context.Context, d registry.Device) error {
	if d.RegistrationID == "" {
		return cloudmsg.ErrInvalidArgument
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.cli.Set(ctx, s.deviceKey(d.CloudType, d.RegistrationID), b, 0).Err()
}

func (s *Store) Find(ctx context.Context, ct cloudmsg.CloudType, id string) (*registry.Device, error) {
	v, err := s.cli.Get(ctx, s.deviceKey(ct, id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d registry.Device
	if err := json.Unmarshal([]byte(v), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) FilterByIDs(ctx context.Context, ct cloudmsg.CloudType, ids []string) ([]registry.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.deviceKey(ct, id))
	}
	vals, err := s.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]registry.Device, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var d registry.Device
		if err := json.Unmarshal([]byte(str), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Deactivate clears the active flag on every known id in one transaction.
func (s *Store) Deactivate(ctx context.Context, ct cloudmsg.CloudType, ids []string) error {
	devices, err := s.FilterByIDs(ctx, ct, ids)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}
	_, err = s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range devices {
			d.Active = false
			b, err := json.Marshal(d)
			if err != nil {
				return err
			}
			pipe.Set(ctx, s.deviceKey(ct, d.RegistrationID), b, 0)
		}
		return nil
	})
	return err
}

// Rename moves the record at oldID to newID atomically, so a concurrent
// reader never observes both keys populated.
func (s *Store) Rename(ctx context.Context, ct cloudmsg.CloudType, oldID, newID string) error {
	d, err := s.Find(ctx, ct, oldID)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	d.RegistrationID = newID
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.deviceKey(ct, oldID))
		pipe.Set(ctx, s.deviceKey(ct, newID), b, 0)
		return nil
	})
	return err
}

// Pop blocks for up to block to pop a single raw payload from a LIST key.
// It uses BRPOP so that multiple workers can share the same queue.
func (s *Store) Pop(ctx context.Context, key string, block time.Duration) (string, error) {
	if key == "" {
		key = s.cfg.QueueKey
	}
	if key == "" {
		return "", cloudmsg.ErrInvalidArgument
	}
	if block <= 0 {
		block = 5 * time.Second
	}

	res, err := s.cli.BRPop(ctx, block, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

// DecodeRequest decodes a queued JSON payload into a dispatch Request.
// A bare non-JSON payload is treated as a single FCM registration ID.
func DecodeRequest(payload string) (cloudmsg.Request, error) {
	var r cloudmsg.Request
	if payload == "" {
		return r, cloudmsg.ErrInvalidArgument
	}
	if payload[0] != '{' {
		r.RegistrationIDs = []string{payload}
		r.CloudType = cloudmsg.CloudFCM
		return r, nil
	}
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return r, err
	}
	return r, nil
}
