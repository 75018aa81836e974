package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префиксы ключей для различных типов данных
	subscriberKeyPrefix = "vip:subscriber:"
	versionKeyPrefix    = "vip:subscriber-version:"
	notifiedKeyPrefix   = "vip:notified:"

	defaultCacheTTL = 15 * time.Minute
)

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Error("Failed to connect to Redis at %s: %v", addr, err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis at %s", addr)
	return client, nil
}

// RedisCache кэш подписчиков в Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache создает кэш; ttl <= 0 заменяется значением по умолчанию
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func subscriberKey(id int64) string {
	return subscriberKeyPrefix + strconv.FormatInt(id, 10)
}

func versionKey(id int64) string {
	return versionKeyPrefix + strconv.FormatInt(id, 10)
}

// setIfVersion пишет значение, только если версия подписчика не менялась с момента чтения.
// KEYS[1] ключ подписчика, KEYS[2] ключ версии; ARGV: версия, данные, ttl в мс.
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[2])
if not v then v = '' end
if v ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Version текущая версия записи подписчика; пустая строка, если записи еще не менялись
func (c *RedisCache) Version(ctx context.Context, id int64) (string, error) {
	v, err := c.client.Get(ctx, versionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get subscriber version: %w", err)
	}
	return v, nil
}

// SetSubscriber кладет подписчика в кэш, если с момента чтения version его не инвалидировали.
// Возвращает false, если запись устарела и не сохранена.
func (c *RedisCache) SetSubscriber(ctx context.Context, sub domain.Subscriber, version string) (bool, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("failed to marshal subscriber: %w", err)
	}
	keys := []string{subscriberKey(sub.ID), versionKey(sub.ID)}
	stored, err := setIfVersion.Run(ctx, c.client, keys, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache subscriber: %w", err)
	}
	return stored == 1, nil
}

// GetSubscriber читает подписчика из кэша; промах это (nil, nil)
func (c *RedisCache) GetSubscriber(ctx context.Context, id int64) (*domain.Subscriber, error) {
	data, err := c.client.Get(ctx, subscriberKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscriber from cache: %w", err)
	}

	var sub domain.Subscriber
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached subscriber: %w", err)
	}
	return &sub, nil
}

// DeleteSubscriber удаляет подписчика из кэша и повышает версию,
// чтобы чтение, начатое до изменения, не вернуло в кэш старую запись
func (c *RedisCache) DeleteSubscriber(ctx context.Context, id int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), c.ttl)
		pipe.Del(ctx, subscriberKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete subscriber from cache: %w", err)
	}
	return nil
}

// RedisNotificationMarker маркер уведомлений через SET NX; общий для всех экземпляров сервиса
type RedisNotificationMarker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNotificationMarker создает маркер с временем жизни меток ttl
func NewRedisNotificationMarker(client *redis.Client, ttl time.Duration) *RedisNotificationMarker {
	return &RedisNotificationMarker{client: client, ttl: ttl}
}

// MarkOnce true, если метка поставлена этим вызовом
func (m *RedisNotificationMarker) MarkOnce(ctx context.Context, key string) (bool, error) {
	ok, err := m.client.SetNX(ctx, notifiedKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set notification marker: %w", err)
	}
	return ok, nil
}

// Release удаляет метку, чтобы повторный постбэк снова попробовал доставку
func (m *RedisNotificationMarker) Release(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, notifiedKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release notification marker: %w", err)
	}
	return nil
}
