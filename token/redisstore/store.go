// Package redisstore implements token.Store on Redis hashes. Rotation,
// revocation and client registration run as Lua scripts so each is a single
// atomic step on the server.
//
// Key layout, with the default prefix "gg":
//
//	gg:at:{digest}          access token hash (user, client, scope, exp, created, refresh)
//	gg:rt:{digest}          refresh token hash (user, client, access, created)
//	gg:u:{user}             set of the user's live access token digests
//	gg:client:{grant}:{name} client hash (id, type, created)
//
// Every token key expires Retention after its access token does, so the
// refresh path can still tell an expired pair from an unknown token.
//
// The scripts build the keys of a token pair and of its user set from the
// prefix instead of receiving them in KEYS, so the store needs a single Redis
// node or a Sentinel failover client. Redis Cluster is not supported and Ping
// reports ErrClusterUnsupported for a cluster client.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goGrant/token"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "gg"

// ErrClusterUnsupported is returned by Ping when the client is a Redis
// Cluster client.
var ErrClusterUnsupported = errors.New("redisstore: redis cluster is not supported")

// Store is a Redis-backed token.Store.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// New creates a Store. An empty prefix selects DefaultPrefix; a negative
// retention is treated as zero.
func New(client redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if retention < 0 {
		retention = 0
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *Store) accessKey(digest string) string {
	return s.prefix + ":at:" + digest
}

func (s *Store) refreshKey(digest string) string {
	return s.prefix + ":rt:" + digest
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) clientKey(name string, grant token.GrantType) string {
	return s.prefix + ":client:" + string(grant) + ":" + name
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", token.ErrUnavailable, err)
}

func (s *Store) EnsureClient(ctx context.Context, c token.Client) (token.Client, error) {
	res, err := ensureClientLua.Run(
		ctx,
		s.redis,
		[]string{s.clientKey(c.Name, c.Grant)},
		c.ID,
		string(c.Type),
		strconv.FormatInt(c.CreatedAt.UnixMilli(), 10),
	).Slice()
	if err != nil {
		return token.Client{}, unavailable(err)
	}
	if len(res) != 3 {
		return token.Client{}, unavailable(errors.New("unexpected client script reply"))
	}

	id, _ := res[0].(string)
	typ, _ := res[1].(string)
	created, _ := res[2].(string)
	return token.Client{
		ID:        id,
		Name:      c.Name,
		Type:      token.ClientType(typ),
		Grant:     c.Grant,
		CreatedAt: fromMillisString(created),
	}, nil
}

func (s *Store) SavePair(ctx context.Context, p token.Pair) error {
	expireAt := p.Access.ExpiresAt.Add(s.retention)
	atKey := s.accessKey(p.Access.Hash)
	rtKey := s.refreshKey(p.Refresh.Hash)
	userKey := s.userKey(p.Access.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, atKey,
			"user", p.Access.UserID,
			"client", p.Access.ClientID,
			"scope", p.Access.Scope,
			"exp", p.Access.ExpiresAt.UnixMilli(),
			"created", p.Access.CreatedAt.UnixMilli(),
			"refresh", p.Refresh.Hash,
		)
		pipe.PExpireAt(ctx, atKey, expireAt)
		pipe.HSet(ctx, rtKey,
			"user", p.Refresh.UserID,
			"client", p.Refresh.ClientID,
			"access", p.Refresh.AccessHash,
			"created", p.Refresh.CreatedAt.UnixMilli(),
		)
		pipe.PExpireAt(ctx, rtKey, expireAt)
		pipe.SAdd(ctx, userKey, p.Access.Hash)
		pipe.PExpireAt(ctx, userKey, expireAt)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Access(ctx context.Context, hash string) (token.AccessToken, error) {
	fields, err := s.redis.HGetAll(ctx, s.accessKey(hash)).Result()
	if err != nil {
		return token.AccessToken{}, unavailable(err)
	}
	if len(fields) == 0 {
		return token.AccessToken{}, token.ErrNotFound
	}

	return token.AccessToken{
		Hash:      hash,
		UserID:    fields["user"],
		ClientID:  fields["client"],
		Scope:     fields["scope"],
		ExpiresAt: fromMillisString(fields["exp"]),
		CreatedAt: fromMillisString(fields["created"]),
	}, nil
}

func (s *Store) Rotate(ctx context.Context, r token.Rotation) (token.Pair, error) {
	revoke := "0"
	if r.RevokeSuperseded {
		revoke = "1"
	}

	res, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.refreshKey(r.RefreshHash)},
		s.prefix,
		strconv.FormatInt(r.Now.UnixMilli(), 10),
		r.NextAccessHash,
		r.NextRefreshHash,
		strconv.FormatInt(r.NextExpiresAt.UnixMilli(), 10),
		strconv.FormatInt(r.NextExpiresAt.Add(s.retention).UnixMilli(), 10),
		revoke,
	).Slice()
	if err != nil {
		return token.Pair{}, unavailable(err)
	}
	if len(res) == 0 {
		return token.Pair{}, unavailable(errors.New("empty rotate script reply"))
	}

	status, ok := res[0].(int64)
	if !ok {
		return token.Pair{}, unavailable(errors.New("invalid rotate script status"))
	}

	switch status {
	case rotateStatusNotFound:
		return token.Pair{}, token.ErrNotFound
	case rotateStatusExpired:
		return token.Pair{}, token.ErrExpired
	case rotateStatusRotated:
	default:
		return token.Pair{}, unavailable(fmt.Errorf("unknown rotate status %d", status))
	}
	if len(res) != 4 {
		return token.Pair{}, unavailable(errors.New("short rotate script reply"))
	}

	userID, _ := res[1].(string)
	clientID, _ := res[2].(string)
	scope, _ := res[3].(string)
	return token.Pair{
		Access: token.AccessToken{
			Hash:      r.NextAccessHash,
			UserID:    userID,
			ClientID:  clientID,
			Scope:     scope,
			ExpiresAt: r.NextExpiresAt,
			CreatedAt: r.Now,
		},
		Refresh: token.RefreshToken{
			Hash:       r.NextRefreshHash,
			UserID:     userID,
			ClientID:   clientID,
			AccessHash: r.NextAccessHash,
			CreatedAt:  r.Now,
		},
	}, nil
}

func (s *Store) RevokeAccess(ctx context.Context, accessHash string) error {
	err := revokeAccessLua.Run(ctx, s.redis, []string{s.accessKey(accessHash)}, s.prefix, accessHash).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) RevokeUser(ctx context.Context, userID string) (int, error) {
	n, err := revokeUserLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.prefix).Int()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// PurgeExpired is a no-op: every key carries a server-side expiry.
func (s *Store) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, ok := s.redis.(*redis.ClusterClient); ok {
		return ErrClusterUnsupported
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func fromMillisString(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ token.Store = (*Store)(nil)
