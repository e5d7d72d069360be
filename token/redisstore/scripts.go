package redisstore

import "github.com/redis/go-redis/v9"

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusRotated  int64 = 2
)

// KEYS[1] client hash
// ARGV: id, type, created_ms
const ensureClientScript = `
if redis.call("HSETNX", KEYS[1], "id", ARGV[1]) == 1 then
  redis.call("HSET", KEYS[1], "type", ARGV[2], "created", ARGV[3])
end
return redis.call("HMGET", KEYS[1], "id", "type", "created")
`

var ensureClientLua = redis.NewScript(ensureClientScript)

// KEYS[1] refresh hash
// ARGV: prefix, now_ms, next_access, next_refresh, next_exp_ms, pexpireat_ms, revoke_superseded
const rotateScript = `
local prefix = ARGV[1]
local now_ms = tonumber(ARGV[2])
local rt_key = KEYS[1]

local old = redis.call("HMGET", rt_key, "user", "client", "access")
if not old[1] then
  return {0}
end

local user_id = old[1]
local client_id = old[2]
local old_access = old[3]
local at_key = prefix .. ":at:" .. old_access
local user_key = prefix .. ":u:" .. user_id

redis.call("DEL", rt_key)
redis.call("HDEL", at_key, "refresh")

local at = redis.call("HMGET", at_key, "scope", "exp")
if not at[2] or tonumber(at[2]) <= now_ms then
  return {1}
end
local scope = at[1]

if ARGV[7] == "1" then
  redis.call("DEL", at_key)
  redis.call("SREM", user_key, old_access)
end

local next_at = prefix .. ":at:" .. ARGV[3]
local next_rt = prefix .. ":rt:" .. ARGV[4]

redis.call("HSET", next_at,
  "user", user_id, "client", client_id, "scope", scope,
  "exp", ARGV[5], "created", ARGV[2], "refresh", ARGV[4])
redis.call("PEXPIREAT", next_at, ARGV[6])
redis.call("HSET", next_rt,
  "user", user_id, "client", client_id, "access", ARGV[3], "created", ARGV[2])
redis.call("PEXPIREAT", next_rt, ARGV[6])
redis.call("SADD", user_key, ARGV[3])
redis.call("PEXPIREAT", user_key, ARGV[6])

return {2, user_id, client_id, scope}
`

var rotateLua = redis.NewScript(rotateScript)

// KEYS[1] access hash
// ARGV: prefix, access digest
const revokeAccessScript = `
local fields = redis.call("HMGET", KEYS[1], "user", "refresh")
if not fields[1] then
  return 0
end
redis.call("DEL", KEYS[1])
if fields[2] then
  redis.call("DEL", ARGV[1] .. ":rt:" .. fields[2])
end
redis.call("SREM", ARGV[1] .. ":u:" .. fields[1], ARGV[2])
return 1
`

var revokeAccessLua = redis.NewScript(revokeAccessScript)

// KEYS[1] user index set
// ARGV: prefix
const revokeUserScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, digest in ipairs(members) do
  local at_key = ARGV[1] .. ":at:" .. digest
  local rt = redis.call("HGET", at_key, "refresh")
  if rt then
    redis.call("DEL", ARGV[1] .. ":rt:" .. rt)
  end
  removed = removed + redis.call("DEL", at_key)
end
redis.call("DEL", KEYS[1])
return removed
`

var revokeUserLua = redis.NewScript(revokeUserScript)
