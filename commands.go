package sentra

import "strings"

type (
	commandKind int
	keyShape    int
	resultShape int

	// commandInfo describes how a command is routed: which endpoint
	// role it requires, which argument positions carry keys, and
	// whether its result surfaces key names.
	commandInfo struct {
		kind   commandKind
		keys   keyShape
		result resultShape
	}
)

const (
	cmdRead commandKind = iota
	cmdWrite
)

const (
	keysNone        keyShape = iota
	keysFirst                // first argument is a key
	keysFirstTwo             // first two arguments are keys (SMOVE, RENAME)
	keysAll                  // every argument is a key (DEL, MGET)
	keysAlternating          // key value key value ... (MSET)
	keysPattern              // first argument is a key pattern (KEYS)
	keysMatchOption          // key pattern follows a MATCH token (SCAN)
)

const (
	resultNone     resultShape = iota
	resultKey                  // reply is a single key name
	resultKeyList              // reply is a flat list of key names
	resultScanPage             // reply is [cursor, list of key names]
)

// commands is the supported command surface. Any command that can
// mutate stored state, including conditional and upsert variants, is
// classified write; pure retrieval and inspection commands are read.
// The table, not the caller, decides endpoint routing.
var commands = map[string]commandInfo{
	// String operations
	"GET":         {cmdRead, keysFirst, resultNone},
	"GETRANGE":    {cmdRead, keysFirst, resultNone},
	"STRLEN":      {cmdRead, keysFirst, resultNone},
	"MGET":        {cmdRead, keysAll, resultNone},
	"SET":         {cmdWrite, keysFirst, resultNone},
	"SETNX":       {cmdWrite, keysFirst, resultNone},
	"SETEX":       {cmdWrite, keysFirst, resultNone},
	"PSETEX":      {cmdWrite, keysFirst, resultNone},
	"SETRANGE":    {cmdWrite, keysFirst, resultNone},
	"APPEND":      {cmdWrite, keysFirst, resultNone},
	"GETSET":      {cmdWrite, keysFirst, resultNone},
	"GETDEL":      {cmdWrite, keysFirst, resultNone},
	"INCR":        {cmdWrite, keysFirst, resultNone},
	"INCRBY":      {cmdWrite, keysFirst, resultNone},
	"INCRBYFLOAT": {cmdWrite, keysFirst, resultNone},
	"DECR":        {cmdWrite, keysFirst, resultNone},
	"DECRBY":      {cmdWrite, keysFirst, resultNone},
	"MSET":        {cmdWrite, keysAlternating, resultNone},
	"MSETNX":      {cmdWrite, keysAlternating, resultNone},

	// Key management
	"DEL":       {cmdWrite, keysAll, resultNone},
	"UNLINK":    {cmdWrite, keysAll, resultNone},
	"EXISTS":    {cmdRead, keysAll, resultNone},
	"TYPE":      {cmdRead, keysFirst, resultNone},
	"TTL":       {cmdRead, keysFirst, resultNone},
	"PTTL":      {cmdRead, keysFirst, resultNone},
	"EXPIRE":    {cmdWrite, keysFirst, resultNone},
	"PEXPIRE":   {cmdWrite, keysFirst, resultNone},
	"EXPIREAT":  {cmdWrite, keysFirst, resultNone},
	"PERSIST":   {cmdWrite, keysFirst, resultNone},
	"RENAME":    {cmdWrite, keysFirstTwo, resultNone},
	"RENAMENX":  {cmdWrite, keysFirstTwo, resultNone},
	"KEYS":      {cmdRead, keysPattern, resultKeyList},
	"SCAN":      {cmdRead, keysMatchOption, resultScanPage},
	"RANDOMKEY": {cmdRead, keysNone, resultKey},

	// Hash operations. SCAN-style field patterns match hash fields,
	// not keys, so only the leading key argument is rewritten.
	"HGET":         {cmdRead, keysFirst, resultNone},
	"HMGET":        {cmdRead, keysFirst, resultNone},
	"HGETALL":      {cmdRead, keysFirst, resultNone},
	"HKEYS":        {cmdRead, keysFirst, resultNone},
	"HVALS":        {cmdRead, keysFirst, resultNone},
	"HLEN":         {cmdRead, keysFirst, resultNone},
	"HEXISTS":      {cmdRead, keysFirst, resultNone},
	"HSTRLEN":      {cmdRead, keysFirst, resultNone},
	"HRANDFIELD":   {cmdRead, keysFirst, resultNone},
	"HSCAN":        {cmdRead, keysFirst, resultNone},
	"HSET":         {cmdWrite, keysFirst, resultNone},
	"HSETNX":       {cmdWrite, keysFirst, resultNone},
	"HMSET":        {cmdWrite, keysFirst, resultNone},
	"HDEL":         {cmdWrite, keysFirst, resultNone},
	"HINCRBY":      {cmdWrite, keysFirst, resultNone},
	"HINCRBYFLOAT": {cmdWrite, keysFirst, resultNone},

	// List operations
	"LRANGE": {cmdRead, keysFirst, resultNone},
	"LLEN":   {cmdRead, keysFirst, resultNone},
	"LINDEX": {cmdRead, keysFirst, resultNone},
	"LPUSH":  {cmdWrite, keysFirst, resultNone},
	"RPUSH":  {cmdWrite, keysFirst, resultNone},
	"LPOP":   {cmdWrite, keysFirst, resultNone},
	"RPOP":   {cmdWrite, keysFirst, resultNone},
	"LSET":   {cmdWrite, keysFirst, resultNone},
	"LREM":   {cmdWrite, keysFirst, resultNone},
	"LTRIM":  {cmdWrite, keysFirst, resultNone},

	// Set operations
	"SMEMBERS":    {cmdRead, keysFirst, resultNone},
	"SISMEMBER":   {cmdRead, keysFirst, resultNone},
	"SMISMEMBER":  {cmdRead, keysFirst, resultNone},
	"SCARD":       {cmdRead, keysFirst, resultNone},
	"SRANDMEMBER": {cmdRead, keysFirst, resultNone},
	"SSCAN":       {cmdRead, keysFirst, resultNone},
	"SDIFF":       {cmdRead, keysAll, resultNone},
	"SINTER":      {cmdRead, keysAll, resultNone},
	"SUNION":      {cmdRead, keysAll, resultNone},
	"SADD":        {cmdWrite, keysFirst, resultNone},
	"SREM":        {cmdWrite, keysFirst, resultNone},
	"SPOP":        {cmdWrite, keysFirst, resultNone},
	"SMOVE":       {cmdWrite, keysFirstTwo, resultNone},
	"SDIFFSTORE":  {cmdWrite, keysAll, resultNone},
	"SINTERSTORE": {cmdWrite, keysAll, resultNone},
	"SUNIONSTORE": {cmdWrite, keysAll, resultNone},

	// Sorted-set operations
	"ZRANGE":           {cmdRead, keysFirst, resultNone},
	"ZREVRANGE":        {cmdRead, keysFirst, resultNone},
	"ZRANGEBYSCORE":    {cmdRead, keysFirst, resultNone},
	"ZRANGEBYLEX":      {cmdRead, keysFirst, resultNone},
	"ZREVRANGEBYSCORE": {cmdRead, keysFirst, resultNone},
	"ZCARD":            {cmdRead, keysFirst, resultNone},
	"ZCOUNT":           {cmdRead, keysFirst, resultNone},
	"ZSCORE":           {cmdRead, keysFirst, resultNone},
	"ZRANK":            {cmdRead, keysFirst, resultNone},
	"ZREVRANK":         {cmdRead, keysFirst, resultNone},
	"ZSCAN":            {cmdRead, keysFirst, resultNone},
	"ZADD":             {cmdWrite, keysFirst, resultNone},
	"ZREM":             {cmdWrite, keysFirst, resultNone},
	"ZINCRBY":          {cmdWrite, keysFirst, resultNone},
	"ZPOPMIN":          {cmdWrite, keysFirst, resultNone},
	"ZPOPMAX":          {cmdWrite, keysFirst, resultNone},
	"ZREMRANGEBYRANK":  {cmdWrite, keysFirst, resultNone},
	"ZREMRANGEBYSCORE": {cmdWrite, keysFirst, resultNone},

	// Maintenance. PING health-checks the writable side.
	"PING":     {cmdWrite, keysNone, resultNone},
	"FLUSHDB":  {cmdWrite, keysNone, resultNone},
	"FLUSHALL": {cmdWrite, keysNone, resultNone},
	"DBSIZE":   {cmdRead, keysNone, resultNone},
}

// lookupCommand resolves a command against the supported surface.
// Unknown commands fail closed: without a table entry there is no safe
// way to classify the command or rewrite its key arguments, so
// dispatch rejects them.
func lookupCommand(command string) (commandInfo, bool) {
	info, ok := commands[strings.ToUpper(command)]
	return info, ok
}

// roleFor maps a classification onto the endpoint role that serves it.
func roleFor(kind commandKind) Role {
	if kind == cmdWrite {
		return RolePrimary
	}

	return RoleReplica
}
