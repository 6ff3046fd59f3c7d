package sentra

import (
	"github.com/aphistic/sweet"
	. "github.com/onsi/gomega"
)

type CommandSuite struct{}

func (s *CommandSuite) TestClassificationTotality(t sweet.T) {
	for name, info := range commands {
		Expect(info.kind == cmdRead || info.kind == cmdWrite).To(
			BeTrue(),
			"command %s has no classification", name,
		)
	}
}

func (s *CommandSuite) TestMutatingCommandsAreWrites(t sweet.T) {
	// Conditional and upsert variants mutate state and must route to
	// the primary like their unconditional counterparts.
	for _, name := range []string{
		"SET", "SETNX", "MSETNX", "GETSET", "APPEND", "DEL",
		"EXPIRE", "RENAME", "HSET", "HSETNX", "SADD", "SMOVE",
		"SPOP", "ZADD", "ZINCRBY", "LPUSH", "RPUSH", "LPOP",
		"RPOP", "LSET", "LREM", "LTRIM",
	} {
		info, ok := lookupCommand(name)
		Expect(ok).To(BeTrue(), "command %s missing from table", name)
		Expect(info.kind).To(Equal(cmdWrite), "command %s should be a write", name)
	}
}

func (s *CommandSuite) TestInspectionCommandsAreReads(t sweet.T) {
	for _, name := range []string{
		"GET", "MGET", "STRLEN", "EXISTS", "TTL", "TYPE", "KEYS",
		"SCAN", "HGET", "HGETALL", "SMEMBERS", "SISMEMBER",
		"ZRANGE", "ZSCORE", "ZRANGEBYLEX", "LRANGE", "LLEN",
		"LINDEX",
	} {
		info, ok := lookupCommand(name)
		Expect(ok).To(BeTrue(), "command %s missing from table", name)
		Expect(info.kind).To(Equal(cmdRead), "command %s should be a read", name)
	}
}

func (s *CommandSuite) TestLookupIsCaseInsensitive(t sweet.T) {
	lower, ok := lookupCommand("hgetall")
	Expect(ok).To(BeTrue())

	upper, ok := lookupCommand("HGETALL")
	Expect(ok).To(BeTrue())
	Expect(lower).To(Equal(upper))
}

func (s *CommandSuite) TestUnknownCommandFailsClosed(t sweet.T) {
	for _, name := range []string{"EVAL", "SUBSCRIBE", "CLUSTER", "bogus"} {
		_, ok := lookupCommand(name)
		Expect(ok).To(BeFalse(), "command %s should not be supported", name)
	}
}

func (s *CommandSuite) TestRoleForKind(t sweet.T) {
	Expect(roleFor(cmdWrite)).To(Equal(RolePrimary))
	Expect(roleFor(cmdRead)).To(Equal(RoleReplica))
}
