package rosproto

import "strconv"

// QueryOperator is one boolean combinator code for a ?# query word.
type QueryOperator byte

const (
	QueryOperatorNot QueryOperator = '!'
	QueryOperatorAnd QueryOperator = '&'
	QueryOperatorOr  QueryOperator = '|'
	QueryOperatorDot QueryOperator = '.'
)

var (
	loginPath  = []byte("/login")
	cancelPath = []byte("/cancel")

	eq        = []byte("=")
	tagWord   = []byte(".tag=")
	queryWord = []byte("?")
	queryNot  = []byte("?-")
	queryGt   = []byte("?>")
	queryLt   = []byte("?<")
	queryOps  = []byte("?#")

	nameKey     = []byte("name")
	passwordKey = []byte("password")
	tagKey      = []byte("tag")
)

// Command is a frozen command ready for the wire. Data holds the full
// word sequence including the terminator.
type Command struct {
	Tag  uint16
	Data []byte
}

// CommandBuilder builds one command as a linear word sequence. Every
// method appends to the wire buffer directly, Build freezes it.
type CommandBuilder struct {
	tag uint16
	enc *Encoder
}

// NewCommandBuilder starts a command for path, tagging it with tag.
func NewCommandBuilder(tag uint16, path []byte) *CommandBuilder {
	enc := NewEncoder()
	enc.WriteWord(path)
	enc.WriteWord(tagWord, []byte(strconv.FormatUint(uint64(tag), 10)))
	return &CommandBuilder{tag: tag, enc: enc}
}

// Attribute appends =key=value.
func (c *CommandBuilder) Attribute(key, value []byte) *CommandBuilder {
	c.enc.WriteWord(eq, key, eq, value)
	return c
}

// FlagAttribute appends =key= with no value.
func (c *CommandBuilder) FlagAttribute(key []byte) *CommandBuilder {
	c.enc.WriteWord(eq, key, eq)
	return c
}

// QueryPresent appends ?name, matching items that have the property.
func (c *CommandBuilder) QueryPresent(name []byte) *CommandBuilder {
	c.enc.WriteWord(queryWord, name)
	return c
}

// QueryNotPresent appends ?-name, matching items without the property.
func (c *CommandBuilder) QueryNotPresent(name []byte) *CommandBuilder {
	c.enc.WriteWord(queryNot, name)
	return c
}

// QueryEqual appends ?name=value.
func (c *CommandBuilder) QueryEqual(name, value []byte) *CommandBuilder {
	c.enc.WriteWord(queryWord, name, eq, value)
	return c
}

// QueryGt appends ?>name=value.
func (c *CommandBuilder) QueryGt(name, value []byte) *CommandBuilder {
	c.enc.WriteWord(queryGt, name, eq, value)
	return c
}

// QueryLt appends ?<name=value.
func (c *CommandBuilder) QueryLt(name, value []byte) *CommandBuilder {
	c.enc.WriteWord(queryLt, name, eq, value)
	return c
}

// QueryOperations appends ?# followed by one code per operator,
// combining the results of the preceding query words.
func (c *CommandBuilder) QueryOperations(operators ...QueryOperator) *CommandBuilder {
	word := make([]byte, 0, len(queryOps)+len(operators))
	word = append(word, queryOps...)
	for _, op := range operators {
		word = append(word, byte(op))
	}
	c.enc.WriteWord(word)
	return c
}

// Build appends the terminator and freezes the command.
func (c *CommandBuilder) Build() Command {
	c.enc.WriteTerminator()
	return Command{Tag: c.tag, Data: c.enc.Bytes()}
}

// LoginCommand builds /login with a name attribute and either a
// password attribute or, when password is nil, a bare password flag.
func LoginCommand(tag uint16, username, password []byte) Command {
	b := NewCommandBuilder(tag, loginPath).Attribute(nameKey, username)
	if password != nil {
		b = b.Attribute(passwordKey, password)
	} else {
		b = b.FlagAttribute(passwordKey)
	}
	return b.Build()
}

// CancelCommand builds /cancel for tag. The cancel reuses the canceled
// tag as its own.
func CancelCommand(tag uint16) Command {
	return NewCommandBuilder(tag, cancelPath).
		Attribute(tagKey, []byte(strconv.FormatUint(uint64(tag), 10))).
		Build()
}
