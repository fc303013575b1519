package rosproto

// TrapCategory is the numeric category code carried by a trap
// sentence.
type TrapCategory uint8

const (
	TrapCategoryMissingItemOrCommand TrapCategory = iota
	TrapCategoryArgumentValueFailure
	TrapCategoryExecutionInterrupted
	TrapCategoryScriptingError
	TrapCategoryGeneralError
	TrapCategoryApiError
	TrapCategoryTtyError
	TrapCategoryReturnValue
)

func (c TrapCategory) String() string {
	switch c {
	case TrapCategoryMissingItemOrCommand:
		return "missing item or command"
	case TrapCategoryArgumentValueFailure:
		return "argument value failure"
	case TrapCategoryExecutionInterrupted:
		return "execution interrupted"
	case TrapCategoryScriptingError:
		return "scripting error"
	case TrapCategoryGeneralError:
		return "general error"
	case TrapCategoryApiError:
		return "api error"
	case TrapCategoryTtyError:
		return "tty error"
	case TrapCategoryReturnValue:
		return "return value"
	}
	return "unknown trap category"
}

// TrapCategoryFromBytes decodes the value of a category attribute. The
// wire carries a single ASCII digit 0..7.
func TrapCategoryFromBytes(value []byte) (TrapCategory, bool) {
	if len(value) != 1 || value[0] < '0' || value[0] > '7' {
		return 0, false
	}
	return TrapCategory(value[0] - '0'), true
}

// Trap is the decoded payload of a trap sentence.
type Trap struct {
	Category TrapCategory
	Message  []byte
}
