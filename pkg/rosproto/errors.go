package rosproto

import (
	"errors"
	"fmt"
)

var (
	// ErrPrefixLength reports a reserved control byte (0xF8..0xFF) at the
	// start of a length prefix.
	ErrPrefixLength = errors.New("reserved length prefix byte")

	// ErrIncomplete reports that the buffer ends before the current
	// sentence does. Not a failure, feed more bytes and retry.
	ErrIncomplete = errors.New("incomplete sentence")

	ErrMissingTrapCategory = errors.New("trap missing category attribute")
	ErrMissingTrapMessage  = errors.New("trap missing message attribute")
)

// InvalidTagError reports a .tag= word whose payload is not a decimal
// 16 bit unsigned number.
type InvalidTagError struct {
	Tag []byte
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("invalid tag %q", e.Tag)
}

// InvalidTagDigitsError reports a .tag= word carrying bytes outside
// the ASCII range.
type InvalidTagDigitsError struct {
	Tag []byte
}

func (e *InvalidTagDigitsError) Error() string {
	return fmt.Sprintf("non ascii tag digits %q", e.Tag)
}

// InvalidCategoryError reports a ! word that names none of done, re,
// trap or fatal.
type InvalidCategoryError struct {
	Category []byte
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q", e.Category)
}

// WordSequenceError reports a word that is not allowed at its position
// in the sentence.
type WordSequenceError struct {
	Got      WordType
	Expected []WordType
}

func (e *WordSequenceError) Error() string {
	return fmt.Sprintf("unexpected %s word, expected %s", e.Got, e.Expected)
}

// MissingWordError reports a sentence that ends before a required word.
type MissingWordError struct {
	Expected WordType
}

func (e *MissingWordError) Error() string {
	return fmt.Sprintf("sentence missing %s word", e.Expected)
}

// UnknownTagError reports a tagged sentence for which no command is
// outstanding.
type UnknownTagError struct {
	Tag uint16
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %d", e.Tag)
}

// InvalidTrapAttributeError reports an attribute key that is not valid
// inside a trap sentence.
type InvalidTrapAttributeError struct {
	Key []byte
}

func (e *InvalidTrapAttributeError) Error() string {
	return fmt.Sprintf("invalid attribute %q in trap", e.Key)
}
