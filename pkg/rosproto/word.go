package rosproto

import (
	"bytes"
	"strconv"
)

// WordType WordType
type WordType uint8

const (
	WordTypeCategory WordType = iota
	WordTypeTag
	WordTypeAttribute
	WordTypeMessage
)

func (w WordType) String() string {
	switch w {
	case WordTypeCategory:
		return "category"
	case WordTypeTag:
		return "tag"
	case WordTypeAttribute:
		return "attribute"
	case WordTypeMessage:
		return "message"
	}
	return "unknown"
}

// Category classifies a sentence by its leading ! word.
type Category uint8

const (
	CategoryDone Category = iota
	CategoryReply
	CategoryTrap
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryDone:
		return "!done"
	case CategoryReply:
		return "!re"
	case CategoryTrap:
		return "!trap"
	case CategoryFatal:
		return "!fatal"
	}
	return "unknown"
}

// Word is one decoded protocol word. Type selects which of the other
// fields carry data. Byte slices alias the parsed buffer and stay valid
// only until that buffer is compacted or reused.
type Word struct {
	Type     WordType
	Category Category
	Tag      uint16
	Key      []byte
	Value    []byte
	HasValue bool
	Message  []byte
}

var tagPrefix = []byte(".tag=")

// ParseWord classifies one word payload by its prefix. A .tag= prefix
// yields a tag word, = an attribute, ! a category, anything else a
// message.
func ParseWord(data []byte) (Word, error) {
	if bytes.HasPrefix(data, tagPrefix) {
		tag, err := parseTag(data[len(tagPrefix):])
		if err != nil {
			return Word{}, err
		}
		return Word{Type: WordTypeTag, Tag: tag}, nil
	}
	if len(data) > 0 && data[0] == '=' {
		content := data[1:]
		i := bytes.IndexByte(content, '=')
		if i < 0 {
			return Word{Type: WordTypeAttribute, Key: content}, nil
		}
		return Word{Type: WordTypeAttribute, Key: content[:i], Value: content[i+1:], HasValue: true}, nil
	}
	if len(data) > 0 && data[0] == '!' {
		category, err := parseCategory(data[1:])
		if err != nil {
			return Word{}, err
		}
		return Word{Type: WordTypeCategory, Category: category}, nil
	}
	return Word{Type: WordTypeMessage, Message: data}, nil
}

func parseTag(digits []byte) (uint16, error) {
	for _, c := range digits {
		if c >= 0x80 {
			return 0, &InvalidTagDigitsError{Tag: append([]byte(nil), digits...)}
		}
	}
	n, err := strconv.ParseUint(string(digits), 10, 16)
	if err != nil {
		return 0, &InvalidTagError{Tag: append([]byte(nil), digits...)}
	}
	return uint16(n), nil
}

func parseCategory(name []byte) (Category, error) {
	switch string(name) {
	case "done":
		return CategoryDone, nil
	case "re":
		return CategoryReply, nil
	case "trap":
		return CategoryTrap, nil
	case "fatal":
		return CategoryFatal, nil
	}
	return 0, &InvalidCategoryError{Category: append([]byte(nil), name...)}
}
