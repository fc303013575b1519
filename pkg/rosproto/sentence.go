package rosproto

// Sentence is the word list of one protocol sentence, terminator
// excluded.
type Sentence []Word

// NextSentence decodes the first complete sentence in data. The second
// return value is the number of bytes consumed including the
// terminator. ErrIncomplete means data holds no complete sentence yet;
// retry from the same position once more bytes arrive. Any other error
// poisons the whole buffer, the stream can not be resynchronized.
func NextSentence(data []byte) (Sentence, int, error) {
	var sentence Sentence
	idx := 0
	for {
		length, n, err := ReadLength(data[idx:])
		if err != nil {
			return nil, 0, err
		}
		if length == 0 {
			return sentence, idx + n, nil
		}
		// compare unnarrowed, a declared length can exceed a 32 bit int
		if uint64(length) > uint64(len(data)-idx-n) {
			return nil, 0, ErrIncomplete
		}
		end := idx + n + int(length)
		word, err := ParseWord(data[idx+n : end])
		if err != nil {
			return nil, 0, err
		}
		sentence = append(sentence, word)
		idx = end
	}
}
