// internal/words/words.go
//
// Word list management for the game.
//
// Responsibilities:
//   - Load the playable word list from a configured file or fall back to
//     the embedded default list.
//   - Maintain a set for quick membership lookups.
//   - Supply Random for secret selection and IsWord for guess checking.
//
// Constraints:
//   - Words must be exactly 5 alphabetic letters.
//   - Lists are normalized to uppercase; duplicates are dropped.
//   - Initialization runs once (sync.Once); later Init calls return the
//     first result.

package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
)

// Embedded default list keeps the server playable with no files configured.
//
//go:embed words.txt
var embeddedWords string

var (
	initOnce   sync.Once
	list       []string            // load order, uppercase, deduplicated
	set        map[string]struct{} // membership lookups
	initialErr error
)

// ErrEmptyList reports that initialization yielded no usable words.
var ErrEmptyList = errors.New("words: list is empty")

// Init loads the word list exactly once. With a non-empty path the list is
// read from that file, one word per line; otherwise the embedded defaults
// are used. Lines that are not exactly 5 letters are skipped.
func Init(path string) error {
	initOnce.Do(func() {
		var loaded []string
		if path != "" {
			var err error
			loaded, err = readWordFile(path)
			if err != nil {
				initialErr = fmt.Errorf("words: load %s: %w", path, err)
				return
			}
		} else {
			loaded = normalizeLines(embeddedWords)
		}

		set = make(map[string]struct{}, len(loaded))
		list = make([]string, 0, len(loaded))
		for _, w := range loaded {
			if _, dup := set[w]; dup {
				continue
			}
			set[w] = struct{}{}
			list = append(list, w)
		}

		if len(list) == 0 {
			initialErr = ErrEmptyList
		}
	})
	return initialErr
}

// readWordFile loads one word per line from a file, uppercases and trims,
// and keeps only valid 5-letter alphabetic words.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if len(w) == 5 && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// normalizeLines processes an embedded multiline string into a slice of
// valid uppercase 5-letter words.
func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		w := strings.ToUpper(strings.TrimSpace(line))
		if len(w) == 5 && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Random returns a cryptographically random word from the list.
func Random() (string, error) {
	if len(list) == 0 {
		return "", ErrEmptyList
	}
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", err
	}
	return list[nBig.Int64()], nil
}

// IsWord reports whether w (any case) is in the word list.
func IsWord(w string) bool {
	_, ok := set[strings.ToUpper(strings.TrimSpace(w))]
	return ok
}

// All returns a copy of the word list in load order.
func All() []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Count returns the number of loaded words.
func Count() int { return len(list) }
