// internal/game/evaluator.go
//
// Guess evaluation for the guess-the-word engine.
// Responsibilities:
//   - Normalize raw player input (trim, uppercase).
//   - Validate guesses (length, alphabetic A-Z).
//   - Score guesses against the secret using the two-pass algorithm.
//
// Notes:
//   - Secrets and guesses are uppercase by the time they reach Evaluate;
//     Normalize is the single place raw input is cleaned up.
//   - Duplicate letters are handled by counting: a guessed letter is only
//     marked wrong_position while unconsumed copies of it remain in the
//     secret. Extra copies come out absent.
package game

import "strings"

// Normalize trims surrounding whitespace and uppercases a raw guess or
// secret. It performs no validation; ValidateWord does that.
func Normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// ValidateWord checks that a normalized word is exactly WordLength
// characters of uppercase A-Z. Returns ErrInvalidGuess otherwise.
func ValidateWord(word string) error {
	if len(word) != WordLength || !isUpperAlpha(word) {
		return ErrInvalidGuess
	}
	return nil
}

// Evaluate scores guess against secret and returns one LetterMark per
// guess position, in guess order. Both inputs must already be normalized;
// if their lengths differ Evaluate returns ErrLengthMismatch and no marks.
//
// Pass 1:
//   - Mark exact matches as correct.
//   - Count the remaining (non-matched) secret letters by letter index.
//
// Pass 2:
//   - For each unmatched guess letter: if there is remaining count for that
//     letter, mark wrong_position and decrement the count; otherwise mark
//     absent.
//
// This ensures correct behavior with repeated letters in both secret and
// guess: marks never claim more copies of a letter than the secret holds.
func Evaluate(secret, guess string) ([]LetterMark, error) {
	if len(secret) != len(guess) {
		return nil, ErrLengthMismatch
	}

	n := len(guess)
	marks := make([]LetterMark, n)

	// Letter frequency for the non-matched secret positions (A-Z).
	var counts [26]int

	// First pass: exact matches, and counts for the leftover secret letters.
	for i := 0; i < n; i++ {
		marks[i].Letter = string(guess[i])
		if guess[i] == secret[i] {
			marks[i].Status = StatusCorrect
		} else {
			counts[idx(secret[i])]++
		}
	}

	// Second pass: resolve wrong_position/absent for the unmatched tiles.
	for i := 0; i < n; i++ {
		if marks[i].Status == StatusCorrect {
			continue
		}
		j := idx(guess[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			marks[i].Status = StatusWrongPosition
			counts[j]--
		} else {
			marks[i].Status = StatusAbsent
		}
	}
	return marks, nil
}

// allCorrect returns true if every mark is StatusCorrect.
func allCorrect(marks []LetterMark) bool {
	for _, m := range marks {
		if m.Status != StatusCorrect {
			return false
		}
	}
	return true
}

// idx maps an uppercase ASCII letter byte to 0..25.
// Assumes inputs are validated to A-Z elsewhere.
func idx(b byte) int { return int(b - 'A') }

// isUpperAlpha checks that a string consists only of uppercase A-Z.
func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
