package assets

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// VocabLoader parses tiktoken rank files, one "base64-token rank" pair
// per line. It implements tiktoken.BpeLoader, so the vocabulary fetched
// into the model repository can back an encoder via
// tiktoken.SetBpeLoader instead of the library's download cache.
type VocabLoader struct{}

var _ tiktoken.BpeLoader = VocabLoader{}

// LoadTiktokenBpe reads the rank file at path.
func (VocabLoader) LoadTiktokenBpe(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ranks := make(map[string]int)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		tok, rankStr, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("%s:%d: malformed rank line", path, line)
		}
		raw, err := base64.StdEncoding.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: token: %w", path, line, err)
		}
		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: rank: %w", path, line, err)
		}
		ranks[string(raw)] = rank
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ranks, nil
}

// VerifyVocab checks that path parses as a tiktoken rank file whose
// ranks form a dense space starting at zero, and returns the vocabulary
// size. The multilingual vocabulary ships 50257 ranks; the check does
// not pin that number so alternate vocabularies stay usable.
func VerifyVocab(path string) (int, error) {
	var loader tiktoken.BpeLoader = VocabLoader{}
	ranks, err := loader.LoadTiktokenBpe(path)
	if err != nil {
		return 0, err
	}
	if len(ranks) == 0 {
		return 0, fmt.Errorf("%s: empty vocabulary", path)
	}
	seen := make([]bool, len(ranks))
	for tok, r := range ranks {
		if r < 0 || r >= len(ranks) {
			return 0, fmt.Errorf("%s: rank %d for %q outside dense range [0,%d)", path, r, tok, len(ranks))
		}
		if seen[r] {
			return 0, fmt.Errorf("%s: duplicate rank %d", path, r)
		}
		seen[r] = true
	}
	return len(ranks), nil
}
