package splitter

import (
	"strings"
)

// Splitter divides text into overlapping chunks. It tries to break on
// paragraph boundaries first, then lines, then words, and only cuts
// mid-word when a single word exceeds the chunk size.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}

	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// Split returns the chunks of text. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	rest := []string{}

	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var splits []string

	if sep == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, sep)
	}

	var chunks []string
	var short []string

	for _, sp := range splits {
		if sp == "" {
			continue
		}

		if runeLen(sp) < s.chunkSize {
			short = append(short, sp)
			continue
		}

		if len(short) > 0 {
			chunks = append(chunks, s.merge(short, sep)...)
			short = nil
		}

		if len(rest) == 0 {
			chunks = append(chunks, sp)
		} else {
			chunks = append(chunks, s.split(sp, rest)...)
		}
	}

	if len(short) > 0 {
		chunks = append(chunks, s.merge(short, sep)...)
	}

	return chunks
}

// merge joins short splits back together into chunks of up to chunkSize
// runes, carrying chunkOverlap runes over into the next chunk.
func (s *Splitter) merge(splits []string, sep string) []string {
	sepLen := runeLen(sep)

	var chunks []string
	var current []string

	total := 0

	for _, d := range splits {
		l := runeLen(d)

		if len(current) > 0 && total+sepLen+l > s.chunkSize {
			if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}

			for len(current) > 0 && (total > s.chunkOverlap || total+sepLen+l > s.chunkSize) {
				total -= runeLen(current[0])

				if len(current) > 1 {
					total -= sepLen
				}

				current = current[1:]
			}
		}

		if len(current) > 0 {
			total += sepLen
		}

		current = append(current, d)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}
