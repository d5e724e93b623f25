package novel

import (
	"regexp"
	"strings"

	"github.com/novelgraph/novelgraph/pkg/common"
)

// InvalidInputError reports source text that cannot be processed at all.
// It is fatal and raised before any chunking happens.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

var (
	gutenbergStartRe = regexp.MustCompile(`\*\*\* START OF THE PROJECT GUTENBERG EBOOK [^*]+\*\*\*`)
	gutenbergEndRe   = regexp.MustCompile(`\*\*\* END OF THE PROJECT GUTENBERG EBOOK [^*]+\*\*\*`)

	// Matches chapter heading markers at the start of a line: the classic
	// roman-numeral form ("CHAPTER XII.") and the arabic form ("Chapter 3").
	chapterHeadingRe = regexp.MustCompile(`(?m)^(CHAPTER\s+[IVXLCDM]+\.?|Chapter\s+\d+\.?)`)
)

// stripGutenberg removes Project Gutenberg boilerplate surrounding the
// actual book text, when the standard markers are present.
func stripGutenberg(text string) string {
	if loc := gutenbergStartRe.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := gutenbergEndRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return text
}

// Chunk splits raw novel text into the Book/Chapter/Chunk hierarchy.
//
// Chapters are detected via heading markers; text before the first
// heading becomes a "Preamble" chapter and text without any headings
// becomes a single "Unknown" chapter. Within each chapter the text is
// split into chunks of at most chunkSize bytes, preferring paragraph,
// then sentence, then word boundaries; words are never split, so a
// single word longer than chunkSize yields one overlong chunk.
//
// Chunk offsets within a chapter are contiguous and non-overlapping:
// concatenating a chapter's chunk texts in index order reconstructs the
// chapter text exactly.
func Chunk(text, author, title string, chunkSize int) (*common.NovelData, error) {
	if chunkSize <= 0 {
		return nil, &InvalidInputError{Reason: "chunk size must be positive"}
	}

	text = strings.TrimSpace(stripGutenberg(text))
	if text == "" {
		return nil, &InvalidInputError{Reason: "text is empty after normalization"}
	}

	type rawChapter struct {
		title string
		text  string
	}

	var raw []rawChapter
	matches := chapterHeadingRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		raw = append(raw, rawChapter{title: "Unknown", text: text})
	} else {
		if before := strings.TrimSpace(text[:matches[0][0]]); before != "" {
			raw = append(raw, rawChapter{title: "Preamble", text: before})
		}
		for i, m := range matches {
			heading := strings.TrimSpace(text[m[2]:m[3]])
			end := len(text)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			content := strings.TrimSpace(text[m[1]:end])
			if content == "" {
				continue
			}
			raw = append(raw, rawChapter{title: heading, text: content})
		}
	}

	if len(raw) == 0 {
		return nil, &InvalidInputError{Reason: "no chapter content found"}
	}

	data := &common.NovelData{
		BookID:   common.DeterministicID(common.LabelBook, title),
		AuthorID: common.DeterministicID(common.LabelAuthor, author),
		Title:    title,
		Author:   author,
	}

	for i, rc := range raw {
		chapterIndex := i + 1
		chapter := common.Chapter{
			ID:     common.ChapterID(title, chapterIndex),
			BookID: data.BookID,
			Index:  chapterIndex,
			Title:  rc.title,
			Text:   rc.text,
		}

		for j, span := range chunkSpans(rc.text, chunkSize) {
			chunkIndex := j + 1
			chapter.Chunks = append(chapter.Chunks, common.Chunk{
				ID:        common.ChunkID(title, chapterIndex, chunkIndex),
				ChapterID: chapter.ID,
				Index:     chunkIndex,
				Start:     span[0],
				End:       span[1],
				Text:      rc.text[span[0]:span[1]],
			})
		}

		data.Chapters = append(data.Chapters, chapter)
	}

	return data, nil
}

// chunkSpans partitions text into contiguous [start, end) spans of at
// most chunkSize bytes each (except for unbreakable overlong words).
func chunkSpans(text string, chunkSize int) [][2]int {
	var spans [][2]int
	start := 0
	for len(text)-start > chunkSize {
		cut := breakPoint(text, start, chunkSize)
		spans = append(spans, [2]int{start, cut})
		start = cut
	}
	if start < len(text) {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

// breakPoint picks where the chunk starting at start should end, looking
// for the best boundary within the size budget: the last paragraph
// break, else the last sentence end, else the last word boundary. When
// the budget falls inside a single unbreakable word, the cut is pushed
// past the word instead of splitting it.
func breakPoint(text string, start, chunkSize int) int {
	window := text[start : start+chunkSize]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return start + idx + 2
	}

	for i := len(window) - 1; i >= 1; i-- {
		if isSpaceByte(window[i]) && isSentenceEnd(window[i-1]) {
			return start + i + 1
		}
	}

	for i := len(window) - 1; i >= 1; i-- {
		if isSpaceByte(window[i]) {
			return start + i + 1
		}
	}

	cut := start + chunkSize
	for cut < len(text) && !isSpaceByte(text[cut]) {
		cut++
	}
	return cut
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
