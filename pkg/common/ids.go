package common

import (
	"fmt"

	"github.com/google/uuid"
)

// DeterministicID derives a stable node ID from a label and a canonical
// name using UUIDv5 in the DNS namespace. Identical input always yields
// the identical ID, so re-running the pipeline on the same book produces
// the same graph.
func DeterministicID(label Label, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(string(label)+":"+name)).String()
}

// ChapterID derives the stable ID of a chapter from its book title and
// 1-based index.
func ChapterID(bookTitle string, index int) string {
	return DeterministicID(LabelChapter, fmt.Sprintf("%s/%d", bookTitle, index))
}

// ChunkID derives the stable ID of a chunk from its book title, chapter
// index and chunk index within the chapter.
func ChunkID(bookTitle string, chapterIndex, chunkIndex int) string {
	return DeterministicID(LabelChunk, fmt.Sprintf("%s/%d/%d", bookTitle, chapterIndex, chunkIndex))
}
