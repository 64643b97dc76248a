// Package blockcache splits a document into content-addressed blocks
// and caches each block's rendered output, so re-rendering a mostly
// unchanged document only pays for the blocks that actually changed.
package blockcache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Block is a contiguous line range of the document. Its ID derives
// from the text alone, so identical content reproduces the same cache
// key regardless of where it sits in the document.
type Block struct {
	StartLine int // 0-based, inclusive
	EndLine   int // 0-based, inclusive
	Text      string
	ID        string
}

// BlockID hashes block text into a stable cache key
func BlockID(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Split partitions a document into blocks. Headings start a new
// block; blank lines end one; fenced code is never split. Blank lines
// attach to the block they follow, so the blocks cover every line.
func Split(doc string) []Block {
	if doc == "" {
		return nil
	}

	lines := strings.Split(doc, "\n")
	var blocks []Block
	var cur []string
	curStart := 0
	inFence := false
	pendingBreak := false

	flush := func(nextStart int) {
		if len(cur) == 0 {
			return
		}
		text := strings.Join(cur, "\n")
		blocks = append(blocks, Block{
			StartLine: curStart,
			EndLine:   curStart + len(cur) - 1,
			Text:      text,
			ID:        BlockID(text),
		})
		cur = nil
		curStart = nextStart
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		isFenceMarker := strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
		isHeading := !inFence && strings.HasPrefix(trimmed, "#")
		isBlank := trimmed == ""

		if !inFence && !isBlank && (isHeading || pendingBreak) {
			flush(i)
		}
		pendingBreak = false

		cur = append(cur, line)
		if len(cur) == 1 {
			curStart = i
		}

		if isFenceMarker {
			inFence = !inFence
		}
		if isBlank && !inFence {
			pendingBreak = true
		}
	}
	flush(len(lines))

	return blocks
}

// BlockAt returns the index of the block containing the given line,
// or the last block for lines past the end. Returns -1 when there are
// no blocks.
func BlockAt(blocks []Block, line int) int {
	for i, b := range blocks {
		if line >= b.StartLine && line <= b.EndLine {
			return i
		}
	}
	if len(blocks) == 0 {
		return -1
	}
	return len(blocks) - 1
}
