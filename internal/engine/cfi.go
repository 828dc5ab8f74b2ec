package engine

import (
	"fmt"
	"strconv"
	"strings"

	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// The CFI format is owned by this package. Callers treat CFIs as opaque
// tokens; only the engine and its adapters parse them.
//
// Shape: epubcfi(/6/{2*(spineIndex+1)}!/4/2:{charOffset})
// The spine step follows the EPUB convention of even-numbered element
// indices under the spine node.

// PositionCFI encodes a character position within a spine document.
func PositionCFI(spineIndex, charOffset int) string {
	return fmt.Sprintf("epubcfi(/6/%d!/4/2:%d)", 2*(spineIndex+1), charOffset)
}

// SpineCFI encodes the beginning of a spine document.
func SpineCFI(spineIndex int) string {
	return fmt.Sprintf("epubcfi(/6/%d)", 2*(spineIndex+1))
}

// ParseCFI decodes a CFI produced by this package back into a spine index
// and character offset. Spine-level CFIs decode with offset zero.
func ParseCFI(cfi string) (spineIndex, charOffset int, err error) {
	body, ok := strings.CutPrefix(cfi, "epubcfi(")
	if !ok || !strings.HasSuffix(body, ")") {
		return 0, 0, apperr.InvalidPosition("malformed cfi: " + cfi)
	}
	body = strings.TrimSuffix(body, ")")

	spinePart, rest, hasStep := strings.Cut(body, "!")

	spinePart = strings.TrimPrefix(spinePart, "/6/")
	step, err := strconv.Atoi(spinePart)
	if err != nil || step < 2 || step%2 != 0 {
		return 0, 0, apperr.InvalidPosition("malformed cfi spine step: " + cfi)
	}
	spineIndex = step/2 - 1

	if !hasStep {
		return spineIndex, 0, nil
	}

	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		charOffset, err = strconv.Atoi(rest[idx+1:])
		if err != nil || charOffset < 0 {
			return 0, 0, apperr.InvalidPosition("malformed cfi offset: " + cfi)
		}
	}
	return spineIndex, charOffset, nil
}
