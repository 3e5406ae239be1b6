package analytics

import (
	"context"
	"strings"
	"unicode"
)

const (
	labelHome         = "Home"
	labelAllStandards = "All Standards"

	pagePrefixStandard = "/standard/"
	pagePrefixSubject  = "/subject/"
	pagePrefixChapter  = "/chapter/"

	parentNameSeparator = " > "
)

// pageLabel is the human-readable form of a normalized page path.
type pageLabel struct {
	DisplayName string
	ParentName  string
}

// resolvePageLabel translates a normalized path into a display label using
// the content directory. Lookup misses and errors fall back to a readable
// generic label so a stale path never breaks the overview.
func (engine *Engine) resolvePageLabel(ctx context.Context, page string) pageLabel {
	switch {
	case page == "/":
		return pageLabel{DisplayName: labelHome}
	case page == "/standards":
		return pageLabel{DisplayName: labelAllStandards}
	case strings.HasPrefix(page, pagePrefixStandard):
		id := strings.TrimPrefix(page, pagePrefixStandard)
		if standard, found, err := engine.directory.LookupStandard(ctx, id); err == nil && found {
			return pageLabel{DisplayName: standard.Name}
		}
		return pageLabel{DisplayName: "Standard " + id}
	case strings.HasPrefix(page, pagePrefixSubject):
		id := strings.TrimPrefix(page, pagePrefixSubject)
		if subject, found, err := engine.directory.LookupSubject(ctx, id); err == nil && found {
			return pageLabel{DisplayName: subject.Name, ParentName: subject.StandardName}
		}
		return pageLabel{DisplayName: "Subject " + id}
	case strings.HasPrefix(page, pagePrefixChapter):
		id := strings.TrimPrefix(page, pagePrefixChapter)
		if chapter, found, err := engine.directory.LookupChapter(ctx, id); err == nil && found {
			return pageLabel{
				DisplayName: chapter.Name,
				ParentName:  chapter.StandardName + parentNameSeparator + chapter.SubjectName,
			}
		}
		return pageLabel{DisplayName: "Chapter " + id}
	default:
		return pageLabel{DisplayName: fallbackPageLabel(page)}
	}
}

// fallbackPageLabel builds a readable label from the path segments of pages
// outside the content hierarchy.
func fallbackPageLabel(page string) string {
	var segments []string
	for _, segment := range strings.Split(page, "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, titleCaseSegment(segment))
	}
	if len(segments) == 0 {
		return labelHome
	}
	return strings.Join(segments, parentNameSeparator)
}

func titleCaseSegment(segment string) string {
	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for wordIndex, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[wordIndex] = string(runes)
	}
	return strings.Join(words, " ")
}
