package library

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	directorPattern   = regexp.MustCompile(`\(([^\(]+)\) *$`)
	episodePattern    = regexp.MustCompile(`^((\d+)\. |S(\d+)E(\d+) (?:- )?)`)
	yearPattern       = regexp.MustCompile(`^\d{4}$`)
	folderNamePattern = regexp.MustCompile(`^([^\(]+)( \((.+)\))?$`)
	subtitleLangTail  = regexp.MustCompile(`\.([a-z]{2,3})$`)
)

// FilenameFields are the display fields encoded in a media basename.
type FilenameFields struct {
	Stem     string
	Ext      string
	Title    string
	Counter  int
	Season   int
	Episode  int
	Director string
	Year     int
}

// ParseFilename extracts display fields from names like
// "3. Title (Director, 2001).mp4" or "S02E05 - Title.mkv". It never fails.
func ParseFilename(basename string) FilenameFields {
	ext := filepath.Ext(basename)
	stem := strings.TrimSuffix(basename, ext)
	fields := FilenameFields{Stem: stem, Ext: strings.ToLower(ext)}

	remainder := stem
	if loc := directorPattern.FindStringSubmatchIndex(remainder); loc != nil {
		inner := remainder[loc[2]:loc[3]]
		remainder = strings.TrimSpace(remainder[:loc[0]] + remainder[loc[1]:])
		elements := strings.Split(inner, ", ")
		for i, element := range elements {
			if yearPattern.MatchString(element) {
				fields.Year, _ = strconv.Atoi(element)
				elements = append(elements[:i], elements[i+1:]...)
				break
			}
		}
		kept := elements[:0]
		for _, element := range elements {
			if element != "" {
				kept = append(kept, element)
			}
		}
		fields.Director = strings.Join(kept, ", ")
	}

	if m := episodePattern.FindStringSubmatch(remainder); m != nil {
		remainder = strings.TrimSpace(strings.TrimPrefix(remainder, m[1]))
		if m[2] != "" {
			fields.Counter, _ = strconv.Atoi(m[2])
		} else {
			fields.Season, _ = strconv.Atoi(m[3])
			fields.Episode, _ = strconv.Atoi(m[4])
		}
	}

	fields.Title = remainder
	if fields.Title == "" {
		fields.Title = stem
	}
	return fields
}

// ParseFolderName splits "Title (a, b)" into a title and its subtitle parts.
func ParseFolderName(basename string) (string, []string) {
	m := folderNamePattern.FindStringSubmatch(basename)
	if m == nil {
		return basename, nil
	}
	var subtitles []string
	if m[3] != "" {
		for _, part := range strings.Split(m[3], ",") {
			if part = strings.TrimSpace(part); part != "" {
				subtitles = append(subtitles, part)
			}
		}
	}
	return m[1], subtitles
}

// splitSubtitleStem strips a trailing language code from a sidecar stem:
// "Movie.en" yields ("Movie", "en").
func splitSubtitleStem(stem string) (string, string) {
	m := subtitleLangTail.FindStringSubmatchIndex(stem)
	if m == nil {
		return stem, ""
	}
	return stem[:m[0]], stem[m[2]:m[3]]
}
