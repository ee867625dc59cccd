package moderation

import (
	"bufio"
	"bytes"
	"io/fs"
	"path"
	"slices"
	"strings"
	"treasure-hunt/errors"
)

// WordList is the result of loading censored word files.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadWords reads every .txt file of dir in fsys, one word per line.
// The file name is the language tag ("fr.txt" -> "fr").
func LoadWords(fsys fs.FS, dir string) (WordList, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return WordList{}, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return WordList{}, err
		}
		// Scanner copes with both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return WordList{}, err
		}
	}

	if len(unique) == 0 {
		return WordList{}, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	slices.Sort(words)
	return WordList{Words: words, Languages: languages}, nil
}
