// Package repolist reads the list of repositories to rank.
package repolist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sinclairtarget/coderank/internal/git"
)

// A repository branch named by the list.
type Entry struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
}

func (e Entry) String() string {
	return e.URL + " " + e.Branch
}

func (e Entry) Ref(cacheDir string) git.RepositoryRef {
	return git.NewRepositoryRef(cacheDir, e.URL, e.Branch)
}

// Matches list items such as "* url", "1. url branch" or plain "url".
var lineRegexp = regexp.MustCompile(`^[\s*.0-9]*(\S+)(?:\s+(\S+))?`)

// Parses the markdown list format, one repository per line. Lines starting
// with "#" are headings and skipped.
func Parse(r io.Reader) (_ []Entry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("failed to parse repository list: %w", err)
		}
	}()

	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}

		m := lineRegexp.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		entries = append(entries, Entry{URL: m[1], Branch: m[2]})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return normalize(entries), nil
}

type yamlList struct {
	Repositories []Entry `yaml:"repositories"`
}

// Parses a YAML document of the form:
//
//	repositories:
//	  - url: https://github.com/a/b.git
//	    branch: main
func ParseYAML(r io.Reader) ([]Entry, error) {
	var list yamlList

	err := yaml.NewDecoder(r).Decode(&list)
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to parse YAML repository list: %w", err)
	}

	entries := make([]Entry, 0, len(list.Repositories))
	for _, e := range list.Repositories {
		if e.URL == "" {
			continue
		}
		entries = append(entries, e)
	}

	return normalize(entries), nil
}

// Reads the list at path, choosing the parser by extension. A missing file is
// an empty list.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logger().Debug("repository list missing", "path", path)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not open repository list: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return Parse(f)
	}
}

// Fills in default branches and drops repeated entries, keeping the first.
func normalize(entries []Entry) []Entry {
	seen := map[Entry]bool{}
	unique := []Entry{}

	for _, e := range entries {
		if e.Branch == "" {
			e.Branch = git.DefaultBranch
		}

		if seen[e] {
			continue
		}

		seen[e] = true
		unique = append(unique, e)
	}

	return unique
}
