package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docbind/internal/doctree"
)

// TextParser handles plain text files. Line breaks inside a paragraph are
// kept so the typesetter can honour them.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := doctree.NewBuilder(titleFromFilename(filename))
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			b.Text(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(strings.ReplaceAll(line, "\t", "    "))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.Text(current.String())

	return b.Tree(), nil
}
