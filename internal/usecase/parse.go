package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"webdriver-bridge/internal/element"

	"github.com/google/shlex"
)

var ErrEmptyLine = errors.New("script line is empty")

// Locator prefixes accepted in script arguments.
const (
	prefixCSS      = "css="
	prefixXPath    = "xpath="
	prefixLinkText = "link="
)

// ParseLine splits a script line into a command name and its arguments.
// Fields follow shell quoting: single quotes keep their content verbatim and
// double quotes accept backslash escapes. Locator prefixes become element
// locators and numeric fields become numbers.
func ParseLine(line string) (string, []any, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("parse script line: %w", err)
	}

	if len(fields) == 0 {
		return "", nil, ErrEmptyLine
	}

	args := make([]any, 0, len(fields)-1)
	for _, field := range fields[1:] {
		args = append(args, parseArg(field))
	}

	return fields[0], args, nil
}

func parseArg(field string) any {
	switch {
	case strings.HasPrefix(field, prefixCSS):
		return element.CSS(strings.TrimPrefix(field, prefixCSS))
	case strings.HasPrefix(field, prefixXPath):
		return element.XPath(strings.TrimPrefix(field, prefixXPath))
	case strings.HasPrefix(field, prefixLinkText):
		return element.LinkText(strings.TrimPrefix(field, prefixLinkText))
	}

	if n, err := strconv.Atoi(field); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}

	return field
}
