package driver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/derekxu16/dishsoap/internal/common"
)

// Expectation is a test directive in a line comment of a source file.
//
//	// expect: 33
//	// expect-error: type mismatch
//	// expect: <re>[0-9]+</re>
//
// An expect directive is matched against the value returned by the entry
// function and an expect-error directive against the kind of a compile
// error.
type Expectation struct {
	Line  int
	Error bool
	Text  string
	regex *regexp.Regexp
}

func (e *Expectation) matches(actual string) bool {
	if e.regex != nil {
		return e.regex.MatchString(actual)
	}
	return e.Text == actual
}

func (e *Expectation) String() string {
	directive := "expect"
	if e.Error {
		directive = "expect-error"
	}
	return fmt.Sprintf("%d: %s: %s", e.Line, directive, e.Text)
}

var reTag = regexp.MustCompile(`^<re>(.*)</re>$`)

// ParseExpectations returns the directives of src in line order.
func ParseExpectations(src []byte) ([]*Expectation, error) {
	var exps []*Expectation
	scanner := bufio.NewScanner(bytes.NewReader(src))
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		idx := strings.Index(text, "//")
		if idx < 0 {
			continue
		}
		lit := strings.TrimSpace(text[idx+2:])
		if !match(&lit, "expect") {
			continue
		}

		exp := &Expectation{Line: line}
		if match(&lit, "-error") {
			exp.Error = true
		}
		if !match(&lit, ":") {
			return nil, fmt.Errorf("%d: bad test directive", line)
		}
		exp.Text = strings.TrimSpace(lit)
		if m := reTag.FindStringSubmatch(exp.Text); m != nil {
			regex, err := regexp.Compile(strings.TrimSpace(m[1]))
			if err != nil {
				return nil, fmt.Errorf("%d: bad regex: %s", line, err)
			}
			exp.regex = regex
		}
		exps = append(exps, exp)
	}
	return exps, scanner.Err()
}

func match(lit *string, prefix string) bool {
	if strings.HasPrefix(*lit, prefix) {
		*lit = (*lit)[len(prefix):]
		return true
	}
	return false
}

// Verify compares the outcome of a compilation with exps and returns the
// reasons it does not match, if any.
func Verify(exps []*Expectation, res *Result, err error) []string {
	var expectedErrors, expectedValues []*Expectation
	for _, exp := range exps {
		if exp.Error {
			expectedErrors = append(expectedErrors, exp)
		} else {
			expectedValues = append(expectedValues, exp)
		}
	}

	var actualErrors, actualValues []string
	if err != nil {
		actualErrors = errorKinds(err)
	} else if res != nil && res.Value != nil {
		actualValues = append(actualValues, res.FormatValue())
	}

	var reasons []string
	reasons = append(reasons, compareOutput(expectedErrors, actualErrors, err)...)
	reasons = append(reasons, compareOutput(expectedValues, actualValues, nil)...)
	return reasons
}

func errorKinds(err error) []string {
	var list *common.ErrorList
	if errors.As(err, &list) {
		var kinds []string
		for _, e := range list.Errors {
			kinds = append(kinds, e.Kind.String())
		}
		return kinds
	}
	if kind, ok := common.KindOf(err); ok {
		return []string{kind.String()}
	}
	return []string{err.Error()}
}

func compareOutput(expected []*Expectation, actual []string, cause error) []string {
	var reasons []string
	n := len(expected)
	if len(actual) < n {
		n = len(actual)
	}
	for i := 0; i < n; i++ {
		if !expected[i].matches(actual[i]) {
			reasons = append(reasons, fmt.Sprintf("%s(%d): '%s', %s: '%s'",
				common.BoldGreen("expected"), expected[i].Line, expected[i].Text, common.BoldRed("got"), actual[i]))
		}
	}
	for _, exp := range expected[n:] {
		reasons = append(reasons, fmt.Sprintf("%s(%d): '%s', got nothing", common.BoldGreen("expected"), exp.Line, exp.Text))
	}
	for _, act := range actual[n:] {
		if cause != nil {
			act = cause.Error()
		}
		reasons = append(reasons, fmt.Sprintf("%s: '%s'", common.BoldRed("unexpected"), act))
	}
	return reasons
}
