package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/driver"
)

func main() {
	var manifest string

	flag.StringVar(&manifest, "manifest", "", "Test manifest")
	flag.Parse()

	var groups []*testGroup
	tester := &testRunner{}

	if len(manifest) > 0 {
		groups = readTestManifest(manifest)
		tester.baseDir = filepath.Dir(manifest)
	} else {
		groups = createTestGroups(flag.Args())
	}

	tester.total = countTests(groups)
	tester.runTestGroups(groups)
	fmt.Printf("\n%d/%d test(s) %s (%d %s, %d %s, and %d %s)\n",
		tester.success, tester.total, statusSuccess,
		tester.fail, statusFail,
		tester.invalid, statusInvalid,
		tester.skip, statusSkip,
	)

	if tester.fail > 0 || tester.invalid > 0 {
		os.Exit(1)
	}
}

type testRunner struct {
	baseDir string

	// stats
	total   int
	success int
	skip    int
	fail    int
	invalid int
}

type testGroup struct {
	Disable bool
	Dir     string
	Tests   []string
}

type testResult struct {
	status status
	reason []string
}

func (r *testResult) addReason(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.reason = append(r.reason, msg)
}

type status int

const (
	statusSuccess status = iota
	statusFail
	statusSkip
	statusInvalid
)

func (t status) String() string {
	switch t {
	case statusSuccess:
		return common.BoldGreen("passed")
	case statusFail:
		return common.BoldRed("failed")
	case statusSkip:
		return common.Yellow("disabled")
	case statusInvalid:
		return common.BoldRed("invalid")
	default:
		return "-"
	}
}

func abort(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func readTestManifest(manifest string) []*testGroup {
	bytes, err := os.ReadFile(manifest)
	if err != nil {
		abort(err)
	}
	var groups []*testGroup
	err = json.Unmarshal(bytes, &groups)
	if err != nil {
		abort(err)
	}
	return groups
}

func createTestGroups(testFiles []string) []*testGroup {
	var groups []*testGroup
	for _, testFile := range testFiles {
		groups = append(groups, &testGroup{Tests: []string{testFile}})
	}
	return groups
}

func countTests(groups []*testGroup) int {
	count := 0
	for _, group := range groups {
		count += len(group.Tests)
	}
	return count
}

func toTestName(testDir string, testFile string) string {
	ext := filepath.Ext(testFile)
	baseName := filepath.Base(testFile)
	baseName = baseName[:len(baseName)-len(ext)]
	return filepath.Join(testDir, baseName)
}

func toTestLine(name string, index int, count int) string {
	countStr := fmt.Sprintf("%d", count)
	indexStr := fmt.Sprintf("%d", index)
	return fmt.Sprintf("%s%s/%s %s", strings.Repeat(" ", len(countStr)-len(indexStr)), indexStr, countStr, name)
}

func (t *testRunner) runTestGroups(groups []*testGroup) {
	testIndex := 1
	for groupIndex, group := range groups {
		status := statusSuccess
		if group.Disable {
			status = statusSkip
		} else if len(group.Tests) == 0 {
			status = statusInvalid
		}

		if status != statusSuccess {
			if len(group.Tests) > 0 {
				for _, testFile := range group.Tests {
					line := toTestLine(toTestName(group.Dir, testFile), testIndex, t.total)
					fmt.Printf("test %s ... %s\n", line, status)
					t.updateStats(status)
					testIndex++
				}
			} else {
				line := toTestLine(group.Dir, groupIndex, len(groups))
				fmt.Printf("group %s ... %s\n", line, status)
				t.updateStats(status)
			}
			continue
		}

		for _, testFile := range group.Tests {
			line := toTestLine(toTestName(group.Dir, testFile), testIndex, t.total)
			fmt.Printf("test %s ... ", line)

			result := t.runTest(filepath.Join(t.baseDir, group.Dir, testFile))
			t.updateStats(result.status)
			testIndex++

			fmt.Printf("%s\n", result.status)
			for _, txt := range result.reason {
				fmt.Printf("  >> %s\n", txt)
			}
		}
	}
}

func (t *testRunner) updateStats(res status) {
	switch res {
	case statusSuccess:
		t.success++
	case statusFail:
		t.fail++
	case statusSkip:
		t.skip++
	case statusInvalid:
		t.invalid++
	}
}

func (t *testRunner) runTest(filename string) *testResult {
	result := &testResult{status: statusSuccess}

	src, err := os.ReadFile(filename)
	if err != nil {
		result.status = statusInvalid
		result.addReason("%s", err)
		return result
	}

	exps, err := driver.ParseExpectations(src)
	if err != nil {
		result.status = statusInvalid
		result.addReason("%s: %s", filename, err)
		return result
	}

	config := common.NewBuildConfig()
	config.Run = false
	config.Entry = ""
	for _, exp := range exps {
		if !exp.Error {
			config.Run = true
			config.Entry = common.DefaultEntry
		}
	}

	res, err := driver.Compile(filename, src, config)
	for _, reason := range driver.Verify(exps, res, err) {
		result.addReason("%s", reason)
	}

	if len(result.reason) > 0 {
		result.status = statusFail
	}
	return result
}
