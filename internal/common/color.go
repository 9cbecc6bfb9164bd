package common

import (
	"fmt"
	"os"
)

// ANSI color escape sequences.
var (
	BoldText   = ""
	RedText    = ""
	GreenText  = ""
	YellowText = ""
	GrayText   = ""
	ResetText  = ""
)

func init() {
	// http://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return
	}

	BoldText = "\x1B[01m"
	RedText = "\x1B[31m"
	GreenText = "\x1B[32m"
	YellowText = "\x1B[33m"
	GrayText = "\x1B[90m"
	ResetText = "\x1B[0m"
}

func BoldRed(s string) string {
	return fmt.Sprintf("%s%s%s%s", BoldText, RedText, s, ResetText)
}

func BoldGreen(s string) string {
	return fmt.Sprintf("%s%s%s%s", BoldText, GreenText, s, ResetText)
}

func Yellow(s string) string {
	return fmt.Sprintf("%s%s%s", YellowText, s, ResetText)
}

func Gray(s string) string {
	return fmt.Sprintf("%s%s%s", GrayText, s, ResetText)
}

// FormatError renders err with a colored "error" label.
func FormatError(err error) string {
	return fmt.Sprintf("%s: %s", BoldRed("error"), err)
}
