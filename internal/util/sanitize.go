package util

import (
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	invalidChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Reserved names on Windows (CON, PRN, AUX, NUL, COM1-9, LPT1-9).
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName removes characters that cannot be used in file or directory
// names on Windows, macOS, or Linux, including the FAT/exFAT filesystems
// typically found on portable players. Use it on individual path components,
// never on full paths.
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}

	safe := controlChars.ReplaceAllString(name, "")
	safe = invalidChars.ReplaceAllString(safe, "-")

	// Windows rejects trailing spaces and dots.
	safe = strings.Trim(safe, " .")

	safe = dashRuns.ReplaceAllString(safe, "-")
	safe = strings.Trim(safe, "-")

	if reservedNames[strings.ToUpper(safe)] {
		safe = safe + "_"
	}
	if safe == "" {
		safe = "untitled"
	}
	return safe
}
