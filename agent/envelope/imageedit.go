package envelope

import (
	"fmt"
	"regexp"
	"strings"
)

// ImageEditPrefix starts every image edit submission.
const ImageEditPrefix = "Edit this image:"

var imageEditPattern = regexp.MustCompile(`(?is)^\s*Edit this image:\s*(\S+)\s+with this prompt:\s*(.+?)\s*$`)

// ComposeImageEdit builds the message a client submits to edit an image.
func ComposeImageEdit(imageURL, instruction string) string {
	return fmt.Sprintf("%s %s with this prompt: %s", ImageEditPrefix, strings.TrimSpace(imageURL), strings.TrimSpace(instruction))
}

// ParseImageEdit splits a submission into source URL and instruction.
func ParseImageEdit(message string) (string, string, bool) {
	m := imageEditPattern.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
