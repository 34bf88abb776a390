package utils

import "github.com/microcosm-cc/bluemonday"

// User-generated content policy: common formatting tags survive, scripts
// and event handlers do not. Applied to post, comment and category input
// before it reaches storage.
var ugcPolicy = bluemonday.UGCPolicy()

// Sanitize strips unsafe HTML from user input.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}
