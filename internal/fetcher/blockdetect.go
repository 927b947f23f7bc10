package fetcher

import "strings"

// BlockType describes the kind of anti-bot wall detected in a page.
type BlockType string

const (
	BlockNone      BlockType = ""
	BlockChallenge BlockType = "challenge"
	BlockCaptcha   BlockType = "captcha"
	BlockConsent   BlockType = "consent"
)

// DetectBlock checks a page body for signs of a captcha, a browser challenge
// or a consent wall. Search adapters call it when a results page yields no
// items, so an empty section can be explained.
func DetectBlock(body string) (bool, BlockType) {
	lower := strings.ToLower(body)

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockChallenge
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "unusual traffic from your computer network") ||
		strings.Contains(lower, "/sorry/index") {
		return true, BlockCaptcha
	}

	if strings.Contains(lower, "consent.google.com") ||
		strings.Contains(lower, "consent.youtube.com") ||
		strings.Contains(lower, "before you continue") {
		return true, BlockConsent
	}

	return false, BlockNone
}
