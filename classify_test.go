package flarebypass

import (
	"fmt"
	"testing"
)

func protectionPage(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", title, body)
}

func TestClassifyPassThrough(t *testing.T) {
	challengeBody := protectionPage("Just a moment...", "Checking your browser")

	tests := []struct {
		name        string
		statusCode  int
		contentType string
		body        string
	}{
		{"status 200 with challenge markup", 200, "text/html; charset=utf-8", challengeBody},
		{"status 503", 503, "text/html", challengeBody},
		{"json content type", 403, "application/json", `{"error":"forbidden"}`},
		{"empty body", 403, "text/html", ""},
		{"status 404", 404, "text/html", challengeBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.statusCode, tt.contentType, tt.body); got != ClassOK {
				t.Errorf("Classify() = %v, want %v", got, ClassOK)
			}
		})
	}
}

func TestClassifyHardBlock(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"access denied title",
			protectionPage("Access Denied | www.example.com | Cloudflare", "Access denied: this website is using a security service."),
		},
		{
			"access denied mixed case",
			protectionPage("ACCESS DENIED | Used Cloudflare To Restrict Access", "access denied"),
		},
		{
			"ip banned title",
			protectionPage("IP Banned", "Your IP has been banned. Protected by Cloudflare."),
		},
		{
			"whitespace tolerant title tag",
			"<html>< title >Access Denied | site.com | Cloudflare< / title >access denied</html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(403, "text/html", tt.body); got != ClassHardBlock {
				t.Errorf("Classify() = %v, want %v", got, ClassHardBlock)
			}
		})
	}
}

func TestClassifyChallenge(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{"cloudflare interstitial", "Just a moment..."},
		{"cloudflare attention page", "Attention Required! | Cloudflare"},
		{"captcha interstitial", "Captcha Challenge"},
		{"ddos-guard interstitial", "DDoS-Guard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := protectionPage(tt.title, "Verifying you are human.")
			if got := Classify(403, "text/html; charset=utf-8", body); got != ClassChallenge {
				t.Errorf("Classify() = %v, want %v", got, ClassChallenge)
			}
		})
	}
}

func TestClassifyUnrelated403(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain forbidden page", protectionPage("Forbidden", "You may not view this directory listing.")},
		{"marker phrase outside title", protectionPage("Error", "please wait, just a moment... while we deny you")},
		{"ip banned body without cloudflare", protectionPage("IP Banned", "banned by our own firewall")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(403, "text/html", tt.body); got != ClassUnrelated403 {
				t.Errorf("Classify() = %v, want %v", got, ClassUnrelated403)
			}
		})
	}
}
