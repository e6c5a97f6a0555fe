// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.
package i18n

import (
	"strings"
	"testing"
)

func TestInitAndLang(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")

	got := T("prompt.enter_secret", "alice")
	if !strings.Contains(got, "alice") {
		t.Fatalf("formatting argument not applied: %q", got)
	}
	if !strings.Contains(got, "password+OTP") {
		t.Fatalf("unexpected prompt text: %q", got)
	}

	// switch language to German
	SetLang("de")
	if GetLang() != "de" {
		t.Fatalf("expected lang 'de', got %q", GetLang())
	}
	if got := T("run.interrupted"); got != "Abgebrochen." {
		t.Fatalf("expected German translation, got %q", got)
	}
	SetLang("en")
}

func TestT_UnknownIDFallsBack(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("expected message ID fallback, got %q", got)
	}
}

func TestT_UninitializedDefaultsToEnglish(t *testing.T) {
	localizer = nil
	activeLang = ""
	if got := T("run.interrupted"); got != "Interrupted." {
		t.Fatalf("expected English default, got %q", got)
	}
}
