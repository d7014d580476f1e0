package policy

import "testing"

func TestValidate_AllowedTLDs(t *testing.T) {
	for _, domain := range []string{
		"api.test", "app.example", "a.invalid", "svc.myapp.localhost",
		"app.local", "db.internal", "box.lan", "web.home",
		"svc.localdomain", "api.corp", "db.private", "app.docker", "app.dev",
	} {
		if err := Validate(domain, false); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", domain, err)
		}
	}
}

func TestValidate_DisallowedTLD(t *testing.T) {
	for _, domain := range []string{"example.com", "evil.io", "phishing.org"} {
		if err := Validate(domain, false); err == nil {
			t.Errorf("Validate(%q) = nil, want error for public TLD", domain)
		}
	}
}

func TestValidate_AllowAnyTLD(t *testing.T) {
	if err := Validate("example.com", true); err != nil {
		t.Errorf("Validate with allowAnyTLD = %v, want nil", err)
	}
}

func TestValidate_BareLocalhost(t *testing.T) {
	if err := Validate("localhost", false); err == nil {
		t.Fatal("expected error for bare localhost")
	}
	if err := Validate("localhost", true); err == nil {
		t.Fatal("expected error for bare localhost even with allowAnyTLD")
	}
}

func TestValidate_Empty(t *testing.T) {
	if err := Validate("", false); err == nil {
		t.Fatal("expected error for empty domain")
	}
	if err := Validate("   ", false); err == nil {
		t.Fatal("expected error for whitespace-only domain")
	}
}

func TestValidate_ConsecutiveDots(t *testing.T) {
	if err := Validate("api..test", false); err == nil {
		t.Fatal("expected error for consecutive dots")
	}
}

func TestValidate_EmptyLabel(t *testing.T) {
	if err := Validate(".test", false); err == nil {
		t.Fatal("expected error for leading dot")
	}
}

func TestValidate_InvalidCharacters(t *testing.T) {
	for _, domain := range []string{"api_test.test", "api test.test", "api!.test"} {
		if err := Validate(domain, false); err == nil {
			t.Errorf("Validate(%q) = nil, want error", domain)
		}
	}
}

func TestValidate_LeadingTrailingHyphen(t *testing.T) {
	if err := Validate("-api.test", false); err == nil {
		t.Fatal("expected error for leading hyphen")
	}
	if err := Validate("api-.test", false); err == nil {
		t.Fatal("expected error for trailing hyphen")
	}
}

func TestValidate_InteriorHyphenAllowed(t *testing.T) {
	if err := Validate("my-app.test", false); err != nil {
		t.Errorf("Validate(my-app.test) = %v, want nil", err)
	}
}

func TestValidate_CaseInsensitive(t *testing.T) {
	if err := Validate("API.TEST", false); err != nil {
		t.Errorf("Validate(API.TEST) = %v, want nil", err)
	}
}

func TestValidate_TrailingDot(t *testing.T) {
	if err := Validate("api.test.", false); err != nil {
		t.Errorf("Validate with trailing dot = %v, want nil", err)
	}
}
