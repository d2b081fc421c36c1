package email

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"riverway/internal/config"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.Config
		wantEnabled bool
	}{
		{
			name: "enabled when host and sender configured",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
				SMTPFrom: "noreply@example.com",
			},
			wantEnabled: true,
		},
		{
			name: "disabled when SMTPHost is empty",
			cfg: &config.Config{
				SMTPPort: 587,
				SMTPFrom: "noreply@example.com",
			},
			wantEnabled: false,
		},
		{
			name: "disabled when SMTPFrom is empty",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
			},
			wantEnabled: false,
		},
		{
			name:        "disabled with empty config",
			cfg:         &config.Config{},
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.cfg, zaptest.NewLogger(t))
			if svc.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", svc.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestService_Send_Disabled(t *testing.T) {
	svc := NewService(&config.Config{}, nil)

	if err := svc.Send([]string{"test@example.com"}, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("Send() with email disabled returned error: %v", err)
	}
}

func TestService_Send_NoRecipients(t *testing.T) {
	svc := NewService(&config.Config{SMTPHost: "smtp.invalid", SMTPFrom: "bot@example.com"}, nil)

	if err := svc.Send(nil, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("Send() without recipients returned error: %v", err)
	}
}

func TestService_BuildMessage(t *testing.T) {
	svc := NewService(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPFrom:     "bot@riverway.example",
		SMTPFromName: "Riverway Company",
	}, nil)

	msg := svc.buildMessage([]string{"a@example.com", "b@example.com"}, "Hello", "<p>hi</p>", "hi")

	checks := []string{
		"From: Riverway Company <bot@riverway.example>\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Hello\r\n",
		"MIME-Version: 1.0\r\n",
		"multipart/alternative; boundary=\"" + mimeBoundary + "\"",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\nhi\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n<p>hi</p>\r\n",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("message missing %q", check)
		}
	}
	if !strings.HasSuffix(msg, "--"+mimeBoundary+"--\r\n") {
		t.Error("message does not end with the closing boundary")
	}
}

func TestService_BuildMessage_TextOnly(t *testing.T) {
	svc := NewService(&config.Config{SMTPFrom: "bot@riverway.example"}, nil)

	msg := svc.buildMessage([]string{"a@example.com"}, "Hello", "", "plain only")

	if !strings.Contains(msg, "From: bot@riverway.example\r\n") {
		t.Error("expected bare From address without a display name")
	}
	if strings.Contains(msg, "text/html") {
		t.Error("text-only message should not include an HTML part")
	}
}
