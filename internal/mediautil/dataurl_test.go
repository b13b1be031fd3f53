package mediautil

import "testing"

func TestSplitDataURL(t *testing.T) {
	mime, payload := SplitDataURL("data:image/png;base64,AAAA")
	if mime != "image/png" || payload != "AAAA" {
		t.Errorf("got (%q, %q)", mime, payload)
	}

	// Bare base64 passes through untouched.
	mime, payload = SplitDataURL("AAAA")
	if mime != "" || payload != "AAAA" {
		t.Errorf("got (%q, %q)", mime, payload)
	}
}

func TestParseVideoMIME(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"standard mp4", "data:video/mp4;base64,AAAA", "video/mp4", false},
		{"webm", "data:video/webm;base64,AAAA", "video/webm", false},
		{"safari codecs param", `data:video/mp4; codecs="hvc1";base64,AAAA`, "video/mp4", false},
		{"quicktime", "data:video/quicktime;base64,AAAA", "video/quicktime", false},
		{"not a video", "data:image/png;base64,AAAA", "", true},
		{"no marker", "just some text", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoMIME(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
