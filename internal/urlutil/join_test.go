package urlutil

import (
	"testing"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		segments []string
		want     string
		wantErr  bool
	}{
		{
			name:     "bare host",
			base:     "http://localhost:6100",
			segments: []string{"authenticate-slack", "callback"},
			want:     "http://localhost:6100/authenticate-slack/callback",
		},
		{
			name:     "base already has a path",
			base:     "https://connectd.example.com/hosted",
			segments: []string{"authenticate-github"},
			want:     "https://connectd.example.com/hosted/authenticate-github",
		},
		{
			name:     "base with trailing slash",
			base:     "https://connectd.example.com/",
			segments: []string{"providers"},
			want:     "https://connectd.example.com/providers",
		},
		{
			name:     "trailing slash on last segment kept",
			base:     "https://connectd.example.com",
			segments: []string{"internal", "token/"},
			want:     "https://connectd.example.com/internal/token/",
		},
		{
			name:     "no segments",
			base:     "https://connectd.example.com",
			segments: []string{},
			want:     "https://connectd.example.com",
		},
		{
			name:     "unparseable base",
			base:     "://bad",
			segments: []string{"x"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.segments...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("JoinPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("JoinPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustJoinPath(t *testing.T) {
	got := MustJoinPath("http://localhost:6100", "health")
	if got != "http://localhost:6100/health" {
		t.Errorf("MustJoinPath() = %v, want %v", got, "http://localhost:6100/health")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("MustJoinPath() did not panic on an unparseable base")
		}
	}()
	MustJoinPath("://bad", "health")
}
