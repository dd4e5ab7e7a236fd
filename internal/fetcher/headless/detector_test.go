package headless

import "testing"

func TestDetectorShouldRender(t *testing.T) {
	t.Parallel()

	d := NewDetector(0)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "empty body triggers", body: "", want: true},
		{name: "spa root marker triggers", body: `<html><div id="root"></div></html>`, want: true},
		{name: "next marker triggers", body: `<html><div id="__next"></div></html>`, want: true},
		{
			name: "small script-heavy body triggers",
			body: `<html><script>var a=1;var b=2;var c=3;</script><p>x</p></html>`,
			want: true,
		},
		{
			name: "plain form markup passes",
			body: `<html><body><form><input type="text"><button>Submit</button></form></body></html>`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.ShouldRender([]byte(tt.body))
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestScriptDensityMalformedScript(t *testing.T) {
	t.Parallel()

	// Unterminated script counts to end of document.
	body := []byte("<script>var x = 1;")
	if !scriptDensityHigh(body) {
		t.Fatal("expected malformed script to count as script-heavy")
	}
}
