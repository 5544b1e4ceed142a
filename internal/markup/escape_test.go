package markup

import "testing"

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`<a href="x">Tom & 'Jerry'</a>`, "&lt;a href=&quot;x&quot;&gt;Tom &amp; &apos;Jerry&apos;&lt;/a&gt;"},
		{"bell\x07tab\tnl\n", "belltab\tnl\n"},
		{"&amp;", "&amp;amp;"},
		{"a\uFFFEb\uFFFFc\uFFFDd", "abc\uFFFDd"},
	}
	for _, tt := range tests {
		if got := EscapeXML(tt.in); got != tt.want {
			t.Errorf("EscapeXML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFixXML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a & b", "a &amp; b"},
		{"&amp; &lt; &#39; &#x3042;", "&amp; &lt; &#39; &#x3042;"},
		{"AT&T", "AT&amp;T"},
		{"&#x;", "&amp;#x;"},
		{"&&amp;", "&amp;&amp;"},
		{"trailing &", "trailing &amp;"},
	}
	for _, tt := range tests {
		if got := FixXML(tt.in); got != tt.want {
			t.Errorf("FixXML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFixXML_Idempotent(t *testing.T) {
	in := "x & y &amp; z"
	once := FixXML(in)
	if twice := FixXML(once); twice != once {
		t.Errorf("FixXML not idempotent: %q -> %q", once, twice)
	}
}

func TestEscapeFragment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a<b", "a&lt;b"},
		{"Tom & Jerry", "Tom &amp; Jerry"},
		{"already &amp; escaped &lt;", "already &amp; escaped &lt;"},
		{`"q"`, "&quot;q&quot;"},
	}
	for _, tt := range tests {
		if got := EscapeFragment(tt.in); got != tt.want {
			t.Errorf("EscapeFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	escaped := EscapeXML(`<x> & "y"`)
	if got := EscapeFragment(escaped); got != escaped {
		t.Errorf("EscapeFragment should leave escaped text alone: %q -> %q", escaped, got)
	}
}
