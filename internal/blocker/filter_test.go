package blocker

import (
	"strings"
	"testing"
)

const sampleList = `[Adblock Plus 2.0]
! Title: sample
||ads.example.com^
||tracker.test^$third-party
/banner/*/img^
|https://cdn.test/ad.js|
@@||ads.example.com/allowed/
example.org##.sidebar-ad
/[a-z]+\.gif/
||pixel.test^$image
||evil.test^$csp=script-src 'none'
||widgets.test^$domain=news.test|~blog.news.test
||important.test^$important
@@||important.test^
`

func compile(t *testing.T, list string) *RuleSet {
	t.Helper()
	rs, err := Compile(ParseList([]byte(list)))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return rs
}

func TestParseListSkipsUnsupported(t *testing.T) {
	rules := ParseList([]byte(sampleList))
	// header, comment, cosmetic and csp rules are dropped
	if got, want := len(rules), 10; got != want {
		t.Fatalf("len(rules) = %d; want %d: %q", got, want, rules)
	}
	for _, r := range rules {
		if strings.Contains(r, "##") || strings.Contains(r, "$csp") {
			t.Fatalf("ParseList() kept %q", r)
		}
	}
}

func TestShouldBlock(t *testing.T) {
	rs := compile(t, sampleList)
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"host rule", Request{URL: "https://ads.example.com/x.js", Type: TypeScript}, true},
		{"subdomain of host rule", Request{URL: "https://a.ads.example.com/x", Type: TypeImage}, true},
		{"lookalike host", Request{URL: "https://badads.example.com/x", Type: TypeImage}, false},
		{"exception", Request{URL: "https://ads.example.com/allowed/x.js", Type: TypeScript}, false},
		{"third party", Request{URL: "https://tracker.test/p", SourceHost: "news.test", Type: TypeXHR}, true},
		{"first party", Request{URL: "https://tracker.test/p", SourceHost: "www.tracker.test", Type: TypeXHR}, false},
		{"wildcard and separator", Request{URL: "https://site.test/banner/300x250/img?x=1", Type: TypeImage}, true},
		{"separator mismatch", Request{URL: "https://site.test/banner/300x250/imgs", Type: TypeImage}, false},
		{"start and end anchors", Request{URL: "https://cdn.test/ad.js", Type: TypeScript}, true},
		{"end anchor mismatch", Request{URL: "https://cdn.test/ad.js?v=2", Type: TypeScript}, false},
		{"type option match", Request{URL: "https://pixel.test/1.gif", Type: TypeImage}, true},
		{"type option mismatch", Request{URL: "https://pixel.test/app.js", Type: TypeScript}, false},
		{"domain option match", Request{URL: "https://widgets.test/w.js", SourceHost: "www.news.test", Type: TypeScript}, true},
		{"domain option excluded", Request{URL: "https://widgets.test/w.js", SourceHost: "blog.news.test", Type: TypeScript}, false},
		{"domain option other site", Request{URL: "https://widgets.test/w.js", SourceHost: "other.test", Type: TypeScript}, false},
		{"important beats exception", Request{URL: "https://important.test/a", Type: TypeScript}, true},
		{"non http scheme", Request{URL: "data:text/plain,ads.example.com", Type: TypeOther}, false},
		{"clean request", Request{URL: "https://example.net/index.html", Type: TypeDocument}, false},
	}
	for _, tt := range tests {
		if got := rs.ShouldBlock(tt.req); got != tt.want {
			t.Fatalf("%s: ShouldBlock(%+v) = %v; want %v", tt.name, tt.req, got, tt.want)
		}
		// second call is served from the cache
		if got := rs.ShouldBlock(tt.req); got != tt.want {
			t.Fatalf("%s: cached ShouldBlock() = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestNilRuleSetBlocksNothing(t *testing.T) {
	var rs *RuleSet
	if rs.ShouldBlock(Request{URL: "https://ads.example.com/"}) {
		t.Fatalf("nil RuleSet blocked a request")
	}
	if rs.Len() != 0 {
		t.Fatalf("Len() = %d; want 0", rs.Len())
	}
}

func TestThirdPartyUsesRegistrableDomain(t *testing.T) {
	rs := compile(t, "||tracker.co.uk^$third-party\n||cdn.example.com.au^$third-party\n")
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"other site under co.uk", Request{URL: "https://tracker.co.uk/p.js", SourceHost: "news.bbc.co.uk", Type: TypeScript}, true},
		{"same site under co.uk", Request{URL: "https://tracker.co.uk/p.js", SourceHost: "www.tracker.co.uk", Type: TypeScript}, false},
		{"other site under com.au", Request{URL: "https://cdn.example.com.au/a.js", SourceHost: "shop.other.com.au", Type: TypeScript}, true},
		{"same site under com.au", Request{URL: "https://cdn.example.com.au/a.js", SourceHost: "www.example.com.au", Type: TypeScript}, false},
	}
	for _, tt := range tests {
		if got := rs.ShouldBlock(tt.req); got != tt.want {
			t.Fatalf("%s: ShouldBlock(%+v) = %v; want %v", tt.name, tt.req, got, tt.want)
		}
	}
}

func TestCompileEmpty(t *testing.T) {
	rs, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile(nil) error = %v", err)
	}
	if rs.Len() != 0 || rs.ShouldBlock(Request{URL: "https://ads.example.com/"}) {
		t.Fatalf("empty RuleSet blocked a request")
	}
}
