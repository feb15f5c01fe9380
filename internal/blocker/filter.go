package blocker

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
	"github.com/AdguardTeam/urlfilter/rules"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ResourceType is the kind of resource a request loads, using filter list
// option names (script, image, stylesheet, ...).
type ResourceType string

const (
	TypeDocument    ResourceType = "document"
	TypeSubdocument ResourceType = "subdocument"
	TypeScript      ResourceType = "script"
	TypeImage       ResourceType = "image"
	TypeStylesheet  ResourceType = "stylesheet"
	TypeXHR         ResourceType = "xmlhttprequest"
	TypeFont        ResourceType = "font"
	TypeMedia       ResourceType = "media"
	TypeObject      ResourceType = "object"
	TypePing        ResourceType = "ping"
	TypeWebSocket   ResourceType = "websocket"
	TypeOther       ResourceType = "other"
)

var requestTypes = map[ResourceType]rules.RequestType{
	TypeDocument:    rules.TypeDocument,
	TypeSubdocument: rules.TypeSubdocument,
	TypeScript:      rules.TypeScript,
	TypeImage:       rules.TypeImage,
	TypeStylesheet:  rules.TypeStylesheet,
	TypeXHR:         rules.TypeXmlhttprequest,
	TypeFont:        rules.TypeFont,
	TypeMedia:       rules.TypeMedia,
	TypeObject:      rules.TypeObject,
	TypePing:        rules.TypePing,
	TypeWebSocket:   rules.TypeWebsocket,
	TypeOther:       rules.TypeOther,
}

func (t ResourceType) requestType() rules.RequestType {
	if rt, ok := requestTypes[t]; ok {
		return rt
	}
	return rules.TypeOther
}

// Request is a network request as seen by the filter.
type Request struct {
	URL        string
	SourceHost string
	Type       ResourceType
}

// Options that rewrite requests or responses rather than block them. The
// shell can only cancel a request, so rules carrying them are dropped.
var rewriteOptions = map[string]bool{
	"csp":           true,
	"redirect":      true,
	"redirect-rule": true,
	"replace":       true,
	"removeparam":   true,
	"removeheader":  true,
	"cookie":        true,
}

// ParseList extracts the network rules from filter list text. Comments,
// cosmetic rules, rewrite rules and lines the engine cannot parse are
// skipped.
func ParseList(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line, ok := networkRule(sc.Text()); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func networkRule(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '!' || line[0] == '[' {
		return "", false
	}
	if strings.Contains(line, "##") || strings.Contains(line, "#@#") ||
		strings.Contains(line, "#?#") || strings.Contains(line, "#$#") ||
		strings.Contains(line, "#%#") {
		return "", false
	}
	if i := strings.LastIndexByte(line, '$'); i >= 0 {
		for _, opt := range strings.Split(line[i+1:], ",") {
			name, _, _ := strings.Cut(strings.TrimPrefix(opt, "~"), "=")
			if rewriteOptions[strings.ToLower(name)] {
				return "", false
			}
		}
	}
	if _, err := rules.NewNetworkRule(line, 0); err != nil {
		return "", false
	}
	return line, true
}

// RuleSet is an immutable compiled set of network rules with a match cache.
// It is safe for concurrent use.
type RuleSet struct {
	count  int
	engine *urlfilter.NetworkEngine
	cache  *lru.Cache[Request, bool]
}

const matchCacheSize = 8192

// Compile builds a RuleSet from rule lines as returned by ParseList.
func Compile(lines []string) (*RuleSet, error) {
	list := &filterlist.StringRuleList{
		ID:             1,
		RulesText:      strings.Join(lines, "\n"),
		IgnoreCosmetic: true,
	}
	storage, err := filterlist.NewRuleStorage([]filterlist.RuleList{list})
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	cache, err := lru.New[Request, bool](matchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	return &RuleSet{
		count:  len(lines),
		engine: urlfilter.NewNetworkEngine(storage),
		cache:  cache,
	}, nil
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return rs.count
}

// ShouldBlock reports whether req matches a blocking rule that is not
// overridden by an exception. Third-party checks compare registrable domains
// from the public suffix list. A nil RuleSet blocks nothing.
func (rs *RuleSet) ShouldBlock(req Request) bool {
	if rs == nil || rs.count == 0 {
		return false
	}
	if v, ok := rs.cache.Get(req); ok {
		return v
	}
	blocked := rs.decide(req)
	rs.cache.Add(req, blocked)
	return blocked
}

func (rs *RuleSet) decide(req Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return false
	}
	var source string
	if req.SourceHost != "" {
		source = "https://" + req.SourceHost + "/"
	}
	rule, ok := rs.engine.Match(rules.NewRequest(req.URL, source, req.Type.requestType()))
	if !ok || rule == nil {
		return false
	}
	return !strings.HasPrefix(rule.Text(), "@@")
}
