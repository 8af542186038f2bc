package curl

import (
	"errors"
	"reflect"
	"testing"

	"api_auto_test/internal/model"
)

func headersOf(req *model.ParsedRequest) map[string]string {
	return req.Headers.Map()
}

func bodyText(t *testing.T, req *model.ParsedRequest) string {
	t.Helper()
	body, ok := EncodeBody(req)
	if !ok {
		return ""
	}
	return string(body)
}

func TestParseBasic(t *testing.T) {
	req, err := Parse(`curl 'https://e.com' -H 'k: v' --data '{"n":1}'`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.Method != "POST" {
		t.Errorf("method = %q, want POST", req.Method)
	}
	if req.URL != "https://e.com" {
		t.Errorf("url = %q", req.URL)
	}
	if got := headersOf(req); !reflect.DeepEqual(got, map[string]string{"k": "v"}) {
		t.Errorf("headers = %v", got)
	}
	if req.BodyKind != model.BodyJSON {
		t.Errorf("body kind = %v, want JSON", req.BodyKind)
	}
	if got := bodyText(t, req); got != `{"n":1}` {
		t.Errorf("body = %s", got)
	}
}

func TestParseIgnoresURLsInHeaderValues(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"origin header first", `curl -H 'origin: https://bad.com' --data '{}' 'https://good.com/api'`, "https://good.com/api"},
		{"referer double quoted", `curl -H "referer: https://bad.com/page" "https://good.com/api"`, "https://good.com/api"},
		{"url at end", `curl -X GET -H 'origin:https://bad.com' https://good.com/api`, "https://good.com/api"},
		{"location flag", `curl --location 'https://good.com/api' -H 'referer: https://bad.com'`, "https://good.com/api"},
		{"location with request flag", `curl --location --request PUT 'https://good.com/api'`, "https://good.com/api"},
		{"url flag", `curl --url 'https://good.com/api' -H 'origin: https://bad.com'`, "https://good.com/api"},
		{"url inside body value", `curl -H 'a: b' --data '{"cb": "https://cb.com"}' 'https://good.com/api'`, "https://good.com/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.cmd)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if req.URL != tt.want {
				t.Errorf("url = %q, want %q", req.URL, tt.want)
			}
		})
	}
}

func TestParseMultilineEqualsSingleLine(t *testing.T) {
	multi := "curl --location --request POST 'https://api.example.com/v1/search?page=1&size=20' \\\n" +
		"  --header 'Content-Type: application/json' \\\n" +
		"  --header 'origin: https://www.example.com' \\\r\n" +
		"  --data-raw '{\n    \"searchType\": \"CITY\",\n    \"adult\": 2\n}'"
	single := `curl --location --request POST 'https://api.example.com/v1/search?page=1&size=20' --header 'Content-Type: application/json' --header 'origin: https://www.example.com' --data-raw '{ "searchType": "CITY", "adult": 2 }'`

	a, errA := Parse(multi)
	b, errB := Parse(single)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if Build(a) != Build(b) {
		t.Errorf("multi-line and single-line differ:\n%s\n%s", Build(a), Build(b))
	}
	if a.Method != "POST" || a.URL != "https://api.example.com/v1/search" {
		t.Errorf("unexpected method/url: %s %s", a.Method, a.URL)
	}
	if got := a.QueryParams.Map(); !reflect.DeepEqual(got, map[string]string{"page": "1", "size": "20"}) {
		t.Errorf("query = %v", got)
	}
	if got := a.Headers.Keys(); !reflect.DeepEqual(got, []string{"Content-Type", "origin"}) {
		t.Errorf("header order = %v", got)
	}
	if got := bodyText(t, a); got != `{"searchType":"CITY","adult":2}` {
		t.Errorf("body = %s", got)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{`curl https://e.com`, "GET"},
		{`curl -X delete https://e.com`, "DELETE"},
		{`curl -XPATCH https://e.com`, "PATCH"},
		{`curl --request 'PUT' https://e.com`, "PUT"},
		{`curl https://e.com --data-raw 'a=1'`, "POST"},
		{`curl https://e.com -d '{}'`, "POST"},
		{`curl -X GET https://e.com --data '{}'`, "GET"},
	}
	for _, tt := range tests {
		req, err := Parse(tt.cmd)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.cmd, err)
		}
		if req.Method != tt.want {
			t.Errorf("Parse(%q).Method = %q, want %q", tt.cmd, req.Method, tt.want)
		}
		if req.URL != "https://e.com" {
			t.Errorf("Parse(%q).URL = %q", tt.cmd, req.URL)
		}
	}
}

func TestParseBodies(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		kind model.BodyKind
		body string
	}{
		{
			name: "nested quotes and braces",
			cmd:  `curl https://e.com --data '{"a":{"b":"x}y"},"c":[1,2],"d":"it\'s"}'`,
			kind: model.BodyJSON,
			body: `{"a":{"b":"x}y"},"c":[1,2],"d":"it's"}`,
		},
		{
			name: "double quoted body",
			cmd:  `curl https://e.com --data "{\"q\":\"a b\"}"`,
			kind: model.BodyJSON,
			body: `{"q":"a b"}`,
		},
		{
			name: "ansi c quoting",
			cmd:  `curl https://e.com --data-raw $'{"q":"v"}'`,
			kind: model.BodyJSON,
			body: `{"q":"v"}`,
		},
		{
			name: "form body",
			cmd:  `curl https://e.com --data 'name=John+Doe&age=30'`,
			kind: model.BodyForm,
			body: `name=John+Doe&age=30`,
		},
		{
			name: "raw body",
			cmd:  `curl https://e.com --data 'plain text'`,
			kind: model.BodyRaw,
			body: `{"data":"plain text"}`,
		},
		{
			name: "json array kept as is",
			cmd:  `curl https://e.com --data '[{"id":1},{"id":2}]'`,
			kind: model.BodyJSONValue,
			body: `[{"id":1},{"id":2}]`,
		},
		{
			name: "json scalar kept as is",
			cmd:  `curl https://e.com --data '123'`,
			kind: model.BodyJSONValue,
			body: `123`,
		},
		{
			name: "json string kept as is",
			cmd:  `curl https://e.com --data '"s"'`,
			kind: model.BodyJSONValue,
			body: `"s"`,
		},
		{
			name: "unquoted body",
			cmd:  `curl https://e.com -d a=1`,
			kind: model.BodyForm,
			body: `a=1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.cmd)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if req.URL != "https://e.com" {
				t.Errorf("url = %q", req.URL)
			}
			if req.BodyKind != tt.kind {
				t.Errorf("kind = %v, want %v", req.BodyKind, tt.kind)
			}
			if got := bodyText(t, req); got != tt.body {
				t.Errorf("body = %s, want %s", got, tt.body)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	req, err := Parse(`curl 'https://e.com/x' -H 'Authorization: Bearer a:b' -H "X-Quote: say \"hi\"" -b 'sid=1' --cookie 'lang=en' -A 'agent/1.0' -H 'broken' --compressed`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := map[string]string{
		"Authorization": "Bearer a:b",
		"X-Quote":       `say "hi"`,
		"Cookie":        "sid=1; lang=en",
		"User-Agent":    "agent/1.0",
	}
	if got := headersOf(req); !reflect.DeepEqual(got, want) {
		t.Errorf("headers = %v, want %v", got, want)
	}
}

func TestParseQueryParams(t *testing.T) {
	req, err := Parse(`curl 'https://e.com/search?q=hello%20world&tag=a&tag=b&empty=#frag'`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.URL != "https://e.com/search" {
		t.Errorf("url = %q", req.URL)
	}
	want := map[string]string{"q": "hello world", "tag": "b", "empty": ""}
	if got := req.QueryParams.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("query = %v, want %v", got, want)
	}
}

func TestParseNoURL(t *testing.T) {
	for _, cmd := range []string{"", `curl --url '?a=1'`, "curl", `curl -H 'origin: https://bad.com' --data '{}'`, "not a command"} {
		req, err := Parse(cmd)
		if !errors.Is(err, ErrNoURL) {
			t.Errorf("Parse(%q) error = %v, want ErrNoURL", cmd, err)
		}
		if req == nil || req.URL != "" {
			t.Errorf("Parse(%q) should return a request with empty URL", cmd)
		}
	}
}

func TestParseDoubleQuotedURLWithPort(t *testing.T) {
	req, err := Parse(`curl -H 'a: b' --data 'x=1' "http://host.local:8080/p?x=1"`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.URL != "http://host.local:8080/p" {
		t.Errorf("url = %q", req.URL)
	}
}

func FuzzParse(f *testing.F) {
	f.Add(`curl 'https://e.com' -H 'k: v' --data '{"n":1}'`)
	f.Add(`curl -X POST --data "{\"a\":" https://e.com`)
	f.Fuzz(func(t *testing.T, cmd string) {
		req, err := Parse(cmd)
		if req == nil {
			t.Fatal("Parse returned nil request")
		}
		if (err != nil) != (req.URL == "") {
			t.Fatalf("error %v inconsistent with url %q", err, req.URL)
		}
	})
}
