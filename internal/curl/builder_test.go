package curl

import (
	"encoding/json"
	"testing"

	"api_auto_test/internal/model"
)

func TestBuild(t *testing.T) {
	req, err := Parse(`curl 'https://e.com/api?b=2&a=x%20y' -H 'k: v' -H 'Content-Type: application/json' --data '{"n":1,"s":"a&b"}'`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := `curl -X POST -H "k: v" -H "Content-Type: application/json" --data '{"n":1,"s":"a&b"}' 'https://e.com/api?b=2&a=x+y'`
	if got := Build(req); got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildEscaping(t *testing.T) {
	req := model.NewParsedRequest()
	req.Method = "PUT"
	req.URL = "https://e.com/p"
	req.Headers.Set("X-Say", `he said "$HOME"`)
	req.QueryParams.Set("q", "a b&c")
	req.Body = model.NewFields[json.RawMessage]()
	req.Body.Set("name", json.RawMessage(`"O'Brien"`))
	req.BodyKind = model.BodyJSON

	want := `curl -X PUT -H "X-Say: he said \"\$HOME\"" --data '{"name":"O'\''Brien"}' 'https://e.com/p?q=a+b%26c'`
	if got := Build(req); got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildWithoutBody(t *testing.T) {
	req, _ := Parse(`curl https://e.com`)
	if got, want := Build(req), `curl -X GET 'https://e.com'`; got != want {
		t.Errorf("Build() = %s, want %s", got, want)
	}
}

func TestBuildFormBody(t *testing.T) {
	req, _ := Parse(`curl https://e.com -d 'a=1&b=x%2By'`)
	if got, want := Build(req), `curl -X POST --data 'a=1&b=x%2By' 'https://e.com'`; got != want {
		t.Errorf("Build() = %s, want %s", got, want)
	}
}

func TestBuildJSONArrayBody(t *testing.T) {
	req, err := Parse(`curl https://e.com -H 'Content-Type: application/json' --data '[{"id":1},{"id":2}]'`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := `curl -X POST -H "Content-Type: application/json" --data '[{"id":1},{"id":2}]' 'https://e.com'`
	if got := Build(req); got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}

	// 副本修改 RawBody 不影响原请求
	c := req.Clone()
	c.RawBody[1] = '['
	if got, _ := EncodeBody(req); string(got) != `[{"id":1},{"id":2}]` {
		t.Errorf("original body changed: %s", got)
	}
}

func TestRawText(t *testing.T) {
	tests := map[string]string{
		`"abc"`:   "abc",
		`5`:       "5",
		`true`:    "true",
		`null`:    "null",
		` null `:  "null",
		`{"a":1}`: `{"a":1}`,
	}
	for raw, want := range tests {
		if got := RawText(json.RawMessage(raw)); got != want {
			t.Errorf("RawText(%s) = %q, want %q", raw, got, want)
		}
	}
}
