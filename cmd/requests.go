package cmd

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/xerrors"
)

// Request is one operation of a benchmark request file.
type Request struct {
	Op    string
	Key   string
	Value string
}

// The request file grammar: one comma-separated operation per line, e.g.
//
//	insert, Like a Rolling Stone, https://example.com/stone
//	query, Like a Rolling Stone
type requestFile struct {
	Lines []*requestLine `EOL* ( @@ EOL* )*`
}

type requestLine struct {
	Fields []string `@Text ( "," @Text )*`
}

var requestLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Text", Pattern: `[^,\r\n]+`},
})

var requestParser = participle.MustBuild[requestFile](
	participle.Lexer(requestLexer),
)

// ParseRequests parses the content of a request file.
func ParseRequests(src string) ([]Request, error) {
	file, err := requestParser.ParseString("", src)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse request file: %v", err)
	}

	var requests []Request
	for _, line := range file.Lines {
		fields := make([]string, 0, len(line.Fields))
		for _, f := range line.Fields {
			fields = append(fields, strings.TrimSpace(f))
		}

		req := Request{Op: fields[0]}
		switch req.Op {
		case "insert":
			if len(fields) != 3 {
				return nil, xerrors.Errorf("insert wants a key and a value: %q", fields)
			}
			req.Key, req.Value = fields[1], fields[2]
		case "query", "delete":
			if len(fields) != 2 {
				return nil, xerrors.Errorf("%s wants a key: %q", req.Op, fields)
			}
			req.Key = fields[1]
		default:
			return nil, xerrors.Errorf("unknown operation %q", req.Op)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
